package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astiav"
)

// ResampleAudio re-encodes the best audio stream of inputPath at the target
// sample rate.
func ResampleAudio(logger *slog.Logger, inputPath, outputPath string, sampleRate int) error {
	return Run(logger, []string{inputPath}, &audioTranscode{
		outputPath: outputPath,
		targetRate: sampleRate,
	})
}

// ExtractAudio demuxes and re-encodes the best audio stream of inputPath
// into an audio-only container at the given bit rate.
func ExtractAudio(logger *slog.Logger, inputPath, outputPath string, bitRate int64) error {
	return Run(logger, []string{inputPath}, &audioTranscode{
		outputPath: outputPath,
		bitRate:    bitRate,
	})
}

// MixAudio concatenates the audio streams of the given inputs, in order,
// into one output file. All sources are normalized to the first source's
// channel layout and sample rate.
func MixAudio(logger *slog.Logger, inputPaths []string, outputPath string) error {
	return Run(logger, inputPaths, &audioTranscode{outputPath: outputPath})
}

// audioTranscode routes decoded audio through a resampler into an encoder.
// Fixed frame-size encoders reject frames larger than their frame size and
// accept a short frame only as the stream's last, while the resampler emits
// whatever sample count the rate conversion yields; a sample fifo between
// the two re-frames the output. The variant owns the output clock, a running
// sample counter in the 1/rate time base stamped onto every frame it sends,
// which keeps timestamps contiguous across source boundaries when several
// inputs are concatenated.
type audioTranscode struct {
	outputPath string
	targetRate int // 0 keeps the first source's rate
	bitRate    int64

	// output audio configuration, fixed by the first source.
	layout astiav.ChannelLayout
	format astiav.SampleFormat
	rate   int

	res  *Resampler
	conv *astiav.Frame

	// fifo re-framing; unused when the encoder takes any frame size.
	fifo      *astiav.AudioFifo
	frameSize int
	fixed     *astiav.Frame

	// next output pts, counted in samples sent to the encoder.
	pts int64

	enc    *Encoder
	sink   *Sink
	stream *astiav.Stream
	pkt    *astiav.Packet
}

func (t *audioTranscode) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeAudio)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(s, codec)
	if err != nil {
		return nil, err
	}

	// Second and later sources: a resample context locks onto the first
	// frame it sees and rejects input that changes afterwards, so finish the
	// previous source's carry-over and start a fresh context. The sample
	// counter keeps ticking across the swap.
	if t.res != nil {
		if err := t.drainResampler(); err != nil {
			dec.Close()
			return nil, err
		}
		t.res.Close()
		res, err := NewResampler(t.layout, t.format, t.rate)
		if err != nil {
			dec.Close()
			return nil, err
		}
		t.res = res
	}

	return dec, nil
}

func (t *audioTranscode) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	cc := dec.CodecContext()

	t.rate = t.targetRate
	if t.rate == 0 {
		t.rate = cc.SampleRate()
	}
	t.layout = cc.ChannelLayout()
	// Planar float is what the lossy audio encoders want.
	t.format = astiav.SampleFormatFltp

	res, err := NewResampler(t.layout, t.format, t.rate)
	if err != nil {
		return err
	}
	t.res = res
	o.Defer(func() { t.res.Close() })
	t.conv = astiav.AllocFrame()
	o.Defer(t.conv.Free)

	codec, err := findAudioEncoder(t.outputPath)
	if err != nil {
		return err
	}

	sink, err := NewSink(t.outputPath)
	if err != nil {
		return err
	}
	o.Defer(sink.Close)
	t.sink = sink

	enc, err := NewAudioEncoder(AudioEncoderConfig{
		Codec:         codec,
		SampleRate:    t.rate,
		ChannelLayout: t.layout,
		SampleFormat:  t.format,
		TimeBase:      astiav.NewRational(1, t.rate),
		BitRate:       t.bitRate,
		GlobalHeader:  sink.NeedsGlobalHeader(),
	})
	if err != nil {
		return err
	}
	o.Defer(enc.Close)
	t.enc = enc

	if t.frameSize = enc.CodecContext().FrameSize(); t.frameSize > 0 {
		t.fifo = astiav.AllocAudioFifo(t.format, t.layout.Channels(), t.frameSize*4)
		if t.fifo == nil {
			return fmt.Errorf("%w: alloc audio fifo", ErrConfiguration)
		}
		o.Defer(t.fifo.Free)
		t.fixed = astiav.AllocFrame()
		o.Defer(t.fixed.Free)
	}

	if t.stream, err = sink.AddStream(enc); err != nil {
		return err
	}
	if err := sink.Open(); err != nil {
		return err
	}
	if err := sink.WriteHeader(); err != nil {
		return err
	}

	t.pkt = astiav.AllocPacket()
	o.Defer(t.pkt.Free)
	return nil
}

func (t *audioTranscode) frame(f *astiav.Frame) error {
	t.conv.Unref()
	ok, err := t.res.Convert(f, t.conv)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return t.push(t.conv)
}

func (t *audioTranscode) flush() error {
	if err := t.drainResampler(); err != nil {
		return err
	}
	if t.fifo != nil {
		if err := t.popFrames(true); err != nil {
			return err
		}
	}

	if err := t.enc.Flush(); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *audioTranscode) finalize() error {
	return t.sink.WriteTrailer()
}

// push feeds one resampled frame toward the encoder, through the fifo when
// the encoder wants fixed-size frames and directly otherwise.
func (t *audioTranscode) push(f *astiav.Frame) error {
	if t.fifo == nil {
		f.SetPts(t.pts)
		t.pts += int64(f.NbSamples())
		return t.encode(f)
	}

	if _, err := t.fifo.Write(f); err != nil {
		return fmt.Errorf("%w: buffer samples: %w", ErrEncode, err)
	}
	return t.popFrames(false)
}

// popFrames sends buffered samples to the encoder in frames of exactly
// frameSize samples. With eos set it also sends the final short remainder.
func (t *audioTranscode) popFrames(eos bool) error {
	for {
		n := nextReadSize(t.fifo.Size(), t.frameSize, eos)
		if n == 0 {
			return nil
		}

		// The encoder keeps a reference to the frame it is sent, so every
		// pop gets a fresh buffer instead of overwriting the previous one.
		t.fixed.Unref()
		t.fixed.SetChannelLayout(t.layout)
		t.fixed.SetSampleFormat(t.format)
		t.fixed.SetSampleRate(t.rate)
		t.fixed.SetNbSamples(n)
		if err := t.fixed.AllocBuffer(0); err != nil {
			return fmt.Errorf("%w: alloc sample buffer: %w", ErrEncode, err)
		}
		if _, err := t.fifo.Read(t.fixed); err != nil {
			return fmt.Errorf("%w: read buffered samples: %w", ErrEncode, err)
		}

		t.fixed.SetPts(t.pts)
		t.pts += int64(n)
		if err := t.encode(t.fixed); err != nil {
			return err
		}
	}
}

// drainResampler flushes the rate converter's carry-over downstream. Called
// at end-of-stream and before swapping in a fresh context for the next
// source.
func (t *audioTranscode) drainResampler() error {
	for {
		t.conv.Unref()
		ok, err := t.res.Flush(t.conv)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := t.push(t.conv); err != nil {
			return err
		}
	}
}

func (t *audioTranscode) encode(f *astiav.Frame) error {
	if err := t.enc.Send(f); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

// nextReadSize decides how many samples to pop for an encoder wanting
// frameSize samples per frame: full frames while the stream runs, the short
// remainder only once the stream has ended, zero otherwise.
func nextReadSize(buffered, frameSize int, eos bool) int {
	if buffered >= frameSize {
		return frameSize
	}
	if eos && buffered > 0 {
		return buffered
	}
	return 0
}

// findAudioEncoder picks the encoder from the output extension: MP3 for
// .mp3 when available, AAC for everything else.
func findAudioEncoder(path string) (*astiav.Codec, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if c := astiav.FindEncoder(astiav.CodecIDMp3); c != nil {
			return c, nil
		}
	}
	if c := astiav.FindEncoder(astiav.CodecIDAac); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: no audio encoder available", ErrConfiguration)
}
