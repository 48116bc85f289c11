package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
)

// Transcode re-encodes the best video stream of inputPath with the named
// codec at the given bit rate and muxes it into outputPath.
func Transcode(logger *slog.Logger, inputPath, outputPath, codecName string, bitRate int64) error {
	return Run(logger, []string{inputPath}, &videoTranscode{
		outputPath: outputPath,
		codecName:  codecName,
		bitRate:    bitRate,
	})
}

// Resize scales the best video stream of inputPath to the target height,
// preserving aspect ratio with even dimensions, and re-encodes it with H.264.
func Resize(logger *slog.Logger, inputPath, outputPath string, targetHeight int) error {
	return Run(logger, []string{inputPath}, &videoTranscode{
		outputPath:   outputPath,
		targetHeight: targetHeight,
	})
}

// videoTranscode decodes video frames, optionally rescales them, and
// re-encodes them into a new container. It backs both the transcode and the
// resize tasks, which differ only in encoder selection and scaling.
type videoTranscode struct {
	outputPath   string
	codecName    string // empty selects H.264
	targetHeight int    // 0 keeps source dimensions
	bitRate      int64

	scaler *Scaler
	scaled *astiav.Frame
	enc    *Encoder
	sink   *Sink
	stream *astiav.Stream
	pkt    *astiav.Packet
}

func (t *videoTranscode) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *videoTranscode) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	cc := dec.CodecContext()
	width, height := cc.Width(), cc.Height()
	pixFmt := cc.PixelFormat()

	if t.targetHeight > 0 {
		dstW, dstH := TargetGeometry(width, height, t.targetHeight)
		sc, err := NewScaler(width, height, pixFmt, dstW, dstH, pixFmt)
		if err != nil {
			return err
		}
		o.Defer(sc.Close)
		t.scaler = sc
		t.scaled = astiav.AllocFrame()
		o.Defer(t.scaled.Free)
		width, height = dstW, dstH
	}

	var codec *astiav.Codec
	if t.codecName != "" {
		if codec = astiav.FindEncoderByName(t.codecName); codec == nil {
			return fmt.Errorf("%w: encoder %q not found", ErrConfiguration, t.codecName)
		}
	} else {
		if codec = astiav.FindEncoder(astiav.CodecIDH264); codec == nil {
			return fmt.Errorf("%w: h264 encoder not found", ErrConfiguration)
		}
	}

	sink, err := NewSink(t.outputPath)
	if err != nil {
		return err
	}
	o.Defer(sink.Close)
	t.sink = sink

	enc, err := NewVideoEncoder(VideoEncoderConfig{
		Codec:        codec,
		Width:        width,
		Height:       height,
		PixelFormat:  pixFmt,
		TimeBase:     dec.TimeBase(),
		FrameRate:    in.FrameRate(dec.Stream()),
		BitRate:      t.bitRate,
		GlobalHeader: sink.NeedsGlobalHeader(),
	})
	if err != nil {
		return err
	}
	o.Defer(enc.Close)
	t.enc = enc

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

func (t *videoTranscode) frame(f *astiav.Frame) error {
	out := f
	if t.scaler != nil {
		t.scaled.Unref()
		if err := t.scaler.Scale(f, t.scaled); err != nil {
			return err
		}
		out = t.scaled
	}

	// Let the encoder decide the GOP structure itself.
	out.SetPictureType(astiav.PictureTypeNone)

	if err := t.enc.Send(out); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *videoTranscode) flush() error {
	if err := t.enc.Flush(); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *videoTranscode) finalize() error {
	return t.sink.WriteTrailer()
}

// drainEncoder pulls every packet the encoder can currently give and muxes
// it into the sink's stream.
func drainEncoder(enc *Encoder, sink *Sink, stream *astiav.Stream, pkt *astiav.Packet) error {
	for {
		ok, err := enc.Receive(pkt)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		err = sink.WritePacket(pkt, enc.TimeBase(), stream)
		pkt.Unref()
		if err != nil {
			return err
		}
	}
}
