package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
)

// AnimatedPreview renders the opening seconds of the video stream as an
// animated GIF at the requested frame rate.
func AnimatedPreview(logger *slog.Logger, inputPath, outputPath string, duration float64, fps int) error {
	return Run(logger, []string{inputPath}, &gifPreview{
		outputPath: outputPath,
		duration:   duration,
		fps:        fps,
	})
}

// gifPreview downsamples the source frame rate to the preview rate, converts
// kept frames to palette-friendly RGB8 and encodes them as GIF. Output
// timestamps are a plain frame counter in the 1/fps time base.
type gifPreview struct {
	outputPath string
	duration   float64
	fps        int

	interval  int64
	maxFrames int64
	index     int64
	emitted   int64

	scaler *Scaler
	rgb    *astiav.Frame
	enc    *Encoder
	sink   *Sink
	stream *astiav.Stream
	pkt    *astiav.Packet
}

func (t *gifPreview) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *gifPreview) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	t.maxFrames = int64(t.duration * float64(t.fps))
	if t.maxFrames < 1 {
		t.maxFrames = 1
	}

	// Keep every k-th source frame so the kept rate approximates fps.
	t.interval = 1
	if fr := in.FrameRate(dec.Stream()); fr.Num() > 0 && fr.Den() > 0 {
		if k := int64(fr.Num()) / (int64(fr.Den()) * int64(t.fps)); k > 1 {
			t.interval = k
		}
	}

	cc := dec.CodecContext()
	sc, err := NewScaler(cc.Width(), cc.Height(), cc.PixelFormat(),
		cc.Width(), cc.Height(), astiav.PixelFormatRgb8)
	if err != nil {
		return err
	}
	o.Defer(sc.Close)
	t.scaler = sc
	t.rgb = astiav.AllocFrame()
	o.Defer(t.rgb.Free)

	codec := astiav.FindEncoder(astiav.CodecIDGif)
	if codec == nil {
		return fmt.Errorf("%w: gif encoder not found", ErrConfiguration)
	}

	sink, err := NewSink(t.outputPath)
	if err != nil {
		return err
	}
	o.Defer(sink.Close)
	t.sink = sink

	enc, err := NewVideoEncoder(VideoEncoderConfig{
		Codec:        codec,
		Width:        cc.Width(),
		Height:       cc.Height(),
		PixelFormat:  astiav.PixelFormatRgb8,
		TimeBase:     astiav.NewRational(1, t.fps),
		FrameRate:    astiav.NewRational(t.fps, 1),
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

func (t *gifPreview) frame(f *astiav.Frame) error {
	keep := t.index%t.interval == 0
	t.index++
	if !keep {
		return nil
	}

	t.rgb.Unref()
	if err := t.scaler.Scale(f, t.rgb); err != nil {
		return err
	}
	t.rgb.SetPts(t.emitted)
	t.rgb.SetPictureType(astiav.PictureTypeNone)

	if err := t.enc.Send(t.rgb); err != nil {
		return err
	}
	if err := drainEncoder(t.enc, t.sink, t.stream, t.pkt); err != nil {
		return err
	}

	t.emitted++
	if t.emitted >= t.maxFrames {
		return errStopDraining
	}
	return nil
}

func (t *gifPreview) flush() error {
	if err := t.enc.Flush(); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *gifPreview) finalize() error {
	return t.sink.WriteTrailer()
}
