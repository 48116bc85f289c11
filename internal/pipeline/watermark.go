package pipeline

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/asticode/go-astiav"

	"github.com/framemill/framemill/internal/still"
)

// overlayMargin is the distance in pixels between the watermark and the
// frame edges.
const overlayMargin = 16

// ApplyWatermark draws the image at watermarkPath onto every frame of the
// best video stream, anchored bottom-right, and re-encodes the result with
// H.264.
func ApplyWatermark(logger *slog.Logger, inputPath, outputPath, watermarkPath string) error {
	return Run(logger, []string{inputPath}, &watermarker{
		outputPath:    outputPath,
		watermarkPath: watermarkPath,
	})
}

// watermarker round-trips each decoded frame through RGBA: scale to RGBA,
// composite the watermark with alpha, scale back to the source pixel format
// and encode. The canvas image is reused across frames; the frame sent to
// the encoder gets a fresh buffer each time.
type watermarker struct {
	outputPath    string
	watermarkPath string

	overlay image.Image
	at      image.Point
	canvas  *image.RGBA

	toRGBA   *Scaler
	fromRGBA *Scaler
	rgba     *astiav.Frame
	drawn    *astiav.Frame
	out      *astiav.Frame

	enc    *Encoder
	sink   *Sink
	stream *astiav.Stream
	pkt    *astiav.Packet
}

func (t *watermarker) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *watermarker) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	overlay, err := still.ReadFile(t.watermarkPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	t.overlay = overlay

	cc := dec.CodecContext()
	width, height := cc.Width(), cc.Height()
	pixFmt := cc.PixelFormat()

	wm := overlay.Bounds()
	t.at = overlayOrigin(width, height, wm.Dx(), wm.Dy(), overlayMargin)
	t.canvas = image.NewRGBA(image.Rect(0, 0, width, height))

	if t.toRGBA, err = NewScaler(width, height, pixFmt, width, height, astiav.PixelFormatRgba); err != nil {
		return err
	}
	o.Defer(t.toRGBA.Close)
	if t.fromRGBA, err = NewScaler(width, height, astiav.PixelFormatRgba, width, height, pixFmt); err != nil {
		return err
	}
	o.Defer(t.fromRGBA.Close)

	t.rgba = astiav.AllocFrame()
	o.Defer(t.rgba.Free)
	t.drawn = astiav.AllocFrame()
	o.Defer(t.drawn.Free)
	t.out = astiav.AllocFrame()
	o.Defer(t.out.Free)

	codec := astiav.FindEncoder(astiav.CodecIDH264)
	if codec == nil {
		return fmt.Errorf("%w: h264 encoder not found", ErrConfiguration)
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
		BitRate:      cc.BitRate(),
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

func (t *watermarker) frame(f *astiav.Frame) error {
	t.rgba.Unref()
	if err := t.toRGBA.Scale(f, t.rgba); err != nil {
		return err
	}
	if err := t.rgba.Data().ToImage(t.canvas); err != nil {
		return fmt.Errorf("%w: copy frame pixels: %w", ErrDecode, err)
	}

	wm := t.overlay.Bounds()
	dst := image.Rect(t.at.X, t.at.Y, t.at.X+wm.Dx(), t.at.Y+wm.Dy())
	draw.Draw(t.canvas, dst, t.overlay, wm.Min, draw.Over)

	t.drawn.Unref()
	t.drawn.SetWidth(t.canvas.Rect.Dx())
	t.drawn.SetHeight(t.canvas.Rect.Dy())
	t.drawn.SetPixelFormat(astiav.PixelFormatRgba)
	if err := t.drawn.AllocBuffer(0); err != nil {
		return fmt.Errorf("%w: alloc frame buffer: %w", ErrEncode, err)
	}
	if err := t.drawn.Data().FromImage(t.canvas); err != nil {
		return fmt.Errorf("%w: copy composited pixels: %w", ErrEncode, err)
	}
	t.drawn.SetPts(f.Pts())

	t.out.Unref()
	if err := t.fromRGBA.Scale(t.drawn, t.out); err != nil {
		return err
	}
	t.out.SetPictureType(astiav.PictureTypeNone)

	if err := t.enc.Send(t.out); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *watermarker) flush() error {
	if err := t.enc.Flush(); err != nil {
		return err
	}
	return drainEncoder(t.enc, t.sink, t.stream, t.pkt)
}

func (t *watermarker) finalize() error {
	return t.sink.WriteTrailer()
}

// overlayOrigin anchors a watermark of the given size at the frame's bottom
// right corner with the given margin, clamped so oversized watermarks still
// land inside the frame.
func overlayOrigin(frameW, frameH, wmW, wmH, margin int) image.Point {
	x := frameW - wmW - margin
	y := frameH - wmH - margin
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Point{X: x, Y: y}
}
