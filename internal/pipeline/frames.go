package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"

	"github.com/framemill/framemill/internal/still"
)

// ExtractFrames samples count frames evenly across the video stream of
// inputPath and writes each one as an image file. outputPath acts as the
// naming template: its extension picks the image codec and each frame gets a
// numbered suffix. It returns the written paths in order, including the
// files already on disk when the run fails partway.
func ExtractFrames(logger *slog.Logger, inputPath, outputPath string, count int64) ([]string, error) {
	v := &frameSampler{outputPath: outputPath, count: count}
	err := Run(logger, []string{inputPath}, v)
	return v.written, err
}

// ExtractKeyFrame writes the first frame at or before the given timestamp as
// an image file.
func ExtractKeyFrame(logger *slog.Logger, inputPath, outputPath string, atSeconds float64) error {
	return Run(logger, []string{inputPath}, &frameSampler{
		outputPath: outputPath,
		count:      1,
		seek:       atSeconds,
		single:     true,
	})
}

// frameSampler decodes video frames, keeps every interval-th one, converts
// it to RGBA and writes it to disk. With single set it instead seeks first
// and writes exactly one file at outputPath.
type frameSampler struct {
	outputPath string
	count      int64
	seek       float64
	single     bool

	interval int64
	index    int64
	scaler   *Scaler
	rgba     *astiav.Frame
	written  []string
}

func (t *frameSampler) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *frameSampler) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	if t.single {
		t.interval = 1
		if err := in.SeekSeconds(t.seek); err != nil {
			return err
		}
	} else {
		t.interval = SampleInterval(in.FrameCount(dec.Stream()), t.count)
	}

	cc := dec.CodecContext()
	sc, err := NewScaler(cc.Width(), cc.Height(), cc.PixelFormat(),
		cc.Width(), cc.Height(), astiav.PixelFormatRgba)
	if err != nil {
		return err
	}
	o.Defer(sc.Close)
	t.scaler = sc

	t.rgba = astiav.AllocFrame()
	o.Defer(t.rgba.Free)
	return nil
}

func (t *frameSampler) frame(f *astiav.Frame) error {
	keep := t.index%t.interval == 0
	t.index++
	if !keep {
		return nil
	}

	t.rgba.Unref()
	if err := t.scaler.Scale(f, t.rgba); err != nil {
		return err
	}

	img, err := t.rgba.Data().GuessImageFormat()
	if err != nil {
		return fmt.Errorf("%w: guess image format: %w", ErrDecode, err)
	}
	if err := t.rgba.Data().ToImage(img); err != nil {
		return fmt.Errorf("%w: copy frame pixels: %w", ErrDecode, err)
	}

	path := t.outputPath
	if !t.single {
		path = still.SequencePath(t.outputPath, len(t.written)+1)
	}
	if err := still.WriteFile(path, img); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	t.written = append(t.written, path)

	if int64(len(t.written)) >= t.count {
		return errStopDraining
	}
	return nil
}

func (t *frameSampler) flush() error { return nil }

func (t *frameSampler) finalize() error {
	if len(t.written) == 0 {
		return fmt.Errorf("%w: no frame decoded", ErrDecode)
	}
	return nil
}
