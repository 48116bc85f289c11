package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/asticode/go-astiav"
)

// SceneCut is one detected cut: the frame it starts, its timestamp in
// seconds, and the luminance difference that crossed the threshold.
type SceneCut struct {
	Frame      int64   `json:"frame"`
	Timestamp  float64 `json:"timestamp"`
	Difference float64 `json:"difference"`
}

// SceneReport is the JSON document written by scene-cut detection.
type SceneReport struct {
	SceneCuts   []SceneCut `json:"scene_cuts"`
	TotalFrames int64      `json:"total_frames"`
	Threshold   float64    `json:"threshold"`
}

// DetectSceneCuts scans the video stream for hard cuts, comparing the
// luminance of consecutive frames, and writes one record per cut to
// outputPath as JSON. It returns the number of cuts found.
func DetectSceneCuts(logger *slog.Logger, inputPath, outputPath string, threshold float64) (int, error) {
	v := &sceneDetector{outputPath: outputPath, threshold: threshold}
	if err := Run(logger, []string{inputPath}, v); err != nil {
		return 0, err
	}
	return len(v.cuts), nil
}

// sceneDetector converts each frame to grayscale and flags a cut whenever
// the mean absolute luminance difference against the previous frame exceeds
// the threshold. The first frame never counts as a cut.
type sceneDetector struct {
	outputPath string
	threshold  float64

	scaler *Scaler
	gray   *astiav.Frame
	prev   []byte
	frames int64
	cuts   []SceneCut

	timeBase astiav.Rational
}

func (t *sceneDetector) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *sceneDetector) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	cc := dec.CodecContext()
	sc, err := NewScaler(cc.Width(), cc.Height(), cc.PixelFormat(),
		cc.Width(), cc.Height(), astiav.PixelFormatGray8)
	if err != nil {
		return err
	}
	o.Defer(sc.Close)
	t.scaler = sc
	t.gray = astiav.AllocFrame()
	o.Defer(t.gray.Free)
	t.timeBase = dec.TimeBase()
	return nil
}

func (t *sceneDetector) frame(f *astiav.Frame) error {
	t.gray.Unref()
	if err := t.scaler.Scale(f, t.gray); err != nil {
		return err
	}
	luma, err := t.gray.Data().Bytes(1)
	if err != nil {
		return fmt.Errorf("%w: read luma plane: %w", ErrDecode, err)
	}

	if t.prev != nil && len(t.prev) == len(luma) {
		if delta := frameDelta(t.prev, luma); delta > t.threshold {
			t.cuts = append(t.cuts, SceneCut{
				Frame:      t.frames,
				Timestamp:  t.frameSeconds(f),
				Difference: delta,
			})
		}
	}

	if cap(t.prev) < len(luma) {
		t.prev = make([]byte, len(luma))
	}
	t.prev = t.prev[:len(luma)]
	copy(t.prev, luma)

	t.frames++
	return nil
}

func (t *sceneDetector) frameSeconds(f *astiav.Frame) float64 {
	pts := f.Pts()
	if pts == astiav.NoPtsValue {
		pts = t.frames
	}
	if t.timeBase.Den() == 0 {
		return 0
	}
	return float64(pts) * float64(t.timeBase.Num()) / float64(t.timeBase.Den())
}

func (t *sceneDetector) flush() error { return nil }

func (t *sceneDetector) finalize() error {
	report := SceneReport{
		SceneCuts:   t.cuts,
		TotalFrames: t.frames,
		Threshold:   t.threshold,
	}
	if report.SceneCuts == nil {
		report.SceneCuts = []SceneCut{}
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal scene report: %w", err)
	}
	if err := os.WriteFile(t.outputPath, b, 0o644); err != nil {
		return fmt.Errorf("%w: write scene report: %w", ErrIO, err)
	}
	return nil
}

// frameDelta is the mean absolute difference between two equally sized
// grayscale planes, normalized to [0, 1].
func frameDelta(prev, cur []byte) float64 {
	if len(prev) == 0 {
		return 0
	}
	var sum int64
	for i := range prev {
		d := int64(prev[i]) - int64(cur[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / (float64(len(prev)) * 255)
}
