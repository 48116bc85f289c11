package pipeline

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/asticode/go-astiav"
)

// WaveformJSON reduces the best audio stream of inputPath to a fixed number
// of amplitude points and writes them to outputPath as a JSON array. Each
// point is the mean absolute sample magnitude of one block, in [0, 1] for
// non-clipping sources.
func WaveformJSON(logger *slog.Logger, inputPath, outputPath string, points int) error {
	return Run(logger, []string{inputPath}, &waveform{
		outputPath: outputPath,
		points:     points,
	})
}

// waveform downmixes decoded audio to packed mono float and accumulates
// per-sample magnitudes, summarized into blocks once the stream is drained.
type waveform struct {
	outputPath string
	points     int

	res  *Resampler
	conv *astiav.Frame
	mags []float64
}

func (t *waveform) bind(in *Input) (*Decoder, error) {
	s, codec, err := in.BestStream(astiav.MediaTypeAudio)
	if err != nil {
		return nil, err
	}
	return NewDecoder(s, codec)
}

func (t *waveform) configure(o *Orchestrator, in *Input, dec *Decoder) error {
	res, err := NewResampler(astiav.ChannelLayoutMono, astiav.SampleFormatFlt, dec.CodecContext().SampleRate())
	if err != nil {
		return err
	}
	o.Defer(res.Close)
	t.res = res
	t.conv = astiav.AllocFrame()
	o.Defer(t.conv.Free)
	return nil
}

func (t *waveform) frame(f *astiav.Frame) error {
	t.conv.Unref()
	ok, err := t.res.Convert(f, t.conv)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return t.accumulate()
}

func (t *waveform) flush() error {
	for {
		t.conv.Unref()
		ok, err := t.res.Flush(t.conv)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := t.accumulate(); err != nil {
			return err
		}
	}
}

// accumulate appends the magnitude of every sample in the converted frame.
// Samples are packed little-endian float32 mono.
func (t *waveform) accumulate() error {
	b, err := t.conv.Data().Bytes(1)
	if err != nil {
		return fmt.Errorf("%w: read samples: %w", ErrDecode, err)
	}
	n := t.conv.NbSamples() * 4
	if n > len(b) {
		n = len(b)
	}
	for i := 0; i+4 <= n; i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[i:]))
		t.mags = append(t.mags, math.Abs(float64(v)))
	}
	return nil
}

func (t *waveform) finalize() error {
	b, err := json.Marshal(summarize(t.mags, t.points))
	if err != nil {
		return fmt.Errorf("pipeline: marshal waveform: %w", err)
	}
	if err := os.WriteFile(t.outputPath, b, 0o644); err != nil {
		return fmt.Errorf("%w: write waveform: %w", ErrIO, err)
	}
	return nil
}

// summarize reduces magnitudes to exactly points block averages. When the
// input has fewer samples than requested points, the tail stays zero.
func summarize(mags []float64, points int) []float64 {
	out := make([]float64, points)
	if len(mags) == 0 || points <= 0 {
		return out
	}

	block := len(mags) / points
	if block < 1 {
		block = 1
	}

	for i := 0; i < points; i++ {
		start := i * block
		if start >= len(mags) {
			break
		}
		end := start + block
		if end > len(mags) {
			end = len(mags)
		}
		var sum float64
		for _, v := range mags[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
