package pipeline

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// Scaler converts video frames to a target geometry and pixel format fixed
// at construction. Each call is stateless: one input frame yields exactly
// one output frame.
type Scaler struct {
	sc *astiav.SoftwareScaleContext
}

// NewScaler creates a scaler. Callers are expected to have applied
// even-dimension rounding to the destination geometry already (see
// TargetGeometry).
func NewScaler(srcWidth, srcHeight int, srcFormat astiav.PixelFormat, dstWidth, dstHeight int, dstFormat astiav.PixelFormat) (*Scaler, error) {
	sc, err := astiav.CreateSoftwareScaleContext(
		srcWidth, srcHeight, srcFormat,
		dstWidth, dstHeight, dstFormat,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create scaler %dx%d %s -> %dx%d %s: %w",
			ErrConfiguration, srcWidth, srcHeight, srcFormat, dstWidth, dstHeight, dstFormat, err)
	}
	return &Scaler{sc: sc}, nil
}

// Scale converts src into dst and carries the presentation timestamp over.
// dst must be Unref'd by the caller between iterations.
func (s *Scaler) Scale(src, dst *astiav.Frame) error {
	if err := s.sc.ScaleFrame(src, dst); err != nil {
		return fmt.Errorf("pipeline: scale frame: %w", err)
	}
	dst.SetPts(src.Pts())
	return nil
}

// Close releases the scale context.
func (s *Scaler) Close() {
	s.sc.Free()
}

// Resampler converts audio frames to a target sample rate, channel layout
// and sample format fixed at construction. It is stateful: rate conversion
// carries a fractional sample remainder between calls, so it must be flushed
// at end-of-stream to emit the final partial frame. It also assigns output
// frames contiguous presentation timestamps in the 1/rate time base.
type Resampler struct {
	rc     *astiav.SoftwareResampleContext
	layout astiav.ChannelLayout
	format astiav.SampleFormat
	rate   int
}

// NewResampler creates a resampler targeting the given layout, format and
// rate. The source configuration is taken from the first converted frame.
func NewResampler(layout astiav.ChannelLayout, format astiav.SampleFormat, rate int) (*Resampler, error) {
	rc := astiav.AllocSoftwareResampleContext()
	if rc == nil {
		return nil, fmt.Errorf("%w: alloc resample context", ErrConfiguration)
	}
	return &Resampler{rc: rc, layout: layout, format: format, rate: rate}, nil
}

// Convert resamples src into dst and reports whether dst now holds samples;
// a short input can yield none while the internal remainder accumulates.
// dst must be Unref'd by the caller between iterations. Timestamping the
// output is the caller's job.
func (r *Resampler) Convert(src, dst *astiav.Frame) (bool, error) {
	dst.SetChannelLayout(r.layout)
	dst.SetSampleFormat(r.format)
	dst.SetSampleRate(r.rate)

	if err := r.rc.ConvertFrame(src, dst); err != nil {
		return false, fmt.Errorf("pipeline: resample frame: %w", err)
	}
	return dst.NbSamples() > 0, nil
}

// Flush emits buffered carry-over into dst. Call repeatedly until it reports
// false.
func (r *Resampler) Flush(dst *astiav.Frame) (bool, error) {
	return r.Convert(nil, dst)
}

// Close releases the resample context.
func (r *Resampler) Close() {
	r.rc.Free()
}
