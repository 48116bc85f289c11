package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/framemill/framemill/internal/pipeline"
	"github.com/framemill/framemill/internal/storage"
	"github.com/framemill/framemill/internal/task"
)

// Runner executes one job at a time against the pipeline.
type Runner struct {
	logger *slog.Logger
	store  storage.Storage
}

// NewRunner creates a Runner. The store handles scratch space and the
// optional artifact upload.
func NewRunner(logger *slog.Logger, store storage.Storage) *Runner {
	return &Runner{logger: logger, store: store}
}

// Execute resolves and runs one job. It never panics outward; every failure
// becomes a Result with Success false. The pipeline itself is not
// cancellable mid-run, so ctx gates only the start, the upload and the
// cleanup of partial outputs.
func (r *Runner) Execute(ctx context.Context, p *Payload) *Result {
	spec, err := task.Resolve(p.Task, p.Params)
	if err != nil {
		return Failure(err)
	}

	if err := ctx.Err(); err != nil {
		return Failure(fmt.Errorf("job cancelled before start: %w", err))
	}

	job := *p
	job.OutputPath = resolveOutput(r.store.ScratchDir(), p.OutputPath)

	r.logger.Info("job accepted",
		slog.String("task", p.Task),
		slog.String("kind", string(spec.Kind)),
		slog.String("input", job.InputPath),
		slog.String("output", job.OutputPath),
	)

	start := time.Now()
	message, outputs, err := r.run(&job, spec)
	if err != nil {
		if cerr := r.store.Cleanup(ctx, outputs); cerr != nil {
			r.logger.Warn("partial output cleanup failed", slog.String("error", cerr.Error()))
		}
		return Failure(err)
	}

	res := &Result{
		Success:    true,
		Message:    message,
		OutputPath: job.OutputPath,
		Metrics: &Metrics{
			DurationMs:      time.Since(start).Milliseconds(),
			InputSizeBytes:  fileSize(job.InputPath),
			OutputSizeBytes: totalSize(outputs),
		},
	}
	res.OutputURL = r.uploadOutputs(ctx, outputs)

	r.logger.Info("job finished",
		slog.String("task", p.Task),
		slog.Int64("duration_ms", res.Metrics.DurationMs),
		slog.Int64("output_bytes", res.Metrics.OutputSizeBytes),
	)

	return res
}

// run dispatches the resolved spec to its pipeline variant and returns the
// success message plus every file the task produced. On error the returned
// paths are the partial outputs to clean up.
func (r *Runner) run(p *Payload, spec *task.Spec) (string, []string, error) {
	outputs := []string{p.OutputPath}

	switch spec.Kind {
	case task.KindTranscodeVideo:
		err := pipeline.Transcode(r.logger, p.InputPath, p.OutputPath, spec.Transcode.Codec, spec.Transcode.BitRate)
		return fmt.Sprintf("transcoded with %s", spec.Transcode.Codec), outputs, err

	case task.KindResizeVideo:
		err := pipeline.Resize(r.logger, p.InputPath, p.OutputPath, spec.Resize.Height)
		return fmt.Sprintf("resized to %dp", spec.Resize.Height), outputs, err

	case task.KindExtractFrames:
		written, err := pipeline.ExtractFrames(r.logger, p.InputPath, p.OutputPath, int64(spec.Frames.Count))
		return fmt.Sprintf("extracted %d frames", len(written)), written, err

	case task.KindAnimatedPreview:
		err := pipeline.AnimatedPreview(r.logger, p.InputPath, p.OutputPath, spec.Preview.Duration, spec.Preview.FPS)
		return fmt.Sprintf("created %.1fs animated preview", spec.Preview.Duration), outputs, err

	case task.KindSceneCuts:
		cuts, err := pipeline.DetectSceneCuts(r.logger, p.InputPath, p.OutputPath, spec.SceneCuts.Threshold)
		return fmt.Sprintf("detected %d scene cuts", cuts), outputs, err

	case task.KindKeyFrame:
		err := pipeline.ExtractKeyFrame(r.logger, p.InputPath, p.OutputPath, spec.KeyFrame.At)
		return "extracted key frame", outputs, err

	case task.KindMediaInfo:
		info, err := pipeline.Probe(r.logger, p.InputPath, p.OutputPath, requiredMedia(spec.Info.RequiredStream))
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("probed %d streams", len(info.Streams)), outputs, nil

	case task.KindResampleAudio:
		err := pipeline.ResampleAudio(r.logger, p.InputPath, p.OutputPath, spec.Resample.SampleRate)
		return fmt.Sprintf("resampled to %d Hz", spec.Resample.SampleRate), outputs, err

	case task.KindExtractAudio:
		err := pipeline.ExtractAudio(r.logger, p.InputPath, p.OutputPath, spec.ExtractAudio.BitRate)
		return "extracted audio", outputs, err

	case task.KindWaveform:
		err := pipeline.WaveformJSON(r.logger, p.InputPath, p.OutputPath, spec.Waveform.Samples)
		return fmt.Sprintf("generated waveform with %d points", spec.Waveform.Samples), outputs, err

	case task.KindMixAudio:
		inputs := append([]string{p.InputPath}, spec.Mix.InputFiles...)
		err := pipeline.MixAudio(r.logger, inputs, p.OutputPath)
		return fmt.Sprintf("mixed %d audio tracks", len(inputs)), outputs, err

	case task.KindWatermark:
		err := pipeline.ApplyWatermark(r.logger, p.InputPath, p.OutputPath, spec.Watermark.Path)
		return "applied watermark", outputs, err

	default:
		return "", nil, fmt.Errorf("%w: %q", task.ErrUnknownTask, spec.Kind)
	}
}

// resolveOutput places relative output paths under the scratch directory.
// Absolute paths are taken as given.
func resolveOutput(scratchDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(scratchDir, path)
}

// uploadOutputs pushes every produced file to the object store and returns
// the URL of the first one, which is the job's primary output. A store
// without upload support short-circuits after the first attempt.
func (r *Runner) uploadOutputs(ctx context.Context, outputs []string) string {
	var first string
	for _, out := range outputs {
		url, err := r.store.Upload(ctx, out, filepath.Base(out))
		if err != nil {
			if errors.Is(err, storage.ErrUploadNotConfigured) {
				return first
			}
			r.logger.Warn("artifact upload failed",
				slog.String("path", out),
				slog.String("error", err.Error()),
			)
			continue
		}
		if first == "" {
			first = url
		}
	}
	return first
}

// requiredMedia maps a task stream requirement to its libav media type.
func requiredMedia(name string) astiav.MediaType {
	switch name {
	case "video":
		return astiav.MediaTypeVideo
	case "audio":
		return astiav.MediaTypeAudio
	}
	return astiav.MediaTypeUnknown
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func totalSize(paths []string) int64 {
	var total int64
	for _, p := range paths {
		total += fileSize(p)
	}
	return total
}
