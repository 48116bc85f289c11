// Package task maps job task names to a closed set of task kinds, each with
// a typed, validated parameter record. Unknown task names and bad parameters
// are rejected here, before any pipeline state is entered.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Static errors for task resolution.
var (
	// ErrUnknownTask is returned when the job names a task that is not in
	// the closed task set.
	ErrUnknownTask = errors.New("task: unknown task")
	// ErrInvalidParams is returned when a job parameter is missing, has the
	// wrong type, or fails validation.
	ErrInvalidParams = errors.New("task: invalid parameters")
)

// Kind identifies one task variant of the native pipeline.
type Kind string

const (
	// KindTranscodeVideo re-encodes the best video stream with a target codec and bit rate.
	KindTranscodeVideo Kind = "transcode_video"
	// KindResizeVideo scales the best video stream to a target height, preserving aspect ratio.
	KindResizeVideo Kind = "resize_video"
	// KindExtractFrames samples N frames at a fixed interval and writes them as still images.
	KindExtractFrames Kind = "extract_frames"
	// KindAnimatedPreview encodes a short, capped-length animated GIF preview.
	KindAnimatedPreview Kind = "animated_preview"
	// KindSceneCuts records frames whose difference to the previous frame exceeds a threshold.
	KindSceneCuts Kind = "scene_cuts"
	// KindKeyFrame seeks near a timestamp and writes the first decodable frame as a still image.
	KindKeyFrame Kind = "key_frame"
	// KindMediaInfo probes the container and writes a stream report as JSON.
	KindMediaInfo Kind = "media_info"
	// KindResampleAudio converts the best audio stream to a target sample rate.
	KindResampleAudio Kind = "resample_audio"
	// KindExtractAudio re-encodes the best audio stream into an audio-only output.
	KindExtractAudio Kind = "extract_audio"
	// KindWaveform reduces the decoded audio to a fixed-length magnitude summary.
	KindWaveform Kind = "waveform"
	// KindMixAudio drains several audio sources through one shared encoder.
	// This concatenates the sources rather than summing aligned samples.
	KindMixAudio Kind = "mix_audio"
	// KindWatermark composites an image onto every video frame and re-encodes.
	KindWatermark Kind = "watermark"
)

// Spec is the resolved, validated form of a job request. Kind selects the
// variant; exactly one of the parameter fields is non-nil, matching Kind.
type Spec struct {
	Kind Kind

	Transcode    *TranscodeParams
	Resize       *ResizeParams
	Frames       *FramesParams
	Preview      *PreviewParams
	SceneCuts    *SceneCutsParams
	KeyFrame     *KeyFrameParams
	Info         *InfoParams
	Resample     *ResampleParams
	ExtractAudio *ExtractAudioParams
	Waveform     *WaveformParams
	Mix          *MixParams
	Watermark    *WatermarkParams
}

// TranscodeParams configure KindTranscodeVideo.
type TranscodeParams struct {
	// Codec is the encoder name, e.g. "libx265".
	Codec string `validate:"required"`
	// BitRate is the target bit rate in bits per second.
	BitRate int64 `validate:"min=1"`
}

// ResizeParams configure KindResizeVideo.
type ResizeParams struct {
	// Height is the target height; the width follows the source aspect
	// ratio and both are rounded down to even values.
	Height int `validate:"min=2,max=8192"`
}

// FramesParams configure KindExtractFrames.
type FramesParams struct {
	// Count is the number of frames to export.
	Count int `validate:"min=1,max=10000"`
}

// PreviewParams configure KindAnimatedPreview.
type PreviewParams struct {
	// Duration is the preview length in seconds.
	Duration float64 `validate:"gt=0"`
	// FPS is the preview frame rate.
	FPS int `validate:"min=1,max=60"`
}

// SceneCutsParams configure KindSceneCuts.
type SceneCutsParams struct {
	// Threshold is the normalized frame-difference metric above which a cut
	// is recorded, in (0,1].
	Threshold float64 `validate:"gt=0,lte=1"`
}

// KeyFrameParams configure KindKeyFrame.
type KeyFrameParams struct {
	// At is the seek position in seconds.
	At float64 `validate:"gte=0"`
}

// InfoParams configure KindMediaInfo.
type InfoParams struct {
	// RequiredStream names a media type that must exist in the container for
	// the probe to succeed. Empty means no requirement.
	RequiredStream string `validate:"omitempty,oneof=video audio"`
}

// ResampleParams configure KindResampleAudio.
type ResampleParams struct {
	// SampleRate is the target rate in Hz.
	SampleRate int `validate:"min=1000,max=384000"`
}

// ExtractAudioParams configure KindExtractAudio.
type ExtractAudioParams struct {
	// BitRate is the target bit rate in bits per second.
	BitRate int64 `validate:"min=1"`
}

// WaveformParams configure KindWaveform.
type WaveformParams struct {
	// Samples is the exact length of the produced summary.
	Samples int `validate:"min=1,max=1000000"`
}

// MixParams configure KindMixAudio.
type MixParams struct {
	// InputFiles are the additional sources appended after the job's
	// input path.
	InputFiles []string `validate:"min=1,dive,required"`
}

// WatermarkParams configure KindWatermark.
type WatermarkParams struct {
	// Path is the watermark image file. There is no default; jobs must
	// supply it.
	Path string `validate:"required"`
}

var validate = validator.New()

// wire names accepted on the job envelope, kept verbatim from the queue
// protocol. Several names resolve to the same kind.
var wireNames = map[string]Kind{
	"transcode_h264_to_h265":   KindTranscodeVideo,
	"resize_to_720p":           KindResizeVideo,
	"extract_frames":           KindExtractFrames,
	"extract_thumbnails":       KindExtractFrames,
	"create_animated_gif":      KindAnimatedPreview,
	"detect_scene_cuts":        KindSceneCuts,
	"extract_key_frame":        KindKeyFrame,
	"get_video_info":           KindMediaInfo,
	"get_audio_info":           KindMediaInfo,
	"resample_audio":           KindResampleAudio,
	"extract_audio_from_video": KindExtractAudio,
	"generate_waveform_json":   KindWaveform,
	"mix_audio_tracks":         KindMixAudio,
	"apply_watermark":          KindWatermark,
}

// requiredStreams lists the media type each probing wire name asserts on.
var requiredStreams = map[string]string{
	"get_video_info": "video",
	"get_audio_info": "audio",
}

// Names returns the accepted wire task names in sorted order.
func Names() []string {
	names := make([]string, 0, len(wireNames))
	for name := range wireNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a wire task name and its raw parameter mapping to a Spec.
// It returns ErrUnknownTask for names outside the closed set and
// ErrInvalidParams when a parameter is missing or out of range.
func Resolve(name string, params map[string]any) (*Spec, error) {
	kind, ok := wireNames[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	spec := &Spec{Kind: kind}

	var err error
	switch kind {
	case KindTranscodeVideo:
		spec.Transcode, err = resolveTranscode(params)
	case KindResizeVideo:
		spec.Resize, err = resolveResize(params)
	case KindExtractFrames:
		spec.Frames, err = resolveFrames(params)
	case KindAnimatedPreview:
		spec.Preview, err = resolvePreview(params)
	case KindSceneCuts:
		spec.SceneCuts, err = resolveSceneCuts(params)
	case KindKeyFrame:
		spec.KeyFrame, err = resolveKeyFrame(params)
	case KindMediaInfo:
		spec.Info, err = checked(&InfoParams{RequiredStream: requiredStreams[name]})
	case KindResampleAudio:
		spec.Resample, err = resolveResample(params)
	case KindExtractAudio:
		spec.ExtractAudio, err = resolveExtractAudio(params)
	case KindWaveform:
		spec.Waveform, err = resolveWaveform(params)
	case KindMixAudio:
		spec.Mix, err = resolveMix(params)
	case KindWatermark:
		spec.Watermark, err = resolveWatermark(params)
	}
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func resolveTranscode(params map[string]any) (*TranscodeParams, error) {
	wire := struct {
		Codec   string `json:"codec"`
		Bitrate string `json:"bitrate"`
	}{Codec: "libx265", Bitrate: "1M"}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}

	bps, err := ParseBitRate(wire.Bitrate)
	if err != nil {
		return nil, fmt.Errorf("%w: bitrate: %w", ErrInvalidParams, err)
	}

	return checked(&TranscodeParams{Codec: wire.Codec, BitRate: bps})
}

func resolveResize(params map[string]any) (*ResizeParams, error) {
	wire := struct {
		Height int `json:"height"`
	}{Height: 720}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&ResizeParams{Height: wire.Height})
}

func resolveFrames(params map[string]any) (*FramesParams, error) {
	wire := struct {
		Count int `json:"count"`
	}{Count: 10}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&FramesParams{Count: wire.Count})
}

func resolvePreview(params map[string]any) (*PreviewParams, error) {
	wire := struct {
		Duration float64 `json:"duration"`
		FPS      int     `json:"fps"`
	}{Duration: 5.0, FPS: 10}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&PreviewParams{Duration: wire.Duration, FPS: wire.FPS})
}

func resolveSceneCuts(params map[string]any) (*SceneCutsParams, error) {
	wire := struct {
		Threshold float64 `json:"threshold"`
	}{Threshold: 0.3}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&SceneCutsParams{Threshold: wire.Threshold})
}

func resolveKeyFrame(params map[string]any) (*KeyFrameParams, error) {
	wire := struct {
		Timestamp string `json:"timestamp"`
	}{Timestamp: "00:00:01"}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}

	at, err := ParseTimestamp(wire.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %w", ErrInvalidParams, err)
	}

	return checked(&KeyFrameParams{At: at})
}

func resolveResample(params map[string]any) (*ResampleParams, error) {
	wire := struct {
		SampleRate int `json:"sample_rate"`
	}{SampleRate: 44100}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&ResampleParams{SampleRate: wire.SampleRate})
}

func resolveExtractAudio(params map[string]any) (*ExtractAudioParams, error) {
	wire := struct {
		Bitrate string `json:"bitrate"`
	}{Bitrate: "192k"}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}

	bps, err := ParseBitRate(wire.Bitrate)
	if err != nil {
		return nil, fmt.Errorf("%w: bitrate: %w", ErrInvalidParams, err)
	}

	return checked(&ExtractAudioParams{BitRate: bps})
}

func resolveWaveform(params map[string]any) (*WaveformParams, error) {
	wire := struct {
		Samples int `json:"samples"`
	}{Samples: 1000}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&WaveformParams{Samples: wire.Samples})
}

func resolveMix(params map[string]any) (*MixParams, error) {
	wire := struct {
		InputFiles []string `json:"input_files"`
	}{}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&MixParams{InputFiles: wire.InputFiles})
}

func resolveWatermark(params map[string]any) (*WatermarkParams, error) {
	wire := struct {
		Path string `json:"watermark_path"`
	}{}
	if err := decode(params, &wire); err != nil {
		return nil, err
	}
	return checked(&WatermarkParams{Path: wire.Path})
}

// decode fills dst (pre-loaded with defaults) from the raw parameter mapping
// via a JSON round trip, so absent keys keep their defaults and mistyped
// values surface as an error rather than a silent zero.
func decode(params map[string]any, dst any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// checked runs struct validation and tags failures with ErrInvalidParams.
func checked[T any](p *T) (*T, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return p, nil
}
