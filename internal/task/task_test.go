package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_UnknownTask(t *testing.T) {
	_, err := Resolve("summon_demons", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestResolve_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, spec *Spec)
	}{
		{"transcode_h264_to_h265", func(t *testing.T, spec *Spec) {
			assert.Equal(t, KindTranscodeVideo, spec.Kind)
			require.NotNil(t, spec.Transcode)
			assert.Equal(t, "libx265", spec.Transcode.Codec)
			assert.Equal(t, int64(1_000_000), spec.Transcode.BitRate)
		}},
		{"resize_to_720p", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.Resize)
			assert.Equal(t, 720, spec.Resize.Height)
		}},
		{"extract_frames", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.Frames)
			assert.Equal(t, 10, spec.Frames.Count)
		}},
		{"create_animated_gif", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.Preview)
			assert.Equal(t, 5.0, spec.Preview.Duration)
			assert.Equal(t, 10, spec.Preview.FPS)
		}},
		{"detect_scene_cuts", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.SceneCuts)
			assert.Equal(t, 0.3, spec.SceneCuts.Threshold)
		}},
		{"extract_key_frame", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.KeyFrame)
			assert.Equal(t, 1.0, spec.KeyFrame.At)
		}},
		{"resample_audio", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.Resample)
			assert.Equal(t, 44100, spec.Resample.SampleRate)
		}},
		{"extract_audio_from_video", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.ExtractAudio)
			assert.Equal(t, int64(192_000), spec.ExtractAudio.BitRate)
		}},
		{"generate_waveform_json", func(t *testing.T, spec *Spec) {
			require.NotNil(t, spec.Waveform)
			assert.Equal(t, 1000, spec.Waveform.Samples)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Resolve(tt.name, nil)
			require.NoError(t, err)
			tt.check(t, spec)
		})
	}
}

func TestResolve_ThumbnailsAliasFrames(t *testing.T) {
	spec, err := Resolve("extract_thumbnails", map[string]any{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, KindExtractFrames, spec.Kind)
	assert.Equal(t, 3, spec.Frames.Count)
}

func TestResolve_InfoNamesRequireMatchingStream(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"get_video_info", "video"},
		{"get_audio_info", "audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Resolve(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, KindMediaInfo, spec.Kind)
			require.NotNil(t, spec.Info)
			assert.Equal(t, tt.want, spec.Info.RequiredStream)
		})
	}
}

func TestResolve_Watermark(t *testing.T) {
	spec, err := Resolve("apply_watermark", map[string]any{
		"watermark_path": "/assets/logo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, KindWatermark, spec.Kind)
	require.NotNil(t, spec.Watermark)
	assert.Equal(t, "/assets/logo.png", spec.Watermark.Path)
}

func TestResolve_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		task   string
		params map[string]any
	}{
		{"zero frame count", "extract_frames", map[string]any{"count": 0}},
		{"negative height", "resize_to_720p", map[string]any{"height": -1}},
		{"height of one rounds below codec minimum", "resize_to_720p", map[string]any{"height": 1}},
		{"threshold above one", "detect_scene_cuts", map[string]any{"threshold": 1.5}},
		{"zero threshold", "detect_scene_cuts", map[string]any{"threshold": 0.0}},
		{"bad bitrate string", "transcode_h264_to_h265", map[string]any{"bitrate": "fast"}},
		{"mistyped count", "extract_frames", map[string]any{"count": "ten"}},
		{"empty mix input list", "mix_audio_tracks", map[string]any{"input_files": []string{}}},
		{"missing mix input list", "mix_audio_tracks", nil},
		{"bad timestamp", "extract_key_frame", map[string]any{"timestamp": "1:2:3:4"}},
		{"zero waveform samples", "generate_waveform_json", map[string]any{"samples": 0}},
		{"missing watermark path", "apply_watermark", nil},
		{"empty watermark path", "apply_watermark", map[string]any{"watermark_path": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.task, tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestResolve_MixInputFiles(t *testing.T) {
	spec, err := Resolve("mix_audio_tracks", map[string]any{
		"input_files": []string{"a.mp3", "b.mp3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, spec.Mix.InputFiles)
}

func TestParseBitRate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1M", 1_000_000, false},
		{"2m", 2_000_000, false},
		{"192k", 192_000, false},
		{"192K", 192_000, false},
		{"128000", 128_000, false},
		{" 5M ", 5_000_000, false},
		{"", 0, true},
		{"M", 0, true},
		{"-1k", 0, true},
		{"0", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBitRate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidBitRate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"5", 5, false},
		{"2.5", 2.5, false},
		{"01:30", 90, false},
		{"01:00:01", 3601, false},
		{"00:00:01", 1, false},
		{"", 0, true},
		{"a:b", 0, true},
		{"1:2:3:4", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNames_SortedAndClosed(t *testing.T) {
	names := Names()
	require.Len(t, names, 14)
	assert.IsType(t, []string{}, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	for _, name := range names {
		_, ok := wireNames[name]
		assert.True(t, ok)
	}
}
