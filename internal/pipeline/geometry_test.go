package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetGeometry(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		target     int
		wantW      int
		wantH      int
	}{
		{name: "1080p to 720p", srcW: 1920, srcH: 1080, target: 720, wantW: 1280, wantH: 720},
		{name: "4k to 720p", srcW: 3840, srcH: 2160, target: 720, wantW: 1280, wantH: 720},
		{name: "odd width rounds down to even", srcW: 1280, srcH: 1024, target: 720, wantW: 900, wantH: 720},
		{name: "portrait", srcW: 1080, srcH: 1920, target: 720, wantW: 404, wantH: 720},
		{name: "odd target height rounds down", srcW: 1920, srcH: 1080, target: 721, wantW: 1282, wantH: 720},
		{name: "upscale", srcW: 640, srcH: 360, target: 720, wantW: 1280, wantH: 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetGeometry(tt.srcW, tt.srcH, tt.target)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestSampleInterval(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		requested int64
		want      int64
	}{
		{name: "300 frames 10 requested", total: 300, requested: 10, want: 30},
		{name: "fewer frames than requested", total: 5, requested: 10, want: 1},
		{name: "exact", total: 10, requested: 10, want: 1},
		{name: "unknown frame count", total: 0, requested: 10, want: 1},
		{name: "truncating division", total: 299, requested: 10, want: 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SampleInterval(tt.total, tt.requested))
		})
	}
}
