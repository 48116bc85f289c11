package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDelta(t *testing.T) {
	flat := func(n int, v byte) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = v
		}
		return b
	}

	t.Run("identical frames", func(t *testing.T) {
		assert.Zero(t, frameDelta(flat(64, 100), flat(64, 100)))
	})

	t.Run("black to white is maximal", func(t *testing.T) {
		assert.Equal(t, 1.0, frameDelta(flat(64, 0), flat(64, 255)))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := flat(64, 10), flat(64, 200)
		assert.Equal(t, frameDelta(a, b), frameDelta(b, a))
	})

	t.Run("half changed", func(t *testing.T) {
		a := flat(64, 0)
		b := flat(64, 0)
		for i := 0; i < 32; i++ {
			b[i] = 255
		}
		assert.InDelta(t, 0.5, frameDelta(a, b), 1e-9)
	})

	t.Run("empty planes", func(t *testing.T) {
		assert.Zero(t, frameDelta(nil, nil))
	})
}

func TestSceneReportJSON(t *testing.T) {
	report := SceneReport{
		SceneCuts: []SceneCut{
			{Frame: 42, Timestamp: 1.75, Difference: 0.41},
		},
		TotalFrames: 100,
		Threshold:   0.3,
	}

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"scene_cuts": [{"frame": 42, "timestamp": 1.75, "difference": 0.41}],
		"total_frames": 100,
		"threshold": 0.3
	}`, string(b))

	// every recorded difference is checkable against the threshold
	var decoded SceneReport
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, cut := range decoded.SceneCuts {
		assert.Greater(t, cut.Difference, decoded.Threshold)
	}
}
