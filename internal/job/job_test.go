package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	t.Run("complete payload", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{
			"task": "resize_to_720p",
			"input_path": "/in/clip.mp4",
			"output_path": "/out/clip_720p.mp4",
			"params": {"height": 480}
		}`))
		require.NoError(t, err)
		assert.Equal(t, "resize_to_720p", p.Task)
		assert.Equal(t, "/in/clip.mp4", p.InputPath)
		assert.Equal(t, "/out/clip_720p.mp4", p.OutputPath)
		assert.Equal(t, float64(480), p.Params["height"])
	})

	t.Run("params optional", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"task":"get_video_info","input_path":"a","output_path":"b"}`))
		require.NoError(t, err)
		assert.Nil(t, p.Params)
	})

	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing task", data: `{"input_path":"a","output_path":"b"}`},
		{name: "missing input_path", data: `{"task":"t","output_path":"b"}`},
		{name: "missing output_path", data: `{"task":"t","input_path":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestFailure(t *testing.T) {
	res := Failure(assert.AnError)
	assert.False(t, res.Success)
	assert.Equal(t, assert.AnError.Error(), res.Message)
	assert.Empty(t, res.OutputPath)
	assert.Nil(t, res.Metrics)
}
