package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("block averages", func(t *testing.T) {
		mags := []float64{0, 1, 0, 1, 1, 1, 0.5, 0.5}
		got := summarize(mags, 4)
		assert.Equal(t, []float64{0.5, 0.5, 1, 0.5}, got)
	})

	t.Run("always exactly points elements", func(t *testing.T) {
		for _, n := range []int{1, 7, 100, 1001} {
			mags := make([]float64, n)
			got := summarize(mags, 64)
			require.Len(t, got, 64, "n=%d", n)
		}
	})

	t.Run("fewer samples than points zero-pads the tail", func(t *testing.T) {
		got := summarize([]float64{1, 1, 1}, 5)
		assert.Equal(t, []float64{1, 1, 1, 0, 0}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		got := summarize(nil, 3)
		assert.Equal(t, []float64{0, 0, 0}, got)
	})

	t.Run("uneven remainder folds into last reachable block", func(t *testing.T) {
		// 10 samples over 3 points: block size 3, last sample unused
		mags := []float64{3, 3, 3, 6, 6, 6, 9, 9, 9, 100}
		got := summarize(mags, 3)
		assert.Equal(t, []float64{3, 6, 9}, got)
	})
}
