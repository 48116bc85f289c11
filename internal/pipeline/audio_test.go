package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextReadSize(t *testing.T) {
	const aacFrame = 1024

	t.Run("never exceeds the encoder frame size", func(t *testing.T) {
		// upsampling 44.1kHz to 48kHz turns 1024-sample decoded frames into
		// ~1115-sample resampled ones; only full encoder frames may leave
		// the fifo mid-stream.
		buffered := 0
		var sent []int
		for i := 0; i < 10; i++ {
			buffered += 1115
			for {
				n := nextReadSize(buffered, aacFrame, false)
				if n == 0 {
					break
				}
				sent = append(sent, n)
				buffered -= n
			}
		}
		for _, n := range sent {
			assert.Equal(t, aacFrame, n)
		}
		assert.Less(t, buffered, aacFrame)
	})

	t.Run("short frame held back until end of stream", func(t *testing.T) {
		assert.Zero(t, nextReadSize(91, aacFrame, false))
		assert.Equal(t, 91, nextReadSize(91, aacFrame, true))
	})

	t.Run("undersized decoder frames accumulate", func(t *testing.T) {
		// AAC to MP3: 1024-sample input frames against an 1152-sample
		// encoder frame; the first pop happens only after the second write.
		assert.Zero(t, nextReadSize(1024, 1152, false))
		assert.Equal(t, 1152, nextReadSize(2048, 1152, false))
	})

	t.Run("empty fifo", func(t *testing.T) {
		assert.Zero(t, nextReadSize(0, aacFrame, false))
		assert.Zero(t, nextReadSize(0, aacFrame, true))
	})

	t.Run("exact fit drains completely", func(t *testing.T) {
		assert.Equal(t, aacFrame, nextReadSize(aacFrame, aacFrame, false))
		assert.Zero(t, nextReadSize(0, aacFrame, true))
	})
}
