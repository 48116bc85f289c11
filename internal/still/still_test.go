package still

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	return img
}

func TestWriteFileFormats(t *testing.T) {
	dir := t.TempDir()

	// magic bytes per format
	tests := []struct {
		name  string
		magic []byte
	}{
		{name: "out.jpg", magic: []byte{0xff, 0xd8}},
		{name: "out.png", magic: []byte{0x89, 'P', 'N', 'G'}},
		{name: "out.webp", magic: []byte{'R', 'I', 'F', 'F'}},
		{name: "out.bin", magic: []byte{0xff, 0xd8}}, // unknown ext falls back to jpeg
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, WriteFile(path, testImage()))

			b, err := os.ReadFile(path)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(b), len(tt.magic))
			assert.Equal(t, tt.magic, b[:len(tt.magic)])
		})
	}
}

func TestWriteFileCreateError(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.jpg"), testImage())
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("round trip", func(t *testing.T) {
		for _, name := range []string{"wm.png", "wm.jpg", "wm.webp"} {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, testImage()))

			img, err := ReadFile(path)
			require.NoError(t, err, name)
			assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds(), name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "nope.png"))
		require.Error(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(dir, "junk.png")
		require.NoError(t, os.WriteFile(path, []byte("not pixels"), 0o644))
		_, err := ReadFile(path)
		require.Error(t, err)
	})
}

func TestSequencePath(t *testing.T) {
	assert.Equal(t, "shots_0001.jpg", SequencePath("shots.jpg", 1))
	assert.Equal(t, "/tmp/a/frame_0042.png", SequencePath("/tmp/a/frame.png", 42))
	assert.Equal(t, "noext_0007", SequencePath("noext", 7))
}
