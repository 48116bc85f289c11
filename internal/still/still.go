// Package still writes single images to disk, picking the codec from the
// file extension.
package still

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
)

const jpegQuality = 90

// ReadFile decodes the image at path. The format is sniffed from the
// content; jpeg, png and webp are supported.
func ReadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("still: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("still: decode %q: %w", path, err)
	}
	return img, nil
}

// WriteFile encodes img into path. The format follows the extension: .png
// and .webp get their own codecs, everything else is written as JPEG.
func WriteFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("still: create %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	case ".webp":
		err = webp.Encode(f, img, &webp.Options{Quality: jpegQuality})
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("still: encode %q: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("still: close %q: %w", path, err)
	}
	return nil
}

// SequencePath names the n-th image of a frame sequence derived from base,
// e.g. shots.jpg -> shots_0001.jpg.
func SequencePath(base string, n int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(base, ext), n, ext)
}
