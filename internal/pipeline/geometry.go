package pipeline

import "math"

// TargetGeometry computes the output dimensions for a height-targeted
// resize: the width follows the source aspect ratio and both dimensions are
// rounded down to the nearest even value, which most encoders require.
func TargetGeometry(srcWidth, srcHeight, targetHeight int) (width, height int) {
	if srcWidth <= 0 || srcHeight <= 0 || targetHeight <= 0 {
		return 0, 0
	}

	aspect := float64(srcWidth) / float64(srcHeight)
	width = int(math.Round(float64(targetHeight) * aspect))

	return evenFloor(width), evenFloor(targetHeight)
}

// evenFloor rounds v down to the nearest even value.
func evenFloor(v int) int {
	return v - v%2
}

// SampleInterval computes the frame-sampling stride for extracting requested
// frames from a source of totalFrames: total/requested, never below 1.
func SampleInterval(totalFrames, requested int64) int64 {
	if requested <= 0 {
		return 1
	}
	interval := totalFrames / requested
	if interval < 1 {
		interval = 1
	}
	return interval
}
