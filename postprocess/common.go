package postprocess

import (
	"github.com/chewxy/math32"
)

// epsilon is the float32 machine epsilon, used in place of zero IoU
// denominators and as the floor of the IoU value itself
const epsilon = 1.1920929e-07

// calculateOverlap works out the Intersection over Union (IoU) value of two
// box dimensions.  The result is clamped to machine epsilon on the low side
// so a zero union never divides by zero and disjoint boxes never go negative
func calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1,
	xmax1, ymax1 float32) float32 {

	w := math32.Max(0.0, math32.Min(xmax0, xmax1)-math32.Max(xmin0, xmin1))
	h := math32.Max(0.0, math32.Min(ymax0, ymax1)-math32.Max(ymin0, ymin1))
	intersection := w * h

	area0 := (xmax0 - xmin0) * (ymax0 - ymin0)
	area1 := (xmax1 - xmin1) * (ymax1 - ymin1)

	union := area0 + area1 - intersection

	if union <= 0 {
		union = epsilon
	}

	iou := intersection / union

	if iou < epsilon {
		iou = epsilon
	}

	return iou
}

// clamp restricts val to the range min to max
func clamp(val, min, max float32) float32 {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}

// clampInt restricts val to the range min to max
func clampInt(val, min, max int) int {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}
