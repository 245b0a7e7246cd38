package postprocess

import (
	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
)

// SuppressorParams defines the parameters used by the Suppressor
type SuppressorParams struct {
	// NMSThreshold is the maximum allowed Intersection over Union (IoU)
	// between two boxes of the same class for both to be kept
	NMSThreshold float32
	// Threshold is the minimum confidence score, re-applied after NMS
	Threshold float32
	// FrameWidth is the pixel width of the display frame boxes are scaled to
	FrameWidth int
	// FrameHeight is the pixel height of the display frame boxes are scaled to
	FrameHeight int
	// ScaleWidth is the horizontal factor from model input space to frame space
	ScaleWidth float32
	// ScaleHeight is the vertical factor from model input space to frame space
	ScaleHeight float32
}

// DefaultNMSThreshold is the reference IoU cutoff used for suppression
const DefaultNMSThreshold = 0.213

// Suppressor applies per-class greedy Non-Maximum Suppression to a decoded
// candidate pool, then filters, labels, and scales the survivors into the
// final detection list
type Suppressor struct {
	// Params are the suppression configuration parameters
	Params SuppressorParams

	labels *tflitedetect.LabelTable
	target tflitedetect.TargetFilter
}

// NewSuppressor returns an instance of the Suppressor
func NewSuppressor(p SuppressorParams, labels *tflitedetect.LabelTable,
	target tflitedetect.TargetFilter) *Suppressor {

	return &Suppressor{
		Params: p,
		labels: labels,
		target: target,
	}
}

// Suppress runs NMS over the candidate pool and returns the surviving
// detections with class names resolved and boxes scaled from model input
// space to frame space
func (s *Suppressor) Suppress(candidates []Candidate) []DetectResult {

	best := nms(candidates, s.Params.NMSThreshold)

	group := make([]DetectResult, 0, len(best))

	for _, c := range best {

		// unknown class ids are dropped
		name, ok := s.labels.Name(c.Class)

		if !ok {
			continue
		}

		if !s.target.Accept(c.Class) {
			continue
		}

		// threshold was applied before NMS, re-checked here for parity with
		// the decode path contract
		if c.Score < s.Params.Threshold {
			continue
		}

		group = append(group, DetectResult{
			Class: c.Class,
			Name:  name,
			Box: BoxRect{
				Left:   clampInt(int(c.XMin*s.Params.ScaleWidth), 0, s.Params.FrameWidth),
				Top:    clampInt(int(c.YMin*s.Params.ScaleHeight), 0, s.Params.FrameHeight),
				Right:  clampInt(int(c.XMax*s.Params.ScaleWidth), 0, s.Params.FrameWidth),
				Bottom: clampInt(int(c.YMax*s.Params.ScaleHeight), 0, s.Params.FrameHeight),
			},
			Probability: c.Score,
		})
	}

	return group
}

// nms implements greedy per-class Non-Maximum Suppression.  Within each
// class the highest scoring candidate is kept and every remaining candidate
// overlapping it beyond the threshold has its score weighted to zero and is
// dropped.  The weight is binary, this is hard elimination and not soft-NMS
// score decay.  Cross-class overlap never suppresses.
func nms(candidates []Candidate, threshold float32) []Candidate {

	// partition candidate indexes by class, keeping first-seen class order
	// so results are deterministic
	classOrder := make([]int, 0)
	byClass := make(map[int][]Candidate)

	for _, c := range candidates {
		if _, ok := byClass[c.Class]; !ok {
			classOrder = append(classOrder, c.Class)
		}
		byClass[c.Class] = append(byClass[c.Class], c)
	}

	best := make([]Candidate, 0, len(classOrder))

	for _, classID := range classOrder {

		remaining := byClass[classID]

		for len(remaining) > 0 {

			// pick the highest scoring candidate.  On an exact tie the
			// first one found wins
			maxIdx := 0

			for j := 1; j < len(remaining); j++ {
				if remaining[j].Score > remaining[maxIdx].Score {
					maxIdx = j
				}
			}

			winner := remaining[maxIdx]
			best = append(best, winner)

			next := make([]Candidate, 0, len(remaining)-1)

			for j, c := range remaining {

				if j == maxIdx {
					continue
				}

				iou := calculateOverlap(winner.XMin, winner.YMin, winner.XMax,
					winner.YMax, c.XMin, c.YMin, c.XMax, c.YMax)

				if iou > threshold {
					continue
				}

				next = append(next, c)
			}

			remaining = next
		}
	}

	return best
}
