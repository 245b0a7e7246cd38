package postprocess

import (
	"fmt"

	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
)

// SSDParams defines the parameters used for post processing SSD model
// outputs
type SSDParams struct {
	// FrameWidth is the pixel width of the display frame boxes are scaled to
	FrameWidth int
	// FrameHeight is the pixel height of the display frame boxes are scaled to
	FrameHeight int
	// Threshold is the minimum confidence score required for a detection to
	// be kept.  A score exactly equal to the threshold is retained
	Threshold float32
}

// SSD is the post processor for SSD style models whose output tensors
// already contain decoded bounding boxes.  The model performs its own
// suppression internally so no NMS is run on this path.
type SSD struct {
	// Params are the Model configuration parameters
	Params SSDParams

	labels *tflitedetect.LabelTable
	target tflitedetect.TargetFilter
}

// NewSSD returns an instance of the SSD post processor
func NewSSD(p SSDParams, labels *tflitedetect.LabelTable,
	target tflitedetect.TargetFilter) *SSD {

	return &SSD{
		Params: p,
		labels: labels,
		target: target,
	}
}

// DetectObjects takes the model outputs and unpacks them into detection
// results.  The four output tensors are normalized boxes in
// (ymin, xmin, ymax, xmax) order, class ids, confidence scores, and a scalar
// count of valid entries.
func (s *SSD) DetectObjects(outputs *tflitedetect.Outputs) ([]DetectResult, error) {

	if len(outputs.Output) != 4 {
		return nil, fmt.Errorf("got %d output tensors, SSD decoding requires 4: %w",
			len(outputs.Output), ErrDecode)
	}

	boxes := outputs.Output[0].BufFloat
	classIDs := outputs.Output[1].BufFloat
	scores := outputs.Output[2].BufFloat
	countBuf := outputs.Output[3].BufFloat

	if len(countBuf) < 1 {
		return nil, fmt.Errorf("valid count tensor is empty: %w", ErrDecode)
	}

	count := int(countBuf[0])

	if count < 0 || count > len(scores) || count > len(classIDs) ||
		len(boxes) < count*4 {
		return nil, fmt.Errorf("valid count %d exceeds tensor capacity: %w",
			count, ErrDecode)
	}

	group := make([]DetectResult, 0, count)

	for i := 0; i < count; i++ {

		classID := int(classIDs[i])
		prob := scores[i]

		// SSD models can emit class ids outside the labels file range,
		// drop those detections
		name, ok := s.labels.Name(classID)

		if !ok {
			continue
		}

		if !s.target.Accept(classID) {
			continue
		}

		if prob < s.Params.Threshold {
			continue
		}

		ymin := boxes[i*4+0]
		xmin := boxes[i*4+1]
		ymax := boxes[i*4+2]
		xmax := boxes[i*4+3]

		group = append(group, DetectResult{
			Class: classID,
			Name:  name,
			Box: BoxRect{
				Left:   clampInt(int(xmin*float32(s.Params.FrameWidth)), 0, s.Params.FrameWidth),
				Top:    clampInt(int(ymin*float32(s.Params.FrameHeight)), 0, s.Params.FrameHeight),
				Right:  clampInt(int(xmax*float32(s.Params.FrameWidth)), 0, s.Params.FrameWidth),
				Bottom: clampInt(int(ymax*float32(s.Params.FrameHeight)), 0, s.Params.FrameHeight),
			},
			Probability: prob,
		})
	}

	return group, nil
}
