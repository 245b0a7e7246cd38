package postprocess

import (
	"fmt"

	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
	"github.com/chewxy/math32"
)

// YOLOScale defines the anchor configuration for one detection scale of a
// YOLO model
type YOLOScale struct {
	// Anchors are the anchor box width/height pairs for this scale, as
	// flattened (width, height) values
	Anchors []int
	// XYScale is the grid sensitivity correction factor applied to the raw
	// center offsets.  Plain anchor grids use 1.0, scaled variants use a
	// value above 1.0 that must match the value used at training time
	XYScale float32
}

// YOLOParams defines the struct containing the YOLO parameters to use for
// post processing operations.  Selecting parameters that do not match the
// loaded model's weights silently produces garbage detections, this is a
// configuration contract that cannot be verified at runtime.
type YOLOParams struct {
	// Scales holds one anchor set per output tensor, ordered the same as the
	// model's output tensors
	Scales []YOLOScale
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
}

// YOLOv3TinyCOCOParams returns an instance of YOLOParams configured for a
// YOLOv3-tiny model trained on the COCO dataset with 80 object classes
func YOLOv3TinyCOCOParams() YOLOParams {
	return YOLOParams{
		Scales: []YOLOScale{
			{Anchors: []int{10, 14, 23, 27, 37, 58}, XYScale: 1.0},
			{Anchors: []int{81, 82, 135, 169, 344, 319}, XYScale: 1.0},
		},
		ObjectClassNum: 80,
	}
}

// YOLOv3COCOParams returns an instance of YOLOParams configured for a YOLOv3
// model trained on the COCO dataset with 80 object classes
func YOLOv3COCOParams() YOLOParams {
	return YOLOParams{
		Scales: []YOLOScale{
			{Anchors: []int{10, 13, 16, 30, 33, 23}, XYScale: 1.0},
			{Anchors: []int{30, 61, 62, 45, 59, 119}, XYScale: 1.0},
			{Anchors: []int{116, 90, 156, 198, 373, 326}, XYScale: 1.0},
		},
		ObjectClassNum: 80,
	}
}

// YOLOv4COCOParams returns an instance of YOLOParams configured for a YOLOv4
// model trained on the COCO dataset with 80 object classes.  YOLOv4 uses
// scaled grids so each scale carries an XYScale above 1.0
func YOLOv4COCOParams() YOLOParams {
	return YOLOParams{
		Scales: []YOLOScale{
			{Anchors: []int{12, 16, 19, 36, 40, 28}, XYScale: 1.2},
			{Anchors: []int{36, 75, 76, 55, 72, 146}, XYScale: 1.1},
			{Anchors: []int{142, 110, 192, 243, 459, 401}, XYScale: 1.05},
		},
		ObjectClassNum: 80,
	}
}

// YOLO is the post processor for YOLO models whose output tensors are raw
// per grid cell predictions across multiple feature map scales
type YOLO struct {
	// Params are the Model configuration parameters
	Params YOLOParams
	// BoxThreshold is the minimum score required for a candidate box to
	// enter the suppression pool.  A score equal to the threshold is
	// discarded on this path
	BoxThreshold float32
}

// NewYOLO returns an instance of the YOLO box decoder
func NewYOLO(p YOLOParams, boxThreshold float32) *YOLO {
	return &YOLO{
		Params:       p,
		BoxThreshold: boxThreshold,
	}
}

// DecodeCandidates reconstructs absolute pixel boxes in model input
// coordinates from the raw grid predictions of every scale and returns the
// combined candidate pool for suppression
func (y *YOLO) DecodeCandidates(outputs *tflitedetect.Outputs) ([]Candidate, error) {

	if len(outputs.Output) != len(y.Params.Scales) {
		return nil, fmt.Errorf("got %d output tensors, YOLO decoding requires %d: %w",
			len(outputs.Output), len(y.Params.Scales), ErrDecode)
	}

	in := outputs.InputAttributes()

	candidates := make([]Candidate, 0)

	for i, scale := range y.Params.Scales {

		cands, err := y.decodeScale(&outputs.Output[i], scale, in)

		if err != nil {
			return nil, err
		}

		candidates = append(candidates, cands...)
	}

	return candidates, nil
}

// decodeScale decodes all grid cells of a single detection scale
func (y *YOLO) decodeScale(out *tflitedetect.Output, scale YOLOScale,
	in tflitedetect.InputAttribute) ([]Candidate, error) {

	// number of box attributes plus object classes per anchor
	probBoxSize := 5 + y.Params.ObjectClassNum
	anchorNum := len(scale.Anchors) / 2

	if len(out.Dims) < 3 {
		return nil, fmt.Errorf("output tensor %d has %d dimensions: %w",
			out.Index, len(out.Dims), ErrDecode)
	}

	gridX := out.Dims[1]
	gridY := out.Dims[2]

	if gridX <= 0 || gridY <= 0 ||
		len(out.BufFloat) != gridX*gridY*anchorNum*probBoxSize {
		return nil, fmt.Errorf("output tensor %d size %d does not match grid %dx%dx%dx%d: %w",
			out.Index, len(out.BufFloat), gridX, gridY, anchorNum, probBoxSize, ErrDecode)
	}

	// stride maps cell offsets back to model input pixels
	strideX := float32(in.Width) / float32(gridX)
	strideY := float32(in.Height) / float32(gridY)

	maxX := float32(in.Width)
	maxY := float32(in.Height)

	buf := out.BufFloat
	candidates := make([]Candidate, 0)

	for gx := 0; gx < gridX; gx++ {
		for gy := 0; gy < gridY; gy++ {
			for a := 0; a < anchorNum; a++ {

				base := ((gx*gridY+gy)*anchorNum + a) * probBoxSize

				rawX := buf[base+0]
				rawY := buf[base+1]
				rawW := buf[base+2]
				rawH := buf[base+3]
				objectness := buf[base+4]

				// decode center from cell offset, grid position and stride
				cx := ((rawX*scale.XYScale)-0.5*(scale.XYScale-1)+float32(gx)) * strideX
				cy := ((rawY*scale.XYScale)-0.5*(scale.XYScale-1)+float32(gy)) * strideY

				// decode size from the anchor priors
				w := rawW * float32(scale.Anchors[a*2])
				h := rawH * float32(scale.Anchors[a*2+1])

				xmin := clamp(cx-w/2.0, 0, maxX)
				ymin := clamp(cy-h/2.0, 0, maxY)
				xmax := clamp(cx+w/2.0, 0, maxX)
				ymax := clamp(cy+h/2.0, 0, maxY)

				// zero inverted boxes instead of dropping, matching the
				// downstream mask
				if xmin > xmax || ymin > ymax {
					xmin, ymin, xmax, ymax = 0, 0, 0, 0
				}

				// the geometric mean side length catches zero area and NaN
				// artifacts
				side := math32.Sqrt((xmax - xmin) * (ymax - ymin))

				if !(side > 0) || math32.IsInf(side, 1) {
					continue
				}

				// final score is objectness times class probability, the
				// prediction is the argmax over that vector
				score := objectness * buf[base+5]
				classID := 0

				for k := 1; k < y.Params.ObjectClassNum; k++ {
					s := objectness * buf[base+5+k]

					if s > score {
						score = s
						classID = k
					}
				}

				if math32.IsNaN(score) || score <= y.BoxThreshold {
					continue
				}

				candidates = append(candidates, Candidate{
					XMin:  xmin,
					YMin:  ymin,
					XMax:  xmax,
					YMax:  ymax,
					Class: classID,
					Score: score,
				})
			}
		}
	}

	return candidates, nil
}
