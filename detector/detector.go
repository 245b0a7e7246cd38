// Package detector orchestrates the per frame detection pipeline: it
// prepares the input tensor from a frame image, invokes the inference
// backend, routes the output tensors to the decoder for the configured model
// family and returns timed detection results.
package detector

import (
	"fmt"
	"image"
	"time"

	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
	"github.com/blue-cosmos/object-detection-tflite/postprocess"
	"github.com/nfnt/resize"
)

// Family selects which model family's decode strategy is used
type Family int

const (
	// FamilySSD is for SSD style models whose outputs are pre-decoded
	// boxes, class ids, scores and a valid count
	FamilySSD Family = iota
	// FamilyYOLO is for YOLO models whose outputs are raw anchor grid
	// predictions requiring box reconstruction and NMS
	FamilyYOLO
)

// String returns a readable description of the model family
func (f Family) String() string {
	switch f {
	case FamilySSD:
		return "ssd"
	case FamilyYOLO:
		return "yolo"
	default:
		return "unknown"
	}
}

// DefaultThreshold is the confidence threshold used when none is configured
const DefaultThreshold = 0.5

// Backend runs the opaque inference step.  The Runtime implements it for
// TFLite models, deterministic fixture backends implement it in tests.
type Backend interface {
	// InputAttribute returns the image tensor shape and data type the
	// model expects
	InputAttribute() tflitedetect.InputAttribute
	// Inference runs the model on the given input tensor
	Inference(in *tflitedetect.InputTensor) (*tflitedetect.Outputs, error)
}

// Config defines the detection pipeline configuration
type Config struct {
	// Family is the model family of the loaded model
	Family Family
	// YOLO are the anchor parameters for FamilyYOLO models.  They must
	// match the variant the model weights were trained with
	YOLO postprocess.YOLOParams
	// FrameWidth is the pixel width of the display frame
	FrameWidth int
	// FrameHeight is the pixel height of the display frame
	FrameHeight int
	// Threshold is the minimum confidence score, defaults to
	// DefaultThreshold when zero
	Threshold float32
	// Target restricts results to a single class name, or "all"
	Target string
}

// Detector is the per frame detection pipeline.  It holds only read-only
// configuration, no state crosses frame boundaries.
type Detector struct {
	backend   Backend
	family    Family
	inAttr    tflitedetect.InputAttribute
	ssd       *postprocess.SSD
	yolo      *postprocess.YOLO
	suppress  *postprocess.Suppressor
	threshold float32
}

// New returns a Detector running the given backend.  Configuration problems
// such as an unknown target class are reported here, before any frame is
// processed.
func New(cfg Config, backend Backend,
	labels *tflitedetect.LabelTable) (*Detector, error) {

	inAttr := backend.InputAttribute()

	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}

	target := tflitedetect.AllTargets()

	if cfg.Target != "" {
		var err error
		target, err = labels.Target(cfg.Target)

		if err != nil {
			return nil, err
		}
	}

	d := &Detector{
		backend:   backend,
		family:    cfg.Family,
		inAttr:    inAttr,
		threshold: cfg.Threshold,
	}

	switch cfg.Family {
	case FamilySSD:
		d.ssd = postprocess.NewSSD(postprocess.SSDParams{
			FrameWidth:  cfg.FrameWidth,
			FrameHeight: cfg.FrameHeight,
			Threshold:   cfg.Threshold,
		}, labels, target)

	case FamilyYOLO:
		if len(cfg.YOLO.Scales) == 0 {
			return nil, fmt.Errorf("no anchor scales configured for YOLO model: %w",
				tflitedetect.ErrConfig)
		}

		d.yolo = postprocess.NewYOLO(cfg.YOLO, cfg.Threshold)
		d.suppress = postprocess.NewSuppressor(postprocess.SuppressorParams{
			NMSThreshold: postprocess.DefaultNMSThreshold,
			Threshold:    cfg.Threshold,
			FrameWidth:   cfg.FrameWidth,
			FrameHeight:  cfg.FrameHeight,
			ScaleWidth:   float32(cfg.FrameWidth) / float32(inAttr.Width),
			ScaleHeight:  float32(cfg.FrameHeight) / float32(inAttr.Height),
		}, labels, target)

	default:
		return nil, fmt.Errorf("unknown model family %d: %w",
			cfg.Family, tflitedetect.ErrConfig)
	}

	return d, nil
}

// Detect runs one frame through the pipeline and returns the detections
// along with the wall clock time spent on inference and decoding.  Inference
// failures are not retried, the error is propagated for the frame.
func (d *Detector) Detect(frame image.Image) ([]postprocess.DetectResult, time.Duration, error) {

	start := time.Now()

	in := d.prepareInput(frame)

	outputs, err := d.backend.Inference(in)

	if err != nil {
		return nil, 0, fmt.Errorf("inference failed: %w", err)
	}

	var results []postprocess.DetectResult

	switch d.family {
	case FamilySSD:
		results, err = d.ssd.DetectObjects(outputs)

	case FamilyYOLO:
		var candidates []postprocess.Candidate
		candidates, err = d.yolo.DecodeCandidates(outputs)

		if err == nil {
			results = d.suppress.Suppress(candidates)
		}
	}

	if err != nil {
		return nil, 0, err
	}

	return results, time.Since(start), nil
}

// prepareInput resizes the frame to the model input dimensions and fills an
// input tensor of the data type the model expects: raw RGB bytes for
// quantized models, [0,1] normalized float32 for float models
func (d *Detector) prepareInput(frame image.Image) *tflitedetect.InputTensor {

	resized := resize.Resize(uint(d.inAttr.Width), uint(d.inAttr.Height),
		frame, resize.Bilinear)

	bounds := resized.Bounds()

	in := &tflitedetect.InputTensor{
		Width:  d.inAttr.Width,
		Height: d.inAttr.Height,
		Type:   d.inAttr.Type,
	}

	switch d.inAttr.Type {
	case tflitedetect.TensorFloat32:
		in.F32 = make([]float32, d.inAttr.Width*d.inAttr.Height*3)
		i := 0

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := resized.At(x, y).RGBA()
				in.F32[i+0] = float32(r>>8) / 255.0
				in.F32[i+1] = float32(g>>8) / 255.0
				in.F32[i+2] = float32(b>>8) / 255.0
				i += 3
			}
		}

	default:
		in.U8 = make([]uint8, d.inAttr.Width*d.inAttr.Height*3)
		i := 0

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := resized.At(x, y).RGBA()
				in.U8[i+0] = uint8(r >> 8)
				in.U8[i+1] = uint8(g >> 8)
				in.U8[i+2] = uint8(b >> 8)
				i += 3
			}
		}
	}

	return in
}
