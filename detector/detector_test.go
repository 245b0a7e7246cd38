package detector

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
	"github.com/blue-cosmos/object-detection-tflite/postprocess"
)

// fixtureBackend implements Backend with deterministic output tensors
type fixtureBackend struct {
	inAttr  tflitedetect.InputAttribute
	outputs *tflitedetect.Outputs
	err     error
	// lastInput records the tensor passed to Inference
	lastInput *tflitedetect.InputTensor
}

func (f *fixtureBackend) InputAttribute() tflitedetect.InputAttribute {
	return f.inAttr
}

func (f *fixtureBackend) Inference(in *tflitedetect.InputTensor) (*tflitedetect.Outputs, error) {
	f.lastInput = in

	if f.err != nil {
		return nil, f.err
	}

	return f.outputs, nil
}

func testLabels(t *testing.T) *tflitedetect.LabelTable {
	t.Helper()

	labels, err := tflitedetect.ReadLabels(
		strings.NewReader("0 person\n17 cat\n"), false)

	if err != nil {
		t.Fatalf("error reading labels: %v", err)
	}

	return labels
}

func TestDetectSSD(t *testing.T) {

	inAttr := tflitedetect.InputAttribute{
		Width: 300, Height: 300, Channel: 3, Type: tflitedetect.TensorUint8,
	}

	backend := &fixtureBackend{
		inAttr: inAttr,
		outputs: tflitedetect.NewOutputs(inAttr, []tflitedetect.Output{
			{Index: 0, Dims: []int{1, 1, 4}, BufFloat: []float32{0.1, 0.1, 0.5, 0.5}},
			{Index: 1, Dims: []int{1, 1}, BufFloat: []float32{17}},
			{Index: 2, Dims: []int{1, 1}, BufFloat: []float32{0.9}},
			{Index: 3, Dims: []int{1}, BufFloat: []float32{1}},
		}),
	}

	d, err := New(Config{
		Family:      FamilySSD,
		FrameWidth:  640,
		FrameHeight: 640,
		Threshold:   0.5,
		Target:      "all",
	}, backend, testLabels(t))

	if err != nil {
		t.Fatalf("error creating detector: %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 640, 640))

	results, elapsed, err := d.Detect(frame)

	if err != nil {
		t.Fatalf("error detecting: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(results))
	}

	if results[0].Name != "cat" {
		t.Errorf("expected cat, got %q", results[0].Name)
	}

	expected := postprocess.BoxRect{Left: 64, Top: 64, Right: 320, Bottom: 320}

	if results[0].Box != expected {
		t.Errorf("expected box %+v, got %+v", expected, results[0].Box)
	}

	if elapsed <= 0 {
		t.Errorf("expected a positive elapsed time, got %v", elapsed)
	}

	// quantized model receives raw RGB bytes
	if backend.lastInput.Type != tflitedetect.TensorUint8 {
		t.Errorf("expected uint8 input tensor, got %s", backend.lastInput.Type)
	}

	if len(backend.lastInput.U8) != 300*300*3 {
		t.Errorf("expected input tensor of %d bytes, got %d",
			300*300*3, len(backend.lastInput.U8))
	}
}

func TestDetectYOLO(t *testing.T) {

	inAttr := tflitedetect.InputAttribute{
		Width: 64, Height: 64, Channel: 3, Type: tflitedetect.TensorFloat32,
	}

	// single 2x2 grid scale with one anchor and two classes, one strong
	// prediction in cell (1,0)
	buf := make([]float32, 2*2*7)
	copy(buf[14:21], []float32{0.5, 0.5, 2.0, 1.0, 0.9, 0.1, 0.8})

	backend := &fixtureBackend{
		inAttr: inAttr,
		outputs: tflitedetect.NewOutputs(inAttr, []tflitedetect.Output{
			{Index: 0, Dims: []int{1, 2, 2, 7}, BufFloat: buf},
		}),
	}

	labels, err := tflitedetect.ReadLabels(
		strings.NewReader("0 person\n1 cat\n"), true)

	if err != nil {
		t.Fatalf("error reading labels: %v", err)
	}

	d, err := New(Config{
		Family: FamilyYOLO,
		YOLO: postprocess.YOLOParams{
			Scales:         []postprocess.YOLOScale{{Anchors: []int{10, 14}, XYScale: 1.0}},
			ObjectClassNum: 2,
		},
		FrameWidth:  128,
		FrameHeight: 128,
		Threshold:   0.5,
		Target:      "all",
	}, backend, labels)

	if err != nil {
		t.Fatalf("error creating detector: %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 128, 128))

	results, _, err := d.Detect(frame)

	if err != nil {
		t.Fatalf("error detecting: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(results))
	}

	if results[0].Name != "cat" {
		t.Errorf("expected cat, got %q", results[0].Name)
	}

	// model space box (38, 9, 58, 23) doubled into the 128 pixel frame
	expected := postprocess.BoxRect{Left: 76, Top: 18, Right: 116, Bottom: 46}

	if results[0].Box != expected {
		t.Errorf("expected box %+v, got %+v", expected, results[0].Box)
	}

	// float model receives normalized input
	if backend.lastInput.Type != tflitedetect.TensorFloat32 {
		t.Errorf("expected float32 input tensor, got %s", backend.lastInput.Type)
	}
}

func TestPrepareInputNormalizes(t *testing.T) {

	inAttr := tflitedetect.InputAttribute{
		Width: 2, Height: 2, Channel: 3, Type: tflitedetect.TensorFloat32,
	}

	d := &Detector{inAttr: inAttr}

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			frame.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	in := d.prepareInput(frame)

	if len(in.F32) != 2*2*3 {
		t.Fatalf("expected 12 values, got %d", len(in.F32))
	}

	const tol = 1e-6

	for i := 0; i < len(in.F32); i += 3 {
		if diff := in.F32[i] - 1.0; diff > tol || diff < -tol {
			t.Errorf("expected red channel 1.0, got %f", in.F32[i])
		}
		if in.F32[i+1] != 0 {
			t.Errorf("expected green channel 0, got %f", in.F32[i+1])
		}
		if diff := in.F32[i+2] - 0.2; diff > tol || diff < -tol {
			t.Errorf("expected blue channel 0.2, got %f", in.F32[i+2])
		}
	}
}

func TestDetectInferenceErrorPropagates(t *testing.T) {

	inAttr := tflitedetect.InputAttribute{
		Width: 300, Height: 300, Channel: 3, Type: tflitedetect.TensorUint8,
	}

	backend := &fixtureBackend{
		inAttr: inAttr,
		err:    fmt.Errorf("delegate lost"),
	}

	d, err := New(Config{
		Family:      FamilySSD,
		FrameWidth:  640,
		FrameHeight: 640,
	}, backend, testLabels(t))

	if err != nil {
		t.Fatalf("error creating detector: %v", err)
	}

	_, _, err = d.Detect(image.NewRGBA(image.Rect(0, 0, 640, 640)))

	if err == nil || !strings.Contains(err.Error(), "delegate lost") {
		t.Errorf("expected the inference error to propagate, got %v", err)
	}
}

func TestNewConfigErrors(t *testing.T) {

	inAttr := tflitedetect.InputAttribute{
		Width: 300, Height: 300, Channel: 3, Type: tflitedetect.TensorUint8,
	}

	backend := &fixtureBackend{inAttr: inAttr}
	labels := testLabels(t)

	t.Run("unknown target class", func(t *testing.T) {
		_, err := New(Config{
			Family:      FamilySSD,
			FrameWidth:  640,
			FrameHeight: 640,
			Target:      "unicorn",
		}, backend, labels)

		if !errors.Is(err, tflitedetect.ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})

	t.Run("missing YOLO anchors", func(t *testing.T) {
		_, err := New(Config{
			Family:      FamilyYOLO,
			FrameWidth:  640,
			FrameHeight: 640,
		}, backend, labels)

		if !errors.Is(err, tflitedetect.ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})
}
