package tflitedetect

import (
	"fmt"

	"github.com/mattn/go-tflite"
)

// InputTensor is an image tensor prepared for inference.  Exactly one of U8
// or F32 is populated, matching the data type the loaded model expects:
// raw RGB bytes for quantized SSD models, normalized [0,1] values for float
// YOLO models.
type InputTensor struct {
	// Width and Height are the image tensor dimensions
	Width  int
	Height int
	// Type is the data type of the populated buffer
	Type TensorType
	// U8 is the RGB pixel data for TensorUint8 models
	U8 []uint8
	// F32 is the normalized RGB pixel data for TensorFloat32 models
	F32 []float32
}

// Output is a single Model output tensor copied out of the interpreter
type Output struct {
	// Index is the output tensor index
	Index int
	// Dims are the tensor dimensions
	Dims []int
	// BufFloat is the tensor data as float32.  Quantized and float16 tensors
	// are converted during extraction
	BufFloat []float32
}

// Outputs holds all output tensors produced by one inference run
type Outputs struct {
	Output []Output
	inAttr InputAttribute
}

// NewOutputs creates an Outputs set for the given model input attributes.
// The Runtime builds these after each inference run, alternate Backend
// implementations can construct their own.
func NewOutputs(in InputAttribute, outputs []Output) *Outputs {
	return &Outputs{
		Output: outputs,
		inAttr: in,
	}
}

// InputAttributes returns the Model input image tensor dimensions
func (o *Outputs) InputAttributes() InputAttribute {
	return o.inAttr
}

// Inference runs the model on the given input tensor and returns the output
// tensors converted to float32
func (r *Runtime) Inference(in *InputTensor) (*Outputs, error) {

	if in.Type != r.inputAttr.Type {
		return nil, fmt.Errorf("input tensor type %s does not match model type %s",
			in.Type, r.inputAttr.Type)
	}

	want := r.inputAttrs[0].ElementCount()
	t := r.interpreter.GetInputTensor(0)

	switch in.Type {
	case TensorUint8:
		if len(in.U8) != want {
			return nil, fmt.Errorf("input tensor size %d does not match model size %d",
				len(in.U8), want)
		}
		copy(t.UInt8s(), in.U8)

	case TensorFloat32:
		if len(in.F32) != want {
			return nil, fmt.Errorf("input tensor size %d does not match model size %d",
				len(in.F32), want)
		}
		copy(t.Float32s(), in.F32)

	default:
		return nil, fmt.Errorf("unsupported input tensor type %s", in.Type)
	}

	if status := r.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("error invoking interpreter, status %d", status)
	}

	return r.getOutputs()
}

// getOutputs copies each output tensor out of the interpreter, converting
// quantized uint8 and float16 buffers to float32
func (r *Runtime) getOutputs() (*Outputs, error) {

	outputs := &Outputs{
		Output: make([]Output, len(r.outputAttrs)),
		inAttr: r.inputAttr,
	}

	for i, attr := range r.outputAttrs {

		t := r.interpreter.GetOutputTensor(i)

		out := Output{
			Index: i,
			Dims:  attr.Dims,
		}

		switch t.Type() {
		case tflite.Float32:
			// copy out of the interpreter owned buffer as it is reused on
			// the next Invoke
			buf := t.Float32s()
			out.BufFloat = make([]float32, len(buf))
			copy(out.BufFloat, buf)

		case tflite.UInt8:
			out.BufFloat = deqntAffineBuffer(t.UInt8s(), attr.ZeroPoint, attr.Scale)

		case tflite.Float16:
			out.BufFloat = float16BufferToFloat32(t.UInt8s())

		default:
			return nil, fmt.Errorf("output tensor %d has unsupported type %s",
				i, attr.Type)
		}

		outputs.Output[i] = out
	}

	return outputs, nil
}

// deqntAffineBuffer converts a quantized uint8 buffer back to float32 using
// the tensor's zero point and scale
func deqntAffineBuffer(qnt []uint8, zp int32, scale float32) []float32 {

	buf := make([]float32, len(qnt))

	for i, q := range qnt {
		buf[i] = (float32(q) - float32(zp)) * scale
	}

	return buf
}
