package tflitedetect

import (
	"fmt"

	"github.com/mattn/go-tflite"
)

// TensorType is the data type of a Model input or output tensor
type TensorType int

const (
	TensorNone TensorType = iota
	TensorUint8
	TensorFloat32
	TensorFloat16
)

// String returns a readable description of the tensor type
func (t TensorType) String() string {
	switch t {
	case TensorUint8:
		return "UINT8"
	case TensorFloat32:
		return "FLOAT32"
	case TensorFloat16:
		return "FLOAT16"
	default:
		return "UNSUPPORTED"
	}
}

// TensorAttr are the attributes of a single Model tensor queried from the
// interpreter at startup
type TensorAttr struct {
	// Index is the tensor index
	Index int
	// Name is the tensor name compiled into the model file
	Name string
	// Dims are the tensor dimensions
	Dims []int
	// Type is the tensor data type
	Type TensorType
	// Scale is the quantization scale, for UINT8 tensors
	Scale float32
	// ZeroPoint is the quantization zero point, for UINT8 tensors
	ZeroPoint int32
}

// String returns a readable description of the tensors attributes
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, dims=%v, type=%s, scale=%f, zp=%d",
		a.Index, a.Name, a.Dims, a.Type, a.Scale, a.ZeroPoint)
}

// ElementCount returns the total number of elements in the tensor
func (a TensorAttr) ElementCount() int {

	n := 1

	for _, d := range a.Dims {
		n *= d
	}

	return n
}

// readTensorAttr converts a go-tflite tensor into a TensorAttr
func readTensorAttr(t *tflite.Tensor, index int) TensorAttr {

	attr := TensorAttr{
		Index: index,
		Name:  t.Name(),
		Dims:  make([]int, t.NumDims()),
	}

	for i := 0; i < t.NumDims(); i++ {
		attr.Dims[i] = t.Dim(i)
	}

	switch t.Type() {
	case tflite.UInt8:
		attr.Type = TensorUint8
		qp := t.QuantizationParams()
		attr.Scale = float32(qp.Scale)
		attr.ZeroPoint = int32(qp.ZeroPoint)

	case tflite.Float32:
		attr.Type = TensorFloat32

	case tflite.Float16:
		attr.Type = TensorFloat16

	default:
		attr.Type = TensorNone
	}

	return attr
}

// InputAttribute of trained model input tensor
type InputAttribute struct {
	Width   int
	Height  int
	Channel int
	Type    TensorType
}

// inputAttribute interprets the first input tensor as an NHWC image tensor
// of shape (1, height, width, channels)
func inputAttribute(attr TensorAttr) (InputAttribute, error) {

	if len(attr.Dims) != 4 || attr.Dims[0] != 1 || attr.Dims[3] != 3 {
		return InputAttribute{}, fmt.Errorf(
			"unexpected input tensor shape %v, want (1, height, width, 3)", attr.Dims)
	}

	return InputAttribute{
		Width:   attr.Dims[2],
		Height:  attr.Dims[1],
		Channel: attr.Dims[3],
		Type:    attr.Type,
	}, nil
}
