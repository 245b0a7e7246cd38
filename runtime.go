package tflitedetect

import (
	"fmt"
	"os"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates/edgetpu"
)

// Runtime defines the TensorFlow Lite run time instance
type Runtime struct {
	// model is the loaded tflite model file
	model *tflite.Model
	// options used when creating the interpreter
	options *tflite.InterpreterOptions
	// interpreter is the tflite interpreter instance
	interpreter *tflite.Interpreter
	// inputAttrs caches the Input Tensor Attributes of the Model
	inputAttrs []TensorAttr
	// outputAttrs caches the Output Tensor Attributes of the Model
	outputAttrs []TensorAttr
	// inputAttr is the first input tensor interpreted as an image tensor
	inputAttr InputAttribute
}

// NewRuntime returns a TFLite run time instance.  Provide the full path and
// filename of the compiled tflite model file to run.  Set useTPU to delegate
// execution to an EdgeTPU accelerator, which requires a model compiled for
// the EdgeTPU.
func NewRuntime(modelFile string, useTPU bool) (*Runtime, error) {

	// check file exists before passing to the C library
	info, err := os.Stat(modelFile)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s: %w: %w",
			modelFile, err, ErrConfig)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file %s is a directory: %w",
			modelFile, ErrConfig)
	}

	r := &Runtime{}

	r.model = tflite.NewModelFromFile(modelFile)

	if r.model == nil {
		return nil, fmt.Errorf("error loading model file %s: %w",
			modelFile, ErrConfig)
	}

	r.options = tflite.NewInterpreterOptions()
	r.options.SetNumThread(4)

	if useTPU {
		if err := r.addTPUDelegate(); err != nil {
			r.Close()
			return nil, err
		}
	}

	r.interpreter = tflite.NewInterpreter(r.model, r.options)

	if r.interpreter == nil {
		r.Close()
		return nil, fmt.Errorf("error creating interpreter for model %s",
			modelFile)
	}

	if status := r.interpreter.AllocateTensors(); status != tflite.OK {
		r.Close()
		return nil, fmt.Errorf("error allocating tensors, status %d", status)
	}

	// query and cache Input and Output tensor attributes
	for i := 0; i < r.interpreter.GetInputTensorCount(); i++ {
		r.inputAttrs = append(r.inputAttrs,
			readTensorAttr(r.interpreter.GetInputTensor(i), i))
	}

	for i := 0; i < r.interpreter.GetOutputTensorCount(); i++ {
		r.outputAttrs = append(r.outputAttrs,
			readTensorAttr(r.interpreter.GetOutputTensor(i), i))
	}

	if len(r.inputAttrs) == 0 {
		r.Close()
		return nil, fmt.Errorf("model %s has no input tensors", modelFile)
	}

	r.inputAttr, err = inputAttribute(r.inputAttrs[0])

	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// addTPUDelegate attaches an EdgeTPU delegate to the interpreter options
func (r *Runtime) addTPUDelegate() error {

	devices, err := edgetpu.DeviceList()

	if err != nil {
		return fmt.Errorf("error querying EdgeTPU devices: %w", err)
	}

	if len(devices) == 0 {
		return fmt.Errorf("no EdgeTPU device found")
	}

	d := edgetpu.New(devices[0])

	if d == nil {
		return fmt.Errorf("error creating EdgeTPU delegate")
	}

	r.options.AddDelegate(d)

	return nil
}

// Close unloads the model and destroys the interpreter releasing all C
// resources
func (r *Runtime) Close() error {

	if r.interpreter != nil {
		r.interpreter.Delete()
		r.interpreter = nil
	}

	if r.options != nil {
		r.options.Delete()
		r.options = nil
	}

	if r.model != nil {
		r.model.Delete()
		r.model = nil
	}

	return nil
}

// InputAttrs returns the loaded model's input tensor attributes
func (r *Runtime) InputAttrs() []TensorAttr {
	return r.inputAttrs
}

// InputAttribute returns the model's first input tensor interpreted as an
// NHWC image tensor
func (r *Runtime) InputAttribute() InputAttribute {
	return r.inputAttr
}

// OutputAttrs returns the loaded model's output tensor attributes
func (r *Runtime) OutputAttrs() []TensorAttr {
	return r.outputAttrs
}
