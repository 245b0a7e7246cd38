package tflitedetect

import (
	"fmt"
	"sync"
)

// Pool opens multiple interpreters of the same Model so frames can be
// inferenced concurrently.  TFLite interpreters are not safe for concurrent
// invocation, a pool sidesteps that by giving each worker its own.
//
// Pool exposes the same InputAttribute/Inference methods as Runtime so it
// can stand in anywhere a single runtime backend is used.
type Pool struct {
	// pool of runtimes
	runtimes chan *Runtime
	// size of pool
	size int
	// inAttr is the shared model input attribute, identical across all
	// runtimes as they load the same model file
	inAttr InputAttribute

	mu     sync.Mutex
	closed bool
}

// NewPool creates a new runtime pool.  An EdgeTPU accelerator can only be
// claimed by one interpreter so use a pool size of 1 when useTPU is set.
func NewPool(size int, modelFile string, useTPU bool) (*Pool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size %d must be at least 1: %w",
			size, ErrConfig)
	}

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := NewRuntime(modelFile, useTPU)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		p.inAttr = rt.InputAttribute()

		// attach to pool
		p.Return(rt)
	}

	return p, nil
}

// InputAttribute returns the pooled model's first input tensor interpreted
// as an NHWC image tensor
func (p *Pool) InputAttribute() InputAttribute {
	return p.inAttr
}

// Inference borrows a runtime from the pool, runs the model on the given
// input tensor and returns the runtime before handing back the outputs
func (p *Pool) Inference(in *InputTensor) (*Outputs, error) {

	rt := p.Get()

	if rt == nil {
		return nil, fmt.Errorf("runtime pool is closed")
	}

	defer p.Return(rt)

	return rt.Inference(in)
}

// Gets a runtime from the pool, blocking until one is free.  Returns nil
// once the pool is closed.
func (p *Pool) Get() *Runtime {
	return <-p.runtimes
}

// Return a runtime to the pool.  A runtime returned after the pool has been
// closed is closed instead of pooled.
func (p *Pool) Return(runtime *Runtime) {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = runtime.Close()
		return
	}

	select {
	case p.runtimes <- runtime:
	default:
		// pool is full
	}
}

// Close the pool and all runtimes in it
func (p *Pool) Close() {

	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true
	close(p.runtimes)
	p.mu.Unlock()

	// close all runtimes still pooled
	for next := range p.runtimes {
		_ = next.Close()
	}
}
