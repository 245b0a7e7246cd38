// Package postprocess converts raw model output tensors into deduplicated,
// labeled detection results.  The SSD decoder handles models whose outputs
// are already decoded boxes, the YOLO decoder reconstructs boxes from anchor
// grid predictions, and the Suppressor removes overlapping duplicates with
// per-class greedy Non-Maximum Suppression.
package postprocess

import "errors"

// ErrDecode indicates the model output tensors do not match the shape the
// configured decoder expects.  This is a model/configuration mismatch that
// cannot be recovered locally, no fallback shape is guessed.
var ErrDecode = errors.New("output tensor mismatch")

// BoxRect are the dimensions of the bounding box of a detected object, in
// frame pixel coordinates
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the class id of the detected object
	Class int
	// Name is the class name resolved from the labels file
	Name string
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
}

// Candidate is a decoded bounding box in model input coordinates, before
// Non-Maximum Suppression.  Corner order invariant: XMin <= XMax and
// YMin <= YMax, degenerate boxes are zeroed during decoding.
type Candidate struct {
	XMin  float32
	YMin  float32
	XMax  float32
	YMax  float32
	Class int
	Score float32
}
