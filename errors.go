package tflitedetect

import "errors"

// ErrConfig indicates invalid startup configuration, such as a missing or
// malformed labels file, an unknown target class name, or a model file that
// does not exist.  These errors are fatal and reported before any frame is
// processed.
var ErrConfig = errors.New("invalid configuration")
