package hardmine

import (
	"errors"
	"fmt"
)

// ErrCandidateMismatch is wrapped by the precondition error returned when the
// candidate collection and the dataset disagree on the number of images.
var ErrCandidateMismatch = errors.New("incorrect detections or ground truths")

// ErrModeMismatch is wrapped by the precondition error returned when the
// candidate artifact was collected from another dataset split.
var ErrModeMismatch = errors.New("candidates collected from another split")

// PreconditionError aborts a pass before or while it runs because one of its
// inputs is corrupted or missing.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// ImageError reports a source image that could not be read.
type ImageError struct {
	Path string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("unable to read image %s: %v", e.Path, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
