package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of the pipeline in errors and progress callbacks.
type Stage string

// Pipeline stages, in order.
const (
	StageDecode   Stage = "decode"
	StageFit      Stage = "fit"
	StageQuantize Stage = "quantize"
	StageCleanup  Stage = "cleanup"
	StageRelief   Stage = "relief"
	StageMesh     Stage = "mesh"
	StageEncode   Stage = "encode"
	StageWrite    Stage = "write"
)

// Error categories. Every StageError wraps exactly one of them.
var (
	// ErrInput covers rasters that cannot be decoded or have no pixels, and
	// settings that cannot describe a board.
	ErrInput = errors.New("invalid input")

	// ErrMesh covers geometry that cannot be built from a mask.
	ErrMesh = errors.New("mesh build failed")

	// ErrEncoding covers STL/3MF serialization and output failures.
	ErrEncoding = errors.New("encoding failed")
)

// StageError reports which stage failed and why. errors.Is matches both the
// category (ErrInput, ErrMesh, ErrEncoding) and the underlying cause.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap returns the category and the cause.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(stage Stage, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
