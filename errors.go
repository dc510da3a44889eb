package fincoach

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxIterationsExceeded is returned when a reasoning stage keeps
	// requesting tools past its iteration limit.
	ErrMaxIterationsExceeded = errors.New("maximum iterations exceeded")

	// ErrStageFailed matches any StageError.
	ErrStageFailed = errors.New("stage failed")

	// ErrEmptyPipeline is returned when running a pipeline without stages.
	ErrEmptyPipeline = errors.New("pipeline has no stages")
)

// StageError reports the stage that aborted a pipeline run.
type StageError struct {
	Pipeline string
	Stage    string
	Index    int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: stage %d (%s): %v", e.Pipeline, e.Index, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStageFailed) true for any StageError.
func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed
}
