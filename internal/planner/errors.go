package planner

import (
	"errors"
	"fmt"
)

// Stages of a run, in execution order.
const (
	StageCredentials = "credentials"
	StageFetch       = "fetch"
	StageGenerate    = "generate"
	StageSend        = "send"
)

// StageError records the stage a run aborted in. The cause keeps its kind:
// errors.As still finds an AuthError, APIError or GenerationError through it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err aborted in, or "" if err carries none.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
