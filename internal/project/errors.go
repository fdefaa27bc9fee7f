package project

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for state-machine failures. All are locally recoverable:
// callers branch on them and retry after satisfying the condition.
var (
	ErrNoActiveProject    = errors.New("no active project")
	ErrAtInitialStage     = errors.New("already at initial stage")
	ErrAtTerminalStage    = errors.New("already at terminal stage")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrPrerequisiteNotMet = errors.New("prerequisite not met")
)

// PrerequisiteError reports which stages block entry into Target.
type PrerequisiteError struct {
	Target  Stage
	Missing []Stage
}

func (e *PrerequisiteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, stage := range e.Missing {
		names[i] = string(stage)
	}
	return fmt.Sprintf("prerequisite not met for %s: complete %s first", e.Target, strings.Join(names, ", "))
}

func (e *PrerequisiteError) Unwrap() error { return ErrPrerequisiteNotMet }
