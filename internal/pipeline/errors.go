package pipeline

import "errors"

var (
	// ErrRenderBusy tags a render rejected because one is already running
	// for the project.
	ErrRenderBusy = errors.New("render already in progress")
	// ErrNotAtRenderStage tags a render requested before the project
	// reached the render stage.
	ErrNotAtRenderStage = errors.New("project is not at the render stage")
	// ErrNoRenderActive tags a cancel for a project with no running render.
	ErrNoRenderActive = errors.New("no render in progress")
)
