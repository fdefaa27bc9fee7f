package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/project"
	"reelsmith/internal/testsupport"
)

type fakeEngine struct {
	render func(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error)
}

func (f *fakeEngine) Render(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error) {
	return f.render(ctx, job, opts)
}

type harness struct {
	cfg         *config.Config
	store       *project.Store
	machine     *project.Machine
	coordinator *pipeline.Coordinator
}

func newHarness(t *testing.T, engine pipeline.Engine) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	machine := project.NewMachine(store, logging.NewNop())
	return &harness{
		cfg:         cfg,
		store:       store,
		machine:     machine,
		coordinator: pipeline.NewCoordinator(cfg, store, machine, engine, logging.NewNop()),
	}
}

// projectAtRender creates a project and walks it to the render stage with
// all prerequisite data in place.
func (h *harness) projectAtRender(t *testing.T) *project.Project {
	t.Helper()
	ctx := context.Background()

	p, err := h.machine.Create(ctx, "Render Me")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	steps := []struct {
		stage project.Stage
		patch map[string]any
	}{
		{project.StageTopic, map[string]any{"selected": "standing desks"}},
		{project.StageScript, map[string]any{"content": "the script"}},
		{project.StageNarration, map[string]any{"path": "/media/voice.mp3"}},
		{project.StageAssets, map[string]any{"avatar": "/media/avatar.png"}},
	}
	for _, step := range steps {
		if _, err := h.machine.UpdateStage(ctx, p.ID, step.stage, step.patch); err != nil {
			t.Fatalf("update %s: %v", step.stage, err)
		}
		if _, err := h.machine.Advance(ctx, p.ID); err != nil {
			t.Fatalf("advance past %s: %v", step.stage, err)
		}
	}

	loaded, err := h.machine.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CurrentStage != project.StageRender {
		t.Fatalf("stage = %s, want render", loaded.CurrentStage)
	}
	return loaded
}

func TestStartRenderRequiresRenderStage(t *testing.T) {
	h := newHarness(t, &fakeEngine{})
	ctx := context.Background()

	p, err := h.machine.Create(ctx, "Too Early")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.coordinator.StartRender(ctx, p.ID); !errors.Is(err, pipeline.ErrNotAtRenderStage) {
		t.Fatalf("start: %v, want ErrNotAtRenderStage", err)
	}
}

func TestStartRenderSuccessAdvancesToComplete(t *testing.T) {
	engine := &fakeEngine{render: func(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error) {
		if opts.Progress != nil {
			opts.Progress(50)
		}
		return &compose.Result{OutputPath: job.OutputPath, DurationSeconds: 12, SizeBytes: 1024}, nil
	}}
	h := newHarness(t, engine)
	p := h.projectAtRender(t)
	ctx := context.Background()

	if err := h.coordinator.StartRender(ctx, p.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.coordinator.Wait(p.ID)

	loaded, err := h.machine.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CurrentStage != project.StageComplete {
		t.Fatalf("stage = %s, want complete", loaded.CurrentStage)
	}
	if loaded.Bag(project.StageRender).PathValue("output_path") == "" {
		t.Fatal("output path not written back into render data")
	}

	progress, err := h.coordinator.Status(ctx, p.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if progress == nil || progress.Status != project.RenderStatusCompleted || progress.Percent != 100 {
		t.Fatalf("progress = %+v, want completed at 100", progress)
	}
}

func TestStartRenderRejectsConcurrentRender(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	engine := &fakeEngine{render: func(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error) {
		close(started)
		<-release
		return &compose.Result{OutputPath: job.OutputPath}, nil
	}}
	h := newHarness(t, engine)
	p := h.projectAtRender(t)
	ctx := context.Background()

	if err := h.coordinator.StartRender(ctx, p.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	<-started

	if err := h.coordinator.StartRender(ctx, p.ID); !errors.Is(err, pipeline.ErrRenderBusy) {
		t.Fatalf("second start: %v, want ErrRenderBusy", err)
	}

	close(release)
	h.coordinator.Wait(p.ID)

	// With the first render finished a new one is no longer busy, but the
	// project has moved past the render stage.
	if err := h.coordinator.StartRender(ctx, p.ID); !errors.Is(err, pipeline.ErrNotAtRenderStage) {
		t.Fatalf("start after completion: %v, want ErrNotAtRenderStage", err)
	}
}

func TestRenderFailureLeavesProjectStateUntouched(t *testing.T) {
	engine := &fakeEngine{render: func(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error) {
		return nil, errors.New("transcode failed: boom")
	}}
	h := newHarness(t, engine)
	p := h.projectAtRender(t)
	ctx := context.Background()

	if err := h.coordinator.StartRender(ctx, p.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.coordinator.Wait(p.ID)

	loaded, err := h.machine.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CurrentStage != project.StageRender {
		t.Fatalf("stage = %s, want render", loaded.CurrentStage)
	}
	if loaded.Bag(project.StageRender).PathValue("output_path") != "" {
		t.Fatal("failed render wrote an output path")
	}

	progress, err := h.coordinator.Status(ctx, p.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if progress == nil || progress.Status != project.RenderStatusFailed {
		t.Fatalf("progress = %+v, want failed", progress)
	}
	if progress.Message == "" {
		t.Fatal("failure message missing from progress record")
	}
}

func TestCancelStopsRunningRender(t *testing.T) {
	engine := &fakeEngine{render: func(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	h := newHarness(t, engine)
	p := h.projectAtRender(t)
	ctx := context.Background()

	if err := h.coordinator.StartRender(ctx, p.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.coordinator.Cancel(p.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	h.coordinator.Wait(p.ID)

	progress, err := h.coordinator.Status(ctx, p.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if progress == nil || progress.Status != project.RenderStatusCancelled {
		t.Fatalf("progress = %+v, want cancelled", progress)
	}
}

func TestCancelWithoutRunningRender(t *testing.T) {
	h := newHarness(t, &fakeEngine{})
	if err := h.coordinator.Cancel("nope1234"); !errors.Is(err, pipeline.ErrNoRenderActive) {
		t.Fatalf("cancel: %v, want ErrNoRenderActive", err)
	}
}

func TestStartRenderRequiresAvatarAndAudio(t *testing.T) {
	h := newHarness(t, &fakeEngine{})
	ctx := context.Background()

	p, err := h.machine.Create(ctx, "No Assets")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Walk to render using a background instead of an avatar; the stage
	// predicate passes but a render cannot be assembled.
	steps := []struct {
		stage project.Stage
		patch map[string]any
	}{
		{project.StageTopic, map[string]any{"selected": "x"}},
		{project.StageScript, map[string]any{"content": "y"}},
		{project.StageNarration, map[string]any{"path": "/media/voice.mp3"}},
		{project.StageAssets, map[string]any{"background": "/media/bg.mp4"}},
	}
	for _, step := range steps {
		if _, err := h.machine.UpdateStage(ctx, p.ID, step.stage, step.patch); err != nil {
			t.Fatalf("update %s: %v", step.stage, err)
		}
		if _, err := h.machine.Advance(ctx, p.ID); err != nil {
			t.Fatalf("advance past %s: %v", step.stage, err)
		}
	}

	if err := h.coordinator.StartRender(ctx, p.ID); !errors.Is(err, compose.ErrMissingInput) {
		t.Fatalf("start: %v, want ErrMissingInput", err)
	}
}

func TestWaitReturnsImmediatelyWithoutRender(t *testing.T) {
	h := newHarness(t, &fakeEngine{})
	done := make(chan struct{})
	go func() {
		h.coordinator.Wait("nope1234")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked with no render running")
	}
}
