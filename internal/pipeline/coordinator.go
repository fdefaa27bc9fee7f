package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/project"
)

// Engine is the slice of the composition engine the coordinator drives.
type Engine interface {
	Render(ctx context.Context, job compose.Job, opts compose.RenderOptions) (*compose.Result, error)
}

type renderHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator runs at most one render per project at a time. Renders are
// detached from the caller's context; cancellation is explicit.
type Coordinator struct {
	cfg     *config.Config
	store   *project.Store
	machine *project.Machine
	engine  Engine
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]*renderHandle
}

// NewCoordinator constructs a render coordinator.
func NewCoordinator(cfg *config.Config, store *project.Store, machine *project.Machine, engine Engine, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		store:   store,
		machine: machine,
		engine:  engine,
		logger:  logging.NewComponentLogger(logger, "coordinator"),
		active:  make(map[string]*renderHandle),
	}
}

// StartRender kicks off a render for the project. The project must be at
// the render stage with its prerequisite bags populated. A second render
// for the same project while one is running is rejected, never queued.
func (c *Coordinator) StartRender(ctx context.Context, projectID string) error {
	p, err := c.machine.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.CurrentStage != project.StageRender {
		return fmt.Errorf("project %s at stage %s: %w", projectID, p.CurrentStage, ErrNotAtRenderStage)
	}

	job, err := c.buildJob(p)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if _, running := c.active[projectID]; running {
		c.mu.Unlock()
		return fmt.Errorf("project %s: %w", projectID, ErrRenderBusy)
	}

	// The file lock extends the guarantee across processes sharing the
	// projects directory.
	fileLock := flock.New(filepath.Join(c.cfg.Paths.ProjectsDir, projectID+".render.lock"))
	locked, err := fileLock.TryLock()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("acquire render lock: %w", err)
	}
	if !locked {
		c.mu.Unlock()
		return fmt.Errorf("project %s: %w", projectID, ErrRenderBusy)
	}

	renderCtx, cancel := context.WithCancel(context.Background())
	handle := &renderHandle{cancel: cancel, done: make(chan struct{})}
	c.active[projectID] = handle
	c.mu.Unlock()

	if err := c.store.SaveRenderProgress(ctx, project.RenderProgress{
		ProjectID: projectID,
		Status:    project.RenderStatusRendering,
		Stage:     "compositing",
	}); err != nil {
		cancel()
		_ = fileLock.Unlock()
		c.release(projectID)
		close(handle.done)
		return err
	}

	logger := logging.WithProject(c.logger, projectID)
	logger.Info("render started", logging.String("output", job.OutputPath))

	go func() {
		defer close(handle.done)
		defer c.release(projectID)
		defer func() { _ = fileLock.Unlock() }()
		defer cancel()
		c.run(renderCtx, projectID, job, logger)
	}()
	return nil
}

func (c *Coordinator) run(ctx context.Context, projectID string, job compose.Job, logger *slog.Logger) {
	start := time.Now()
	interval := time.Duration(c.cfg.Workflow.ProgressPersistIntervalSeconds) * time.Second
	var lastPersist time.Time

	progress := func(percent float64) {
		now := time.Now()
		if now.Sub(lastPersist) < interval && percent < 100 {
			return
		}
		lastPersist = now

		var eta float64
		if percent > 0 {
			elapsed := now.Sub(start).Seconds()
			eta = elapsed * (100 - percent) / percent
		}
		if err := c.store.SaveRenderProgress(ctx, project.RenderProgress{
			ProjectID:  projectID,
			Status:     project.RenderStatusRendering,
			Percent:    percent,
			Stage:      "compositing",
			ETASeconds: eta,
		}); err != nil {
			logger.Warn("could not persist render progress", logging.Error(err))
		}
	}

	result, err := c.engine.Render(ctx, job, compose.RenderOptions{Progress: progress})
	if err != nil {
		status := project.RenderStatusFailed
		if errors.Is(err, context.Canceled) {
			status = project.RenderStatusCancelled
			logger.Info("render cancelled")
		} else {
			logger.Error("render failed", logging.Error(err))
		}
		// Failure leaves project state untouched; only the progress record
		// reflects the outcome.
		if saveErr := c.store.SaveRenderProgress(context.Background(), project.RenderProgress{
			ProjectID: projectID,
			Status:    status,
			Stage:     "compositing",
			Message:   err.Error(),
		}); saveErr != nil {
			logger.Warn("could not persist render outcome", logging.Error(saveErr))
		}
		return
	}

	writeCtx := context.Background()
	if _, err := c.machine.UpdateStage(writeCtx, projectID, project.StageRender, map[string]any{
		"output_path": result.OutputPath,
	}); err != nil {
		logger.Error("could not record render output", logging.Error(err))
		return
	}
	if _, err := c.machine.Advance(writeCtx, projectID); err != nil {
		logger.Error("could not advance to completion", logging.Error(err))
		return
	}
	if err := c.store.SaveRenderProgress(writeCtx, project.RenderProgress{
		ProjectID: projectID,
		Status:    project.RenderStatusCompleted,
		Percent:   100,
		Stage:     "done",
		Message:   result.OutputPath,
	}); err != nil {
		logger.Warn("could not persist render outcome", logging.Error(err))
	}
	logger.Info("render complete",
		logging.String("output", result.OutputPath),
		logging.Int64("size_bytes", result.SizeBytes),
		logging.Duration("elapsed", time.Since(start)))
}

// buildJob assembles a composition job from the project's stage bags.
func (c *Coordinator) buildJob(p *project.Project) (compose.Job, error) {
	narration := p.Bag(project.StageNarration)
	assets := p.Bag(project.StageAssets)
	render := p.Bag(project.StageRender)

	avatarPath := assets.PathValue("avatar")
	if avatarPath == "" {
		return compose.Job{}, &compose.MissingInputError{Input: "avatar", Path: avatarPath}
	}
	audioPath := narration.PathValue("path")
	if audioPath == "" {
		return compose.Job{}, &compose.MissingInputError{Input: "audio", Path: audioPath}
	}

	avatar := compose.StaticAvatar(avatarPath)
	if assets.PathValue("avatar_kind") == string(compose.AvatarPreSynced) {
		avatar = compose.PreSyncedAvatar(avatarPath)
	}

	quality := render.PathValue("quality")
	if quality == "" {
		quality = c.cfg.FFmpeg.DefaultQuality
	}
	aspect := render.PathValue("aspect")
	if aspect == "" {
		aspect = c.cfg.FFmpeg.DefaultAspect
	}

	return compose.Job{
		Avatar:         avatar,
		AudioPath:      audioPath,
		BackgroundPath: assets.PathValue("background"),
		LogoPath:       assets.PathValue("logo"),
		OutputPath:     filepath.Join(c.cfg.Paths.OutputDir, p.ID+".mp4"),
		Quality:        compose.ParseQuality(quality),
		Aspect:         compose.ParseAspect(aspect),
	}, nil
}

func (c *Coordinator) release(projectID string) {
	c.mu.Lock()
	delete(c.active, projectID)
	c.mu.Unlock()
}

// Cancel stops a running render. The progress record moves to cancelled
// once the render goroutine observes the cancellation.
func (c *Coordinator) Cancel(projectID string) error {
	c.mu.Lock()
	handle, ok := c.active[projectID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, ErrNoRenderActive)
	}
	handle.cancel()
	return nil
}

// Status returns the latest persisted progress record, or (nil, nil) when
// no render has run for the project.
func (c *Coordinator) Status(ctx context.Context, projectID string) (*project.RenderProgress, error) {
	return c.store.RenderProgressFor(ctx, projectID)
}

// Wait blocks until the project's running render finishes. Returns
// immediately when none is running.
func (c *Coordinator) Wait(projectID string) {
	c.mu.Lock()
	handle, ok := c.active[projectID]
	c.mu.Unlock()
	if ok {
		<-handle.done
	}
}
