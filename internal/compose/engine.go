package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
)

// ProbeFunc resolves a media file's duration in seconds.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// ProgressFunc receives render progress as a fraction of the planned
// duration, in [0, 100].
type ProgressFunc func(percent float64)

// RenderOptions carries per-render knobs.
type RenderOptions struct {
	Progress ProgressFunc
}

// Engine composes avatar, narration, and optional brand assets into a
// finished video. Each Render call is self-contained; the engine holds no
// per-job state.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
	runner Runner
	probe  ProbeFunc
}

// NewEngine creates an engine backed by the configured ffmpeg and ffprobe
// binaries.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	runner := NewCLI(cfg.FFmpeg.FFmpegBinary, logger)
	probe := func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.FFmpeg.FFprobeBinary, path)
	}
	return NewEngineWithDependencies(cfg, logger, runner, probe)
}

// NewEngineWithDependencies creates an engine with explicit collaborators.
// Tests use this to substitute a fake runner and probe.
func NewEngineWithDependencies(cfg *config.Config, logger *slog.Logger, runner Runner, probe ProbeFunc) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "compose"),
		runner: runner,
		probe:  probe,
	}
}

// Available reports whether the configured transcoder binary can be found.
func (e *Engine) Available() error {
	if _, err := exec.LookPath(e.cfg.FFmpeg.FFmpegBinary); err != nil {
		return fmt.Errorf("transcoder unavailable: %w", err)
	}
	return nil
}

// Render composes the job into job.OutputPath. Mandatory inputs absent from
// disk reject the job before any transcoder work; optional inputs absent
// from disk are dropped with a warning. A partial output file is removed on
// failure or cancellation.
func (e *Engine) Render(ctx context.Context, job Job, opts RenderOptions) (*Result, error) {
	if err := requireFile("avatar", job.Avatar.Path); err != nil {
		return nil, err
	}
	if err := requireFile("audio", job.AudioPath); err != nil {
		return nil, err
	}
	job.BackgroundPath = e.optionalFile("background", job.BackgroundPath)
	job.LogoPath = e.optionalFile("logo", job.LogoPath)

	duration := e.resolveDuration(ctx, job.AudioPath)
	width, height := job.Aspect.Dimensions()
	settings := job.Quality.Settings()

	plan, err := buildPlan(job, width, height, settings, duration, e.cfg.FFmpeg.AudioBitrate)
	if err != nil {
		return nil, err
	}

	e.logger.Info("starting composition",
		logging.String("avatar_kind", string(job.Avatar.Kind)),
		logging.String("quality", string(job.Quality)),
		logging.String("aspect", string(job.Aspect)),
		logging.Float64("duration_seconds", duration),
		logging.String("output", job.OutputPath))

	req := Request{Args: plan.Args}
	if opts.Progress != nil {
		req.Progress = func(seconds float64) {
			percent := 0.0
			if plan.Duration > 0 {
				percent = seconds / plan.Duration * 100
			}
			if percent > 100 {
				percent = 100
			}
			opts.Progress(percent)
		}
	}

	diagnostics, runErr := e.runner.Run(ctx, req)
	if runErr != nil {
		e.removePartial(job.OutputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newTranscodeError(diagnostics)
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		e.removePartial(job.OutputPath)
		return nil, newTranscodeError("transcoder exited cleanly but produced no output")
	}

	e.logger.Info("composition complete",
		logging.String("output", job.OutputPath),
		logging.Int64("size_bytes", info.Size()))

	return &Result{
		OutputPath:      job.OutputPath,
		DurationSeconds: plan.Duration,
		Resolution:      fmt.Sprintf("%dx%d", width, height),
		Codec:           settings.Codec,
		SizeBytes:       info.Size(),
	}, nil
}

// resolveDuration probes the narration audio, falling back to the configured
// default when the probe fails.
func (e *Engine) resolveDuration(ctx context.Context, audioPath string) float64 {
	duration, err := e.probe(ctx, audioPath)
	if err != nil || duration <= 0 {
		fallback := e.cfg.FFmpeg.FallbackDurationSeconds
		e.logger.Warn("audio probe failed, using fallback duration",
			logging.String("audio", audioPath),
			logging.Float64("fallback_seconds", fallback),
			logging.Error(err))
		return fallback
	}
	return duration
}

func (e *Engine) optionalFile(name, path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		e.logger.Warn("optional input missing, dropping from composition",
			logging.String("input", name),
			logging.String("path", path))
		return ""
	}
	return path
}

func (e *Engine) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("could not remove partial output",
			logging.String("path", path),
			logging.Error(err))
	}
}

func requireFile(name, path string) error {
	if path == "" {
		return &MissingInputError{Input: name, Path: path}
	}
	if _, err := os.Stat(path); err != nil {
		return &MissingInputError{Input: name, Path: path}
	}
	return nil
}
