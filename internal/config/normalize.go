package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.ProjectsDir, err = expandPath(orDefault(c.Paths.ProjectsDir, defaultProjectsDir)); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(orDefault(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(orDefault(c.Paths.TempDir, defaultTempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.FFmpeg.FFmpegBinary = orDefault(c.FFmpeg.FFmpegBinary, defaultFFmpegBinary)
	c.FFmpeg.FFprobeBinary = orDefault(c.FFmpeg.FFprobeBinary, defaultFFprobeBinary)
	c.FFmpeg.DefaultQuality = strings.ToLower(orDefault(c.FFmpeg.DefaultQuality, defaultQuality))
	c.FFmpeg.DefaultAspect = orDefault(c.FFmpeg.DefaultAspect, defaultAspect)
	c.FFmpeg.AudioBitrate = orDefault(c.FFmpeg.AudioBitrate, defaultAudioBitrate)
	if c.FFmpeg.FallbackDurationSeconds <= 0 {
		c.FFmpeg.FallbackDurationSeconds = defaultFallbackSeconds
	}

	if c.Workflow.ProgressPersistIntervalSeconds <= 0 {
		c.Workflow.ProgressPersistIntervalSeconds = defaultProgressPersistInterval
	}
	if c.Workflow.RenderPollIntervalSeconds <= 0 {
		c.Workflow.RenderPollIntervalSeconds = defaultRenderPollInterval
	}

	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
