package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	if c.Paths.ProjectsDir == "" {
		return fmt.Errorf("paths.projects_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir must be set")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if strings.Contains(c.FFmpeg.FFmpegBinary, " ") {
		return fmt.Errorf("ffmpeg.ffmpeg_binary must be a bare binary name or path")
	}
	return nil
}
