package config

const (
	defaultProjectsDir     = "~/.local/share/reelsmith/projects"
	defaultOutputDir       = "~/.local/share/reelsmith/output"
	defaultTempDir         = "~/.local/share/reelsmith/temp"
	defaultLogDir          = "~/.local/share/reelsmith/logs"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultQuality         = "high"
	defaultAspect          = "9:16"
	defaultFallbackSeconds = 30.0
	defaultAudioBitrate    = "192k"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"

	defaultProgressPersistInterval = 2
	defaultRenderPollInterval      = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectsDir: defaultProjectsDir,
			OutputDir:   defaultOutputDir,
			TempDir:     defaultTempDir,
			LogDir:      defaultLogDir,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:            defaultFFmpegBinary,
			FFprobeBinary:           defaultFFprobeBinary,
			DefaultQuality:          defaultQuality,
			DefaultAspect:           defaultAspect,
			FallbackDurationSeconds: defaultFallbackSeconds,
			AudioBitrate:            defaultAudioBitrate,
		},
		Workflow: Workflow{
			ProgressPersistIntervalSeconds: defaultProgressPersistInterval,
			RenderPollIntervalSeconds:      defaultRenderPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
