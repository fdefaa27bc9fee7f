package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
)

// MusicOptions tunes background music mixing.
type MusicOptions struct {
	// Volume scales the music track relative to narration. Zero means the
	// default of 0.3.
	Volume  float64
	FadeIn  float64
	FadeOut float64
}

func (o MusicOptions) withDefaults() MusicOptions {
	if o.Volume <= 0 {
		o.Volume = 0.3
	}
	if o.FadeIn <= 0 {
		o.FadeIn = 2.0
	}
	if o.FadeOut <= 0 {
		o.FadeOut = 2.0
	}
	return o
}

// BurnCaptions renders captions into the video as burned-in subtitles. The
// audio stream is copied unchanged.
func (e *Engine) BurnCaptions(ctx context.Context, videoPath, outputPath string, captions []Caption) error {
	if err := requireFile("video", videoPath); err != nil {
		return err
	}

	srtFile, err := os.CreateTemp(e.cfg.Paths.TempDir, "captions-*.srt")
	if err != nil {
		return fmt.Errorf("create caption file: %w", err)
	}
	srtPath := srtFile.Name()
	defer os.Remove(srtPath)
	if _, err := srtFile.WriteString(formatSRT(captions)); err != nil {
		srtFile.Close()
		return fmt.Errorf("write caption file: %w", err)
	}
	if err := srtFile.Close(); err != nil {
		return fmt.Errorf("write caption file: %w", err)
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", "subtitles=" + escapeFilterPath(srtPath),
		"-c:a", "copy",
		outputPath,
	}

	e.logger.Info("burning captions",
		logging.String("video", videoPath),
		logging.Int("captions", len(captions)))

	diagnostics, err := e.runner.Run(ctx, Request{Args: args})
	if err != nil {
		e.removePartial(outputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return newTranscodeError(diagnostics)
	}
	return nil
}

// MixMusic blends a background music track under the video's narration.
// Music volume is ducked and faded at both ends; the video stream is copied
// unchanged.
func (e *Engine) MixMusic(ctx context.Context, videoPath, musicPath, outputPath string, opts MusicOptions) error {
	if err := requireFile("video", videoPath); err != nil {
		return err
	}
	if err := requireFile("music", musicPath); err != nil {
		return err
	}
	opts = opts.withDefaults()

	duration := e.resolveDuration(ctx, videoPath)
	fadeOutStart := duration - opts.FadeOut
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	filter := fmt.Sprintf(
		"[1:a]volume=%s,afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s[music];"+
			"[0:a][music]amix=inputs=2:duration=first[aout]",
		formatSeconds(opts.Volume),
		formatSeconds(opts.FadeIn),
		formatSeconds(fadeOutStart),
		formatSeconds(opts.FadeOut),
	)

	args := []string{
		"-y",
		"-i", videoPath,
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", e.cfg.FFmpeg.AudioBitrate,
		outputPath,
	}

	e.logger.Info("mixing background music",
		logging.String("video", videoPath),
		logging.String("music", musicPath),
		logging.Float64("volume", opts.Volume))

	diagnostics, err := e.runner.Run(ctx, Request{Args: args})
	if err != nil {
		e.removePartial(outputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return newTranscodeError(diagnostics)
	}
	return nil
}

// ExtractAudio pulls the audio track out of a video. The codec follows the
// output extension: .mp3 gets libmp3lame, everything else aac.
func (e *Engine) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	if err := requireFile("video", videoPath); err != nil {
		return err
	}

	codec := "aac"
	if strings.EqualFold(filepath.Ext(outputPath), ".mp3") {
		codec = "libmp3lame"
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-c:a", codec,
		"-b:a", e.cfg.FFmpeg.AudioBitrate,
		outputPath,
	}

	e.logger.Info("extracting audio",
		logging.String("video", videoPath),
		logging.String("codec", codec))

	diagnostics, err := e.runner.Run(ctx, Request{Args: args})
	if err != nil {
		e.removePartial(outputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return newTranscodeError(diagnostics)
	}
	return nil
}

// MediaInfo is a human-facing summary of a probed file.
type MediaInfo struct {
	Path            string  `json:"path"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	BitRate         int64   `json:"bit_rate,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	FPS             float64 `json:"fps,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	SampleRate      string  `json:"sample_rate,omitempty"`
	Channels        int     `json:"channels,omitempty"`
}

// Inspect probes a media file and summarizes its streams.
func (e *Engine) Inspect(ctx context.Context, path string) (*MediaInfo, error) {
	if err := requireFile("media", path); err != nil {
		return nil, err
	}

	result, err := ffprobe.Inspect(ctx, e.cfg.FFmpeg.FFprobeBinary, path)
	if err != nil {
		return nil, err
	}

	info := &MediaInfo{
		Path:            path,
		Format:          result.Format.FormatName,
		DurationSeconds: result.DurationSeconds(),
		SizeBytes:       result.SizeBytes(),
		BitRate:         result.BitRateBPS(),
	}
	if video := result.VideoStream(); video != nil {
		info.VideoCodec = video.CodecName
		info.Resolution = fmt.Sprintf("%dx%d", video.Width, video.Height)
		info.FPS = video.FPS()
	}
	if audio := result.AudioStream(); audio != nil {
		info.AudioCodec = audio.CodecName
		info.SampleRate = audio.SampleRate
		info.Channels = audio.Channels
	}
	return info, nil
}

// escapeFilterPath quotes a path for use inside a filter expression.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	return path
}
