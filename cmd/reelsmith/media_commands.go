package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/compose"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Standalone media operations",
	}
	cmd.AddCommand(
		newMediaInspectCommand(ctx),
		newMediaExtractAudioCommand(ctx),
		newMediaBurnCaptionsCommand(ctx),
		newMediaMixMusicCommand(ctx),
	)
	return cmd
}

func newMediaInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Probe a media file and summarize its streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				info, err := a.engine.Inspect(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Format", info.Format},
					{"Duration", fmt.Sprintf("%.2fs", info.DurationSeconds)},
					{"Size", fmt.Sprintf("%d bytes", info.SizeBytes)},
				}
				if info.BitRate > 0 {
					rows = append(rows, []string{"Bit rate", fmt.Sprintf("%d b/s", info.BitRate)})
				}
				if info.VideoCodec != "" {
					rows = append(rows,
						[]string{"Video", info.VideoCodec},
						[]string{"Resolution", info.Resolution},
						[]string{"FPS", fmt.Sprintf("%.2f", info.FPS)},
					)
				}
				if info.AudioCodec != "" {
					rows = append(rows,
						[]string{"Audio", info.AudioCodec},
						[]string{"Sample rate", info.SampleRate},
						[]string{"Channels", strconv.Itoa(info.Channels)},
					)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
				return nil
			})
		},
	}
}

func newMediaExtractAudioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extract-audio <video> <output>",
		Short: "Extract the audio track from a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				if err := a.engine.ExtractAudio(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
				return nil
			})
		},
	}
}

func newMediaBurnCaptionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "burn-captions <video> <cue-file> <output>",
		Short: "Burn timed captions into a video",
		Long: `Burn timed captions into a video.

The cue file holds one caption per line as "start|end|text", with start
and end in seconds. Blank lines and lines starting with # are skipped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			captions, err := loadCueFile(args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				if err := a.engine.BurnCaptions(cmd.Context(), args[0], args[2], captions); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d captions)\n", args[2], len(captions))
				return nil
			})
		},
	}
}

func newMediaMixMusicCommand(ctx *commandContext) *cobra.Command {
	var volume float64
	var fadeIn, fadeOut float64

	cmd := &cobra.Command{
		Use:   "mix-music <video> <music> <output>",
		Short: "Blend a background music track under a video's narration",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				opts := compose.MusicOptions{Volume: volume, FadeIn: fadeIn, FadeOut: fadeOut}
				if err := a.engine.MixMusic(cmd.Context(), args[0], args[1], args[2], opts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[2])
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 0.3, "Music volume relative to narration")
	cmd.Flags().Float64Var(&fadeIn, "fade-in", 2.0, "Music fade-in seconds")
	cmd.Flags().Float64Var(&fadeOut, "fade-out", 2.0, "Music fade-out seconds")
	return cmd
}

func loadCueFile(path string) ([]compose.Caption, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cue file: %w", err)
	}
	defer file.Close()

	var captions []compose.Caption
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("cue file line %d: expected start|end|text", lineNo)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("cue file line %d: bad start time: %w", lineNo, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("cue file line %d: bad end time: %w", lineNo, err)
		}
		captions = append(captions, compose.Caption{
			Start: time.Duration(start * float64(time.Second)),
			End:   time.Duration(end * float64(time.Second)),
			Text:  parts[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cue file: %w", err)
	}
	return captions, nil
}
