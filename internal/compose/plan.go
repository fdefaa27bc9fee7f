package compose

import (
	"fmt"
	"math"
	"strconv"
)

// fadeSeconds is the avatar fade envelope length in static mode.
const fadeSeconds = 1.0

// Plan is one fully assembled transcoder invocation. Each Render builds a
// disjoint Plan; nothing is reused between invocations.
type Plan struct {
	Args         []string
	Graph        *Graph
	Duration     float64
	FadeOutStart float64
	Width        int
	Height       int
	Settings     QualitySettings
	AudioInput   int
}

// buildPlan synthesizes the filter graph and argument list for a job whose
// optional inputs have already been resolved against the filesystem.
func buildPlan(job Job, width, height int, settings QualitySettings, duration float64, audioBitrate string) (*Plan, error) {
	type input struct {
		flags []string
		path  string
	}
	var inputs []input
	addInput := func(flags []string, path string) int {
		inputs = append(inputs, input{flags: flags, path: path})
		return len(inputs) - 1
	}

	graph := &Graph{}
	fadeOutStart := roundSeconds(duration - fadeSeconds)
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	var avatarIdx, bgIdx, logoIdx int
	hasBackground := job.BackgroundPath != ""
	hasLogo := job.LogoPath != ""

	switch job.Avatar.Kind {
	case AvatarPreSynced:
		avatarIdx = addInput(nil, job.Avatar.Path)
		if hasBackground {
			bgIdx = addInput(nil, job.BackgroundPath)
		}
		if hasLogo {
			logoIdx = addInput([]string{"-loop", "1"}, job.LogoPath)
		}

		if hasBackground {
			graph.Add(canvasScale(width, height)+",setsar=1", "bg", streamRef(bgIdx, "v"))
		} else {
			graph.Add(fmt.Sprintf("color=c=black:s=%dx%d:d=%s", width, height, formatSeconds(duration)), "bg")
		}
		avatarWidth := int(float64(width) * 0.6)
		graph.Add(avatarScale(avatarWidth, width, height), "avatar", streamRef(avatarIdx, "v"))
		graph.Add("overlay=(W-w)/2:(H-h)/2+50", "overlay", "bg", "avatar")
		if hasLogo {
			graph.Add(fmt.Sprintf("scale=%d:-1", int(float64(width)*0.15)), "logo", streamRef(logoIdx, "v"))
			inset := int(float64(width) * 0.03)
			graph.Add(fmt.Sprintf("overlay=W-w-%d:%d", inset, inset), "composite", "overlay", "logo")
		}

	default: // AvatarStatic
		avatarIdx = addInput([]string{"-loop", "1", "-framerate", strconv.Itoa(settings.FPS)}, job.Avatar.Path)
		if hasBackground {
			bgIdx = addInput([]string{"-stream_loop", "-1"}, job.BackgroundPath)
		}
		if hasLogo {
			logoIdx = addInput([]string{"-loop", "1"}, job.LogoPath)
		}

		if hasBackground {
			graph.Add(canvasScale(width, height)+",setsar=1", "bg", streamRef(bgIdx, "v"))
		} else {
			// No background supplied: a slow zoom keeps the canvas from
			// sitting perfectly still for the whole narration.
			graph.Add(fmt.Sprintf("color=c=#1a1a2e:s=%dx%d:d=%s", width, height, formatSeconds(duration)), "canvas")
			graph.Add(kenBurns(width, height, duration, settings.FPS), "bg", "canvas")
		}
		avatarWidth := int(float64(width) * 0.7)
		graph.Add(
			avatarScale(avatarWidth, width, height)+
				fmt.Sprintf(",fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s",
					formatSeconds(fadeSeconds), formatSeconds(fadeOutStart), formatSeconds(fadeSeconds)),
			"avatar", streamRef(avatarIdx, "v"),
		)
		graph.Add("overlay=(W-w)/2:(H-h)/2+80", "overlay", "bg", "avatar")
		if hasLogo {
			logoFadeOut := roundSeconds(duration - 0.5)
			if logoFadeOut < 0 {
				logoFadeOut = 0
			}
			graph.Add(
				fmt.Sprintf("scale=%d:-1,fade=t=in:st=0:d=0.5,fade=t=out:st=%s:d=0.5",
					int(float64(width)*0.12), formatSeconds(logoFadeOut)),
				"logo", streamRef(logoIdx, "v"),
			)
			inset := int(float64(width) * 0.03)
			graph.Add(fmt.Sprintf("overlay=W-w-%d:%d", inset, inset), "composite", "overlay", "logo")
		}
	}

	audioIdx := addInput(nil, job.AudioPath)

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, in.flags...)
		args = append(args, "-i", in.path)
	}
	args = append(args,
		"-filter_complex", graph.FilterComplex(),
		"-map", "["+graph.FinalOutput()+"]",
		"-map", streamRef(audioIdx, "a"),
		"-c:v", settings.Codec,
		"-b:v", settings.Bitrate,
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(settings.FPS),
		"-t", formatSeconds(duration),
		job.OutputPath,
	)

	return &Plan{
		Args:         args,
		Graph:        graph,
		Duration:     duration,
		FadeOutStart: fadeOutStart,
		Width:        width,
		Height:       height,
		Settings:     settings,
		AudioInput:   audioIdx,
	}, nil
}

func streamRef(index int, kind string) string {
	return fmt.Sprintf("%d:%s", index, kind)
}

// canvasScale fits an input into the output canvas, padding to center.
func canvasScale(width, height int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height,
	)
}

// avatarScale fits the avatar into a reduced box, padded onto the canvas.
func avatarScale(avatarWidth, width, height int) string {
	avatarHeight := int(float64(avatarWidth) * 0.5625)
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		avatarWidth, avatarHeight, width, height,
	)
}

// kenBurns builds a slow zoom over the canvas for the full duration.
func kenBurns(width, height int, duration float64, fps int) string {
	frames := int(duration * float64(fps))
	if frames < 1 {
		frames = 1
	}
	return fmt.Sprintf(
		"zoompan=z='min(zoom+0.001,1.1)':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%d",
		frames, width, height, fps,
	)
}

// formatSeconds renders a duration for filter expressions, rounded to
// milliseconds with no trailing zeros.
func formatSeconds(value float64) string {
	return strconv.FormatFloat(roundSeconds(value), 'f', -1, 64)
}

func roundSeconds(value float64) float64 {
	return math.Round(value*1000) / 1000
}
