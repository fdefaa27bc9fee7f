package compose

import "strings"

// Quality selects the encoding tier for a render.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	Quality4K     Quality = "4k"
)

// QualitySettings is the resolved tuple behind a quality preset.
type QualitySettings struct {
	Tier    string
	Bitrate string
	FPS     int
	Codec   string
}

var qualitySettings = map[Quality]QualitySettings{
	QualityLow:    {Tier: "720p", Bitrate: "2M", FPS: 24, Codec: "libx264"},
	QualityMedium: {Tier: "1080p", Bitrate: "5M", FPS: 30, Codec: "libx264"},
	QualityHigh:   {Tier: "1080p", Bitrate: "10M", FPS: 30, Codec: "libx264"},
	Quality4K:     {Tier: "2160p", Bitrate: "35M", FPS: 30, Codec: "libx265"},
}

// ParseQuality resolves a preset name. Unknown values fall back to high;
// presets are a convenience layer, not a contract callers must get right.
func ParseQuality(value string) Quality {
	q := Quality(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := qualitySettings[q]; !ok {
		return QualityHigh
	}
	return q
}

// Settings returns the resolved tuple for the preset.
func (q Quality) Settings() QualitySettings {
	if settings, ok := qualitySettings[q]; ok {
		return settings
	}
	return qualitySettings[QualityHigh]
}

// Aspect selects the output frame shape for a render.
type Aspect string

const (
	AspectPortrait Aspect = "9:16" // TikTok / Reels
	AspectWide     Aspect = "16:9" // YouTube horizontal
	AspectSquare   Aspect = "1:1"  // square
	AspectTall     Aspect = "4:5"  // portrait feed
)

var aspectDimensions = map[Aspect][2]int{
	AspectPortrait: {1080, 1920},
	AspectWide:     {1920, 1080},
	AspectSquare:   {1080, 1080},
	AspectTall:     {1080, 1350},
}

// ParseAspect resolves an aspect preset. Unknown values fall back to 9:16.
func ParseAspect(value string) Aspect {
	a := Aspect(strings.TrimSpace(value))
	if _, ok := aspectDimensions[a]; !ok {
		return AspectPortrait
	}
	return a
}

// Dimensions returns the explicit pixel width and height for the preset.
func (a Aspect) Dimensions() (int, int) {
	dims, ok := aspectDimensions[a]
	if !ok {
		dims = aspectDimensions[AspectPortrait]
	}
	return dims[0], dims[1]
}
