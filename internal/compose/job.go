package compose

// AvatarKind is the provenance of the avatar asset, set by the producing
// collaborator rather than inferred from the file extension.
type AvatarKind string

const (
	// AvatarPreSynced marks an avatar video already lip-synced upstream.
	AvatarPreSynced AvatarKind = "presynced"
	// AvatarStatic marks a still image; the fallback whenever the avatar
	// service did not perform lip-sync.
	AvatarStatic AvatarKind = "static"
)

// Avatar pairs the asset path with its provenance.
type Avatar struct {
	Kind AvatarKind
	Path string
}

// PreSyncedAvatar describes an already lip-synced avatar video.
func PreSyncedAvatar(path string) Avatar {
	return Avatar{Kind: AvatarPreSynced, Path: path}
}

// StaticAvatar describes a still avatar image.
func StaticAvatar(path string) Avatar {
	return Avatar{Kind: AvatarStatic, Path: path}
}

// Job is the transient description of one composition: recomputed from
// project state on every invocation, never persisted, never shared between
// invocations.
type Job struct {
	Avatar         Avatar
	AudioPath      string
	BackgroundPath string // optional; dropped silently when absent on disk
	LogoPath       string // optional; dropped silently when absent on disk
	OutputPath     string
	Quality        Quality
	Aspect         Aspect
}

// Result reports a completed composition.
type Result struct {
	OutputPath      string  `json:"output_path"`
	DurationSeconds float64 `json:"duration_seconds"`
	Resolution      string  `json:"resolution"`
	Codec           string  `json:"codec"`
	SizeBytes       int64   `json:"size_bytes"`
}
