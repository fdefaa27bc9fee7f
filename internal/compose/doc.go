// Package compose synthesizes and executes video composition jobs.
//
// The engine layers narration audio under an avatar visual, with optional
// background and logo overlays, at a requested quality and aspect ratio.
// Filter graphs are built as typed step lists and validated for label
// well-formedness before being serialized to ffmpeg's filter_complex
// syntax, so overlay ordering bugs surface in tests instead of as silent
// corruption.
//
// Two composition modes exist, chosen by avatar provenance: pre-synchronized
// (the avatar is already a lip-synced video) and static (a still image
// looped for the narration duration with fade and Ken Burns treatment).
// Auxiliary operations (caption burn-in, background-music mixing, audio
// extraction, media introspection) reuse the same runner but never touch
// project state; the pipeline coordinator records their outputs.
package compose
