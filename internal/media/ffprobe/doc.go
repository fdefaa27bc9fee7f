// Package ffprobe inspects media files through the ffprobe binary.
//
// Inspect shells out with JSON output enabled and decodes the container
// and stream metadata the pipeline cares about: duration, size, codecs,
// resolution, and bitrates. Duration is the convenience entry point the
// composition engine uses to derive render timing from narration audio.
package ffprobe
