// Package pipeline coordinates render jobs over the project state machine
// and the composition engine. It owns the one-render-per-project guarantee,
// checkpoints progress to the store, and writes the output path back into
// project state on success.
package pipeline
