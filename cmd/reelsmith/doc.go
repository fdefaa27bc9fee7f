// Command reelsmith manages video production projects: a staged pipeline
// from topic selection through script, narration, and assets to a rendered
// short-form video.
package main
