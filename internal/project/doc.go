// Package project owns pipeline state: the ordered stage sequence, the
// prerequisite graph, per-stage completion predicates, the persisted
// project document, and the guarded state machine that advances projects
// through the pipeline.
//
// The Store persists one JSON document per project in SQLite alongside the
// render-progress records the composition engine checkpoints during a
// render. The Machine serializes every state-mutating operation per
// project, so concurrent callers cannot both pass the same prerequisite
// check.
//
// Treat this package as the single source of truth for stage semantics;
// when adding a stage, extend the order, the prerequisite map, and the
// completion predicate together.
package project
