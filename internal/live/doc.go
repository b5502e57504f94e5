// Package live runs an engine for a performer: edits arrive from a control
// path (file watcher, CLI) while an audio driver pulls blocks.
//
// Session is the serializer the engine requires. Edit cycles and control
// messages take its lock; Process, called from the audio callback, only
// tries the lock and renders silence for a block whose deadline would
// otherwise be spent waiting on an edit.
//
// Every edit cycle can be journaled (see package store) and observed
// through Prometheus metrics. Replay re-runs a journaled session through a
// fresh engine and reports any cycle whose plan differs from the record.
package live
