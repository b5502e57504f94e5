// Package engine implements the patchbay reconciliation engine.
//
// The engine owns a graph of audio nodes built from a compiled program.
// When the program changes, the engine diffs the committed program against
// the new one and patches the running graph instead of rebuilding it, so
// nodes whose identity did not change keep their state (oscillator phase,
// filter memory) across the edit.
//
// EDIT CYCLE:
//
//  1. Compile source text into an ir.Program (Parse)
//  2. Reconcile: diff the committed program against the new one into a Plan
//  3. Check references: every ~ref resolves and no reference cycle exists
//  4. Pre-check: every plan position fits the live chain index
//  5. Apply: delete chains, remove nodes, add nodes, update parameters
//  6. Connect: rebuild every edge and the render schedule
//  7. Commit: the new program becomes the committed one
//
// Steps 1 to 4 can reject the cycle; nothing is mutated before step 5, so a
// rejected cycle leaves the engine exactly as it was. Steps 5 to 7 cannot
// fail on a checked plan; a failure there is a bug and panics.
//
// RENDERING:
//
// RenderBlock walks the schedule built in step 6. It never allocates,
// locks, or validates.
//
// CONCURRENCY:
//
// The engine performs no locking. Edit cycles and RenderBlock must not
// overlap; live.Session provides the serialization.
package engine
