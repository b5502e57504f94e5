// Package node implements the catalog of audio processing units.
//
// A Node consumes zero or more input blocks and writes exactly one output
// block per Process call. Every block in an engine has the same length.
// Nodes are built by name through a Registry and reconfigured at runtime
// through Send.
//
// # Inputs
//
// Process receives inputs in a fixed order: the chain predecessor first
// (when the node is not at the head of its chain), then one input per
// "~ref" argument in argument order. A reference argument reads its value
// per sample from the matching input.
//
// # Real-time Constraints
//
// Process is called on the audio thread. Implementations must not
// allocate, block, or log. Send runs on the control path and may allocate.
package node
