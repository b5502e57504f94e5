// Package graph provides a directed graph with stable node handles.
//
// Nodes live in an arena of slots. A Handle names a slot together with the
// generation the slot had when the node was added, so removing one node
// never invalidates the handle of another, and a handle to a removed node
// can never alias the node that later reuses its slot.
//
// Edges carry no identity. Each node keeps its incoming edges in insertion
// order; that order is the order in which Schedule's caller should present
// inputs to the node.
//
// # Thread-Safety
//
// Graph is NOT safe for concurrent use. Its single owner serializes access.
package graph
