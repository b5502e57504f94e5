// Package harness runs edit-cycle scenarios against a live session.
//
// A scenario is a YAML file: a sequence of steps (program edits, rendered
// blocks, control messages) with per-step expectations, followed by
// assertions on the final graph, output, and journal.
//
// # Scenario Format
//
//	name: add_then_extend
//	description: "Extending a chain keeps its existing nodes"
//	steps:
//	  - source: "a: sin 440 >> mul 0.5"
//	    expect:
//	      status: committed
//	      plan: ["add a[0] sin 440", "add a[1] mul 0.5"]
//	  - source: "a: sin 880 >> mul 0.5 >> lpf 2000"
//	  - render: 4
//	  - send: { chain: a, position: 0, value: "220" }
//	    expect: { status: ok }
//	assertions:
//	  - type: chain_length
//	    chain: a
//	    count: 3
//	  - type: chain_edges
//	    chain: a
//	    edges: ["a/sin->a/mul", "a/mul->a/lpf", "a/lpf->sum"]
//	  - type: same_node
//	    node: a[0]
//	    step: 0
//
// # Assertion Types
//
//   - chain_length: the chain has count nodes
//   - chain_absent: the chain is not in the index
//   - chain_edges: edges leaving the chain's nodes, exactly
//   - node_count: graph size, aggregation node included
//   - generation: committed generation
//   - same_node: node is the same instance as node (or was) after step
//   - output: every sample of the last rendered block equals value
//   - plan_contains: some committed plan has the given trace line
//   - journal: committed and rejected cycle counts in the journal
//
// # Determinism
//
// Every scenario runs on a fresh engine and an in-memory journal with a
// fixed session ID, so the trace of a scenario is stable and can be
// compared against a golden file (RunWithGolden).
package harness
