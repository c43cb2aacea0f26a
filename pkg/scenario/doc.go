// Package scenario replays scripted sequences of writes against reactive
// state and records what the subscribers observed.
//
// A scenario file declares a map of initial state, computed sums over it,
// effects that read keys or computeds, and a list of steps:
//
//	name: double
//	state:
//	  count: 1
//	effects:
//	  - name: double
//	    reads: [count]
//	steps:
//	  - set: {key: count, value: 2}
//	  - expect:
//	      runs: {double: 2}
//
// Run applies the steps and returns a trace such as
//
//	run double count=1
//	set count = 2
//	run double count=2
//	expect ok
//
// Traces are deterministic, which makes them suitable for golden files.
package scenario
