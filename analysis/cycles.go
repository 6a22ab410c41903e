// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"github.com/aclements/d2/graph"
)

// forEachEdgeCycle enumerates the simple cycles of the lock
// multigraph and calls f once per cycle, presented as the sequence of
// its edges. Vertex cycles come from Johnson's algorithm, each once
// up to rotation; every combination of parallel edges along a vertex
// cycle is a distinct cycle of the multigraph and is presented
// separately. The edge slice is reused between calls; f must not
// retain it.
func forEachEdgeCycle(lg *graph.LockGraph, f func(cycle []graph.Edge)) {
	for _, vcycle := range lg.VertexCycles() {
		n := len(vcycle)
		// Parallel edge labels along each hop of the cycle.
		choices := make([][]*graph.EdgeLabel, n)
		for i, from := range vcycle {
			to := vcycle[(i+1)%n]
			choices[i] = lg.EdgesBetween(from, to)
		}

		cycle := make([]graph.Edge, n)
		var expand func(i int)
		expand = func(i int) {
			if i == n {
				f(cycle)
				return
			}
			from, to := vcycle[i], vcycle[(i+1)%n]
			for _, label := range choices[i] {
				cycle[i] = graph.Edge{From: from, To: to, Label: label}
				expand(i + 1)
			}
		}
		expand(0)
	}
}

// CountCycles returns the number of simple cycles of the lock
// multigraph, self loops included. It powers the analyzer's
// statistics output.
func CountCycles(lg *graph.LockGraph) int {
	n := 0
	forEachEdgeCycle(lg, func([]graph.Edge) { n++ })
	return n + len(lg.SelfEdges())
}
