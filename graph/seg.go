// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/aclements/d2/event"
)

// A SegGraph is the segmentation graph: a DAG over segments whose
// edges record the happens-before relation induced by thread starts
// and joins. It is grown only by the builder; once built it is
// read-only and HappensBefore may be called freely.
type SegGraph struct {
	g    *simple.DirectedGraph
	idx  map[event.Segment]int64
	segs map[int64]event.Segment

	// reach is the transitive closure, computed on first use.
	// reach[s] holds every segment reachable from s in one or more
	// steps.
	reach map[event.Segment]map[event.Segment]bool
}

// NewSegGraph returns an empty segmentation graph.
func NewSegGraph() *SegGraph {
	return &SegGraph{
		g:    simple.NewDirectedGraph(),
		idx:  make(map[event.Segment]int64),
		segs: make(map[int64]event.Segment),
	}
}

// NumSegments returns the number of segments in the graph.
func (sg *SegGraph) NumSegments() int { return len(sg.idx) }

// Has reports whether s appears in the graph.
func (sg *SegGraph) Has(s event.Segment) bool {
	_, ok := sg.idx[s]
	return ok
}

func (sg *SegGraph) ensure(s event.Segment) int64 {
	if id, ok := sg.idx[s]; ok {
		return id
	}
	n := sg.g.NewNode()
	sg.g.AddNode(n)
	sg.idx[s] = n.ID()
	sg.segs[n.ID()] = s
	return n.ID()
}

func (sg *SegGraph) addEdge(from, to event.Segment) {
	if from == to {
		// A degenerate record; it cannot carry ordering.
		return
	}
	u := sg.ensure(from)
	v := sg.ensure(to)
	sg.g.SetEdge(sg.g.NewEdge(sg.g.Node(u), sg.g.Node(v)))
	sg.reach = nil
}

// checkAcyclic verifies the DAG invariant. Replaying well-formed
// Start/Join streams cannot create a cycle; a cycle means the
// repository is corrupt.
func (sg *SegGraph) checkAcyclic() error {
	if _, err := topo.Sort(sg.g); err != nil {
		return err
	}
	return nil
}

// HappensBefore reports whether segment a happens before segment b:
// b is reachable from a and a != b. Segments absent from the graph
// are ordered with nothing.
func (sg *SegGraph) HappensBefore(a, b event.Segment) bool {
	if a == b {
		return false
	}
	if _, ok := sg.idx[a]; !ok {
		return false
	}
	if _, ok := sg.idx[b]; !ok {
		return false
	}
	if sg.reach == nil {
		sg.computeClosure()
	}
	return sg.reach[a][b]
}

func (sg *SegGraph) computeClosure() {
	sg.reach = make(map[event.Segment]map[event.Segment]bool, len(sg.idx))
	for s, id := range sg.idx {
		set := make(map[event.Segment]bool)
		bf := traverse.BreadthFirst{
			Visit: func(n gnode) {
				set[sg.segs[n.ID()]] = true
			},
		}
		bf.Walk(sg.g, sg.g.Node(id), nil)
		delete(set, s)
		sg.reach[s] = set
	}
}
