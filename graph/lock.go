// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph reconstructs the two graphs that summarize a
// program's synchronization history: the segmentation graph, a DAG
// over segments encoding happens-before between threads, and the lock
// graph, a directed multigraph over locks whose labeled edges record
// acquire-while-held observations. Both are built by replaying the
// event files of a repository and are read-only afterwards.
package graph

import (
	"sort"

	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aclements/d2/event"
)

type gnode = gograph.Node

// An EdgeLabel carries the context of one acquire-while-held
// observation: thread Thread acquired the edge's target lock in
// segment S2 while holding the source lock it had acquired in segment
// S1, with Gatelocks also held. L1Info and L2Info are the call stacks
// of the two acquisitions.
type EdgeLabel struct {
	S1        event.Segment
	S2        event.Segment
	Thread    event.ThreadID
	Gatelocks *Gatelocks
	L1Info    event.LockDebugInfo
	L2Info    event.LockDebugInfo
}

// Equal reports componentwise equality of all six fields. Two
// indistinguishable acquisitions must not create parallel edges, so
// this is the multigraph's edge identity.
func (l *EdgeLabel) Equal(other *EdgeLabel) bool {
	return l.S1 == other.S1 &&
		l.S2 == other.S2 &&
		l.Thread == other.Thread &&
		l.Gatelocks.Equal(other.Gatelocks) &&
		l.L1Info.Equal(other.L1Info) &&
		l.L2Info.Equal(other.L2Info)
}

// An Edge is one labeled edge of the lock graph.
type Edge struct {
	From  event.LockID
	To    event.LockID
	Label *EdgeLabel
}

// line is the gonum line type carrying our label.
type line struct {
	multi.Line
	label *EdgeLabel
}

// A LockGraph is the directed multigraph over locks built from the
// recorded acquisitions. Parallel edges with distinct labels between
// the same pair of locks are kept apart; equal labels are merged.
//
// Acquiring a lock while already holding it (without the recursive
// variants) would form a self loop; those labels are kept in a side
// table rather than the multigraph and reported by SelfEdges.
type LockGraph struct {
	g     *multi.DirectedGraph
	idx   map[event.LockID]int64
	locks map[int64]event.LockID

	selfEdges map[event.LockID][]*EdgeLabel
	numEdges  int
}

// NewLockGraph returns an empty lock graph.
func NewLockGraph() *LockGraph {
	return &LockGraph{
		g:         multi.NewDirectedGraph(),
		idx:       make(map[event.LockID]int64),
		locks:     make(map[int64]event.LockID),
		selfEdges: make(map[event.LockID][]*EdgeLabel),
	}
}

// NumLocks returns the number of distinct locks observed.
func (lg *LockGraph) NumLocks() int { return len(lg.idx) }

// NumEdges returns the number of distinct labeled edges, self edges
// included.
func (lg *LockGraph) NumEdges() int { return lg.numEdges }

// Locks returns every lock in the graph in increasing id order.
func (lg *LockGraph) Locks() []event.LockID {
	out := make([]event.LockID, 0, len(lg.idx))
	for l := range lg.idx {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (lg *LockGraph) ensure(l event.LockID) int64 {
	if id, ok := lg.idx[l]; ok {
		return id
	}
	n := lg.g.NewNode()
	lg.g.AddNode(n)
	lg.idx[l] = n.ID()
	lg.locks[n.ID()] = l
	return n.ID()
}

// addEdge inserts an edge from l1 to l2 unless an equal-labeled edge
// between the same pair already exists. Both vertices must already be
// present.
func (lg *LockGraph) addEdge(l1, l2 event.LockID, label *EdgeLabel) {
	if l1 == l2 {
		for _, have := range lg.selfEdges[l1] {
			if have.Equal(label) {
				return
			}
		}
		lg.selfEdges[l1] = append(lg.selfEdges[l1], label)
		lg.numEdges++
		return
	}
	u, v := lg.idx[l1], lg.idx[l2]
	it := lg.g.Lines(u, v)
	for it.Next() {
		if it.Line().(line).label.Equal(label) {
			return
		}
	}
	ln := line{Line: lg.g.NewLine(lg.g.Node(u), lg.g.Node(v)).(multi.Line), label: label}
	lg.g.SetLine(ln)
	lg.numEdges++
}

// EdgesBetween returns the labels of every edge from a to b.
func (lg *LockGraph) EdgesBetween(a, b event.LockID) []*EdgeLabel {
	u, ok := lg.idx[a]
	if !ok {
		return nil
	}
	v, ok := lg.idx[b]
	if !ok {
		return nil
	}
	var out []*EdgeLabel
	it := lg.g.Lines(u, v)
	for it.Next() {
		out = append(out, it.Line().(line).label)
	}
	return out
}

// Edges returns every non-self edge, ordered by source then target
// lock id with parallel edges in insertion order.
func (lg *LockGraph) Edges() []Edge {
	var out []Edge
	for _, from := range lg.Locks() {
		u := lg.idx[from]
		toIDs := lg.g.From(u)
		var targets []event.LockID
		for toIDs.Next() {
			targets = append(targets, lg.locks[toIDs.Node().ID()])
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		for _, to := range targets {
			for _, label := range lg.EdgesBetween(from, to) {
				out = append(out, Edge{From: from, To: to, Label: label})
			}
		}
	}
	return out
}

// SelfEdges returns the self-loop labels per lock, in increasing lock
// id order.
func (lg *LockGraph) SelfEdges() []Edge {
	var ids []event.LockID
	for l := range lg.selfEdges {
		ids = append(ids, l)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []Edge
	for _, l := range ids {
		for _, label := range lg.selfEdges[l] {
			out = append(out, Edge{From: l, To: l, Label: label})
		}
	}
	return out
}

// VertexCycles enumerates the elementary cycles of the lock graph's
// vertex projection, each exactly once up to rotation, as lock id
// sequences without the closing repetition. Self loops are excluded;
// they are available through SelfEdges.
func (lg *LockGraph) VertexCycles() [][]event.LockID {
	if len(lg.idx) == 0 {
		return nil
	}
	raw := topo.DirectedCyclesIn(lg.g)
	cycles := make([][]event.LockID, 0, len(raw))
	for _, nodes := range raw {
		// gonum closes each cycle by repeating the first node.
		if len(nodes) < 3 {
			continue
		}
		cycle := make([]event.LockID, len(nodes)-1)
		for i, n := range nodes[:len(nodes)-1] {
			cycle[i] = lg.locks[n.ID()]
		}
		cycles = append(cycles, cycle)
	}
	return cycles
}
