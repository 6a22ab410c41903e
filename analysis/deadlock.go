// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package analysis turns the two graphs reconstructed from a
// repository into deadlock diagnostics.
//
// A potential deadlock is a simple cycle of the lock graph all of
// whose edge pairs are held by distinct threads, guarded by disjoint
// gatelock sets, and not ordered by the segmentation graph's
// happens-before relation.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aclements/d2/event"
	"github.com/aclements/d2/graph"
)

// A DeadlockedThread is one thread's state in a deadlock scenario:
// the locks it holds and the lock it is about to wait for. Holding
// starts with the lock the cycle orders (the edge's source); the rest
// are the gatelocks known from the edge label. HoldingInfo runs
// parallel to Holding; entries with no captured stack are nil.
type DeadlockedThread struct {
	TID         event.ThreadID
	Holding     []event.LockID
	HoldingInfo []event.LockDebugInfo
	WaitingFor  event.LockID
	WaitingInfo event.LockDebugInfo
}

// Equal reports whether two threads describe the same deadlock step:
// same thread, same held locks in order, same awaited lock. Call
// stacks are diagnostic garnish and do not participate.
func (d DeadlockedThread) Equal(other DeadlockedThread) bool {
	if d.TID != other.TID || d.WaitingFor != other.WaitingFor || len(d.Holding) != len(other.Holding) {
		return false
	}
	for i := range d.Holding {
		if d.Holding[i] != other.Holding[i] {
			return false
		}
	}
	return true
}

// A PotentialDeadlock is a deadlock scenario: one DeadlockedThread
// per edge of the offending cycle, in cycle order.
type PotentialDeadlock struct {
	Threads []DeadlockedThread
}

// Equivalent reports whether two diagnostics describe the same
// deadlock: one is a cyclic rotation of the other. Reflections are
// distinct.
func (p PotentialDeadlock) Equivalent(other PotentialDeadlock) bool {
	return IsCyclicPermutation(p.Threads, other.Threads, DeadlockedThread.Equal)
}

// key returns a rotation-independent sort key, used only to make the
// analyzer's output order deterministic.
func (p PotentialDeadlock) key() string {
	if len(p.Threads) == 0 {
		return ""
	}
	rot := make([]string, len(p.Threads))
	for i := range p.Threads {
		var b strings.Builder
		for j := range p.Threads {
			t := p.Threads[(i+j)%len(p.Threads)]
			fmt.Fprintf(&b, "%v:%v:%v;", t.TID, t.Holding, t.WaitingFor)
		}
		rot[i] = b.String()
	}
	sort.Strings(rot)
	return rot[0]
}

// Deadlocks runs the deadlock analysis: it enumerates the simple
// cycles of lg, keeps those that pass the three pairwise predicates
// against sg, and returns one diagnostic per equivalence class of
// surviving cycles, in a deterministic order.
func Deadlocks(lg *graph.LockGraph, sg *graph.SegGraph) []PotentialDeadlock {
	var out []PotentialDeadlock
	add := func(p PotentialDeadlock) {
		for _, have := range out {
			if have.Equivalent(p) {
				return
			}
		}
		out = append(out, p)
	}

	forEachEdgeCycle(lg, func(cycle []graph.Edge) {
		if deadlockCycle(cycle, sg) {
			add(diagnose(cycle))
		}
	})

	// A self loop is a thread's own lock ordered after itself: a
	// one-edge cycle with no pairs to filter.
	for _, e := range lg.SelfEdges() {
		add(diagnose([]graph.Edge{e}))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// deadlockCycle applies the three predicates to every ordered pair of
// distinct edges in the cycle.
func deadlockCycle(cycle []graph.Edge, sg *graph.SegGraph) bool {
	for i := range cycle {
		for j := range cycle {
			if i == j {
				continue
			}
			e1, e2 := cycle[i].Label, cycle[j].Label

			// A single thread cannot deadlock with itself
			// by ordering alone.
			if e1.Thread == e2.Thread {
				return false
			}
			// A common gatelock serializes the two threads
			// through that gate.
			if e1.Gatelocks.Intersects(e2.Gatelocks) {
				return false
			}
			// If one thread's second acquisition happens
			// before the other's first, the two states are
			// never concurrently reachable.
			if sg.HappensBefore(e1.S2, e2.S1) {
				return false
			}
		}
	}
	return true
}

func diagnose(cycle []graph.Edge) PotentialDeadlock {
	threads := make([]DeadlockedThread, len(cycle))
	for i, e := range cycle {
		holding := []event.LockID{e.From}
		holdingInfo := []event.LockDebugInfo{e.Label.L1Info}
		for _, g := range e.Label.Gatelocks.IDs() {
			holding = append(holding, g)
			holdingInfo = append(holdingInfo, nil)
		}
		threads[i] = DeadlockedThread{
			TID:         e.Label.Thread,
			Holding:     holding,
			HoldingInfo: holdingInfo,
			WaitingFor:  e.To,
			WaitingInfo: e.Label.L2Info,
		}
	}
	return PotentialDeadlock{Threads: threads}
}
