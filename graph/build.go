// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"io"
	"math"

	"github.com/aclements/d2/event"
)

// BuildSegmentation replays a process-wide event stream into a new
// segmentation graph. The stream holds the Start and Join events in
// emission order; an empty stream yields an empty graph. The first
// event must be a Start. Other variants are skipped silently unless
// strict is set, in which case they are an *EventTypeError.
//
// On error the partially built graph is abandoned; no other state is
// affected.
func BuildSegmentation(r *event.Reader, strict bool) (*SegGraph, error) {
	sg := NewSegGraph()
	first := true
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			st, ok := e.(event.Start)
			if !ok {
				return nil, &EventTypeError{Expected: "start", Actual: e.Tag()}
			}
			sg.ensure(st.Parent)
			first = false
		}
		switch e := e.(type) {
		case event.Start:
			// Parent forks: both the parent's continuation
			// and the child are ordered after the parent's
			// old segment.
			sg.ensure(e.NewParent)
			sg.ensure(e.Child)
			sg.addEdge(e.Parent, e.NewParent)
			sg.addEdge(e.Parent, e.Child)
		case event.Join:
			// Parent's continuation is ordered after both
			// the parent's and the child's old segments.
			sg.ensure(e.NewParent)
			sg.addEdge(e.Parent, e.NewParent)
			sg.addEdge(e.Child, e.NewParent)
		default:
			if strict {
				return nil, &EventTypeError{Expected: "start or join", Actual: e.Tag()}
			}
		}
	}
	if err := sg.checkAcyclic(); err != nil {
		return nil, err
	}
	return sg, nil
}

// heldLock is one entry of a thread's held-locks list during replay.
type heldLock struct {
	lock    event.LockID
	segment event.Segment
	info    event.LockDebugInfo
}

// BuildLock replays one thread's event stream into lg. The thread is
// deduced from the first event, which must be a SegmentHop or an
// acquire variant (only the main thread's stream can open with an
// acquire; every other thread is born with a hop). Streams of
// different threads accumulate into the same lock graph.
//
// On error lg may have grown by some of the stream's edges but is
// otherwise intact; the caller is expected to abandon it.
func BuildLock(lg *LockGraph, r *event.Reader) error {
	first, err := r.Next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	var self event.ThreadID
	switch e := first.(type) {
	case event.SegmentHop:
		self = e.Thread
	case event.Acquire:
		self = e.Thread
	case event.RecursiveAcquire:
		self = e.Thread
	default:
		return &EventTypeError{Expected: "hop, acquire or rec-acquire", Actual: first.Tag()}
	}

	b := &lockBuilder{
		lg:        lg,
		self:      self,
		recursive: make(map[event.LockID]*recState),
	}
	e := first
	for {
		if err := b.apply(e); err != nil {
			return err
		}
		e, err = r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type lockBuilder struct {
	lg   *LockGraph
	self event.ThreadID

	// held is the thread's currently held locks in acquisition
	// order. A lock acquired and released in a loop appears and
	// disappears; a lock acquired twice non-recursively appears
	// twice.
	held []heldLock

	// seg is the segment the thread currently executes in,
	// initially the zero segment until the first hop.
	seg event.Segment

	recursive map[event.LockID]*recState
}

// recState tracks one lock's recursive acquisition nest. owned
// records whether the outermost recursive acquisition created the
// held-locks entry: a recursive re-lock of a lock the thread already
// held through a plain acquire is transparent both on the way in and
// on the way out.
type recState struct {
	count uint64
	owned bool
}

func (b *lockBuilder) apply(e event.Event) error {
	switch e := e.(type) {
	case event.SegmentHop:
		if e.Thread != b.self {
			return &EventThreadError{Expected: b.self, Actual: e.Thread}
		}
		b.seg = e.Segment
		return nil
	case event.Acquire:
		if e.Thread != b.self {
			return &EventThreadError{Expected: b.self, Actual: e.Thread}
		}
		return b.acquire(e.Lock, e.Info)
	case event.RecursiveAcquire:
		if e.Thread != b.self {
			return &EventThreadError{Expected: b.self, Actual: e.Thread}
		}
		st := b.recursive[e.Lock]
		if st == nil {
			st = &recState{}
			b.recursive[e.Lock] = st
		}
		if st.count == math.MaxUint64 {
			return &RecursiveOverflowError{Thread: b.self, Lock: e.Lock}
		}
		st.count++
		// Only the outermost acquisition is real; nested
		// re-locks of a recursive lock do not reorder anything,
		// and neither does recursively re-locking a lock the
		// thread already holds.
		if st.count == 1 && !b.holds(e.Lock) {
			st.owned = true
			return b.acquire(e.Lock, e.Info)
		}
		return nil
	case event.Release:
		if e.Thread != b.self {
			return &EventThreadError{Expected: b.self, Actual: e.Thread}
		}
		return b.release(e.Lock)
	case event.RecursiveRelease:
		if e.Thread != b.self {
			return &EventThreadError{Expected: b.self, Actual: e.Thread}
		}
		st := b.recursive[e.Lock]
		if st == nil || st.count == 0 {
			return &UnexpectedReleaseError{Thread: b.self, Lock: e.Lock}
		}
		st.count--
		if st.count == 0 && st.owned {
			st.owned = false
			return b.release(e.Lock)
		}
		return nil
	default:
		return &EventTypeError{Expected: "hop, acquire or release", Actual: e.Tag()}
	}
}

func (b *lockBuilder) acquire(l2 event.LockID, info event.LockDebugInfo) error {
	b.lg.ensure(l2)

	// The gatelocks of each new edge are the locks held beside the
	// edge's own endpoints.
	for _, h := range b.held {
		gate := make([]event.LockID, 0, len(b.held))
		for _, g := range b.held {
			if g.lock != h.lock && g.lock != l2 {
				gate = append(gate, g.lock)
			}
		}
		label := &EdgeLabel{
			S1:        h.segment,
			S2:        b.seg,
			Thread:    b.self,
			Gatelocks: NewGatelocks(gate),
			L1Info:    h.info,
			L2Info:    info,
		}
		b.lg.addEdge(h.lock, l2, label)
	}

	b.held = append(b.held, heldLock{lock: l2, segment: b.seg, info: info})
	return nil
}

func (b *lockBuilder) holds(l event.LockID) bool {
	for _, h := range b.held {
		if h.lock == l {
			return true
		}
	}
	return false
}

func (b *lockBuilder) release(l event.LockID) error {
	n := 0
	found := false
	for _, h := range b.held {
		if h.lock == l {
			found = true
			continue
		}
		b.held[n] = h
		n++
	}
	if !found {
		return &UnexpectedReleaseError{Thread: b.self, Lock: l}
	}
	b.held = b.held[:n]
	return nil
}
