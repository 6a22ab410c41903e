// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package framework implements the process-wide event logging runtime.
//
// The framework is a passive singleton: instrumented code reports lock
// and thread operations through the Notify functions and the framework
// persists them to the active repository. Every entry point is cheap
// when logging is disabled (one atomic load) and never panics or
// returns an error to the instrumented program; failures are logged
// and the offending event is dropped.
package framework

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/aclements/d2/config"
	"github.com/aclements/d2/event"
	"github.com/aclements/d2/repo"
	"github.com/aclements/d2/stacktrace"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

var (
	enabled atomic.Bool
	cur     atomic.Pointer[handle]

	// segMu guards segOf and curSeg. NotifyStart and NotifyJoin hold
	// it only while updating the segment bookkeeping and release it
	// before dispatching; the acquire/release paths never touch it.
	segMu  sync.Mutex
	segOf  = make(map[event.ThreadID]event.Segment)
	curSeg event.Segment

	maxDepth atomic.Int32

	envOnce sync.Once
)

func init() { maxDepth.Store(config.DefaultMaxStackDepth) }

// maybeInitFromEnv applies the environment configuration on the first
// notification, so that a program instrumented but never configured
// programmatically can still be pointed at a repository from outside.
func maybeInitFromEnv() {
	envOnce.Do(func() {
		c, err := config.FromEnv()
		if err != nil {
			log.WithError(err).Error("d2: ignoring environment configuration")
			return
		}
		if c == nil {
			return
		}
		Apply(c)
	})
}

// Apply installs the settings of c: log level, stack depth, repository
// and the enable flag. Unset fields keep their current values.
func Apply(c *config.Config) {
	if c.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
			log.SetLevel(lvl)
		} else {
			log.WithError(err).Error("d2: bad log_level")
		}
	}
	if c.MaxStackDepth > 0 {
		maxDepth.Store(int32(c.MaxStackDepth))
	}
	if c.Repository != "" {
		if err := SetRepository(c.Repository); err != nil {
			log.WithError(err).Error("d2: cannot open configured repository")
			return
		}
	}
	if c.Enabled {
		Enable()
	}
}

// Enable turns event logging on. Idempotent.
func Enable() { enabled.Store(true) }

// Disable turns event logging off. Idempotent.
func Disable() { enabled.Store(false) }

// Enabled reports whether event logging is on.
func Enabled() bool { return enabled.Load() }

// SetRepository creates a logging repository at path and atomically
// makes it the active one. On failure the previously active
// repository, if any, stays active. The previous repository is closed
// once every in-flight dispatch into it has drained.
func SetRepository(path string) error {
	st, err := repo.Create(path)
	if err != nil {
		return err
	}
	install(newHandle(st))
	return nil
}

// UnsetRepository atomically drops the active repository. Subsequent
// notifications are discarded until a new repository is set.
func UnsetRepository() {
	install(nil)
}

func install(h *handle) {
	if old := cur.Swap(h); old != nil {
		old.release()
	}
}

// HasRepository reports whether a repository is currently active.
func HasRepository() bool { return cur.Load() != nil }

// dispatch persists one event into the active repository. A failure
// is logged and the event dropped; the repository stays active.
func dispatch(e event.Event) {
	for {
		h := cur.Load()
		if h == nil {
			return
		}
		if !h.tryAcquire() {
			// The handle was retired between the load and
			// the acquire; the swap that retired it has
			// already published its replacement.
			continue
		}
		err := h.store.Dispatch(e)
		h.release()
		if err != nil {
			log.WithError(err).WithField("tag", e.Tag()).Error("d2: dropping event")
		}
		return
	}
}

func captureInfo(skip int) event.LockDebugInfo {
	// +2 skips captureInfo and its caller inside this package.
	frames := stacktrace.Capture(skip + 2).Resolve()
	if max := int(maxDepth.Load()); len(frames) > max {
		frames = frames[:max]
	}
	return frames
}

// NotifyAcquire records that thread tid acquired lock lid. skip is
// the number of stack frames between the instrumented call site and
// the caller of NotifyAcquire; wrappers pass the depth they add.
func NotifyAcquire(tid, lid uint64, skip int) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	dispatch(event.Acquire{
		Thread: event.ThreadID(tid),
		Lock:   event.LockID(lid),
		Info:   captureInfo(skip),
	})
}

// NotifyRelease records that thread tid released lock lid.
func NotifyRelease(tid, lid uint64) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	dispatch(event.Release{Thread: event.ThreadID(tid), Lock: event.LockID(lid)})
}

// NotifyRecursiveAcquire is NotifyAcquire for recursive locks.
func NotifyRecursiveAcquire(tid, lid uint64, skip int) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	dispatch(event.RecursiveAcquire{
		Thread: event.ThreadID(tid),
		Lock:   event.LockID(lid),
		Info:   captureInfo(skip),
	})
}

// NotifyRecursiveRelease is NotifyRelease for recursive locks.
func NotifyRecursiveRelease(tid, lid uint64) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	dispatch(event.RecursiveRelease{Thread: event.ThreadID(tid), Lock: event.LockID(lid)})
}

// NotifyStart records that thread parent started thread child. It
// mints the child's first segment and moves the parent into a fresh
// one, then emits the Start event followed by the two segment hops.
func NotifyStart(parent, child uint64) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	p, c := event.ThreadID(parent), event.ThreadID(child)

	segMu.Lock()
	if p == c {
		segMu.Unlock()
		log.WithField("thread", p).Error("d2: thread starting itself")
		return
	}
	if _, ok := segOf[p]; !ok && len(segOf) > 0 {
		segMu.Unlock()
		log.WithField("thread", p).Error("d2: start from unknown thread")
		return
	}
	// On the very first start segOf is empty and the parent is in
	// the initial segment, which is the map's zero value.
	parentSeg := segOf[p]
	curSeg++
	newParentSeg := curSeg
	curSeg++
	childSeg := curSeg
	segOf[p] = newParentSeg
	segOf[c] = childSeg
	segMu.Unlock()

	dispatch(event.Start{Parent: parentSeg, NewParent: newParentSeg, Child: childSeg})
	dispatch(event.SegmentHop{Thread: p, Segment: newParentSeg})
	dispatch(event.SegmentHop{Thread: c, Segment: childSeg})
}

// NotifyJoin records that thread parent joined thread child. The
// parent moves into a fresh segment ordered after both threads; the
// child's segment bookkeeping is dropped.
func NotifyJoin(parent, child uint64) {
	maybeInitFromEnv()
	if !enabled.Load() {
		return
	}
	p, c := event.ThreadID(parent), event.ThreadID(child)

	segMu.Lock()
	if p == c {
		segMu.Unlock()
		log.WithField("thread", p).Error("d2: thread joining itself")
		return
	}
	parentSeg, pok := segOf[p]
	childSeg, cok := segOf[c]
	if !pok || !cok {
		segMu.Unlock()
		log.WithFields(logrus.Fields{"parent": p, "child": c}).Error("d2: join of unknown thread")
		return
	}
	curSeg++
	newParentSeg := curSeg
	segOf[p] = newParentSeg
	delete(segOf, c)
	segMu.Unlock()

	dispatch(event.Join{Parent: parentSeg, NewParent: newParentSeg, Child: childSeg})
	dispatch(event.SegmentHop{Thread: p, Segment: newParentSeg})
}

// Reset restores the framework to its initial state: logging
// disabled, no repository, all segment bookkeeping dropped. It exists
// so tests can run several independent scenarios in one process; an
// instrumented program has no reason to call it.
func Reset() {
	Disable()
	UnsetRepository()
	segMu.Lock()
	segOf = make(map[event.ThreadID]event.Segment)
	curSeg = 0
	segMu.Unlock()
}
