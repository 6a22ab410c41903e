// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package d2 is a post-mortem deadlock detector.
//
// An instrumented program reports every lock acquisition, release,
// thread start and thread join through the Notify functions. The
// runtime persists these events to a filesystem repository; the d2
// command (or package analysis) later replays the repository and
// reports every potential deadlock — every inconsistent lock ordering
// across threads — whether or not a deadlock actually happened during
// the observed run.
//
// Thread and lock ids are plain integers so the surface stays
// C-compatible: the instrumented program supplies its platform thread
// ids and either mints lock ids with NewLockID or supplies its own.
//
// All functions are safe for concurrent use and cheap when logging is
// disabled.
package d2

import (
	"github.com/aclements/d2/event"
	"github.com/aclements/d2/framework"
)

var lockIDs event.IDGen

// SetLogRepository directs event logging to a repository created at
// path. It returns 0 on success and nonzero on failure, in which case
// a previously set repository remains active.
func SetLogRepository(path string) int {
	if err := framework.SetRepository(path); err != nil {
		return 1
	}
	return 0
}

// UnsetLogRepository stops logging and drops the active repository.
func UnsetLogRepository() { framework.UnsetRepository() }

// EnableEventLogging turns event logging on. Idempotent.
func EnableEventLogging() { framework.Enable() }

// DisableEventLogging turns event logging off. Idempotent.
func DisableEventLogging() { framework.Disable() }

// IsEnabled reports whether event logging is on.
func IsEnabled() bool { return framework.Enabled() }

// NewLockID mints a fresh process-unique lock id.
func NewLockID() uint64 { return uint64(lockIDs.Next()) }

// NotifyAcquire reports that thread acquired lock. The call stack of
// the caller is captured and attached to the event.
func NotifyAcquire(thread, lock uint64) { framework.NotifyAcquire(thread, lock, 1) }

// NotifyRelease reports that thread released lock.
func NotifyRelease(thread, lock uint64) { framework.NotifyRelease(thread, lock) }

// NotifyRecursiveAcquire reports that thread acquired a recursive
// lock. Nested reacquisitions are transparent to the analysis.
func NotifyRecursiveAcquire(thread, lock uint64) {
	framework.NotifyRecursiveAcquire(thread, lock, 1)
}

// NotifyRecursiveRelease reports that thread released a recursive
// lock.
func NotifyRecursiveRelease(thread, lock uint64) {
	framework.NotifyRecursiveRelease(thread, lock)
}

// NotifyStart reports that thread parent started thread child.
func NotifyStart(parent, child uint64) { framework.NotifyStart(parent, child) }

// NotifyJoin reports that thread parent joined thread child.
func NotifyJoin(parent, child uint64) { framework.NotifyJoin(parent, child) }
