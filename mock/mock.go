// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mock provides toy synchronization objects that report their
// operations to the logging runtime. They perform no real locking:
// their only job is to generate faithful event streams, which makes
// them convenient for integration tests and for reproducing
// synchronization patterns without the timing sensitivity of real
// locks.
package mock

import (
	"sync"
	"sync/atomic"

	"github.com/aclements/d2"
)

// threadIDs mints ids for mock threads. The zero id is reserved for
// the main thread.
var threadIDs atomic.Uint64

// MainThread is the thread id mock objects attribute to code running
// outside any mock Thread.
const MainThread uint64 = 0

// A Mutex reports acquisitions and releases of one lock.
type Mutex struct {
	once sync.Once
	id   uint64
}

func (m *Mutex) lockID() uint64 {
	m.once.Do(func() { m.id = d2.NewLockID() })
	return m.id
}

// ID returns the lock's id.
func (m *Mutex) ID() uint64 { return m.lockID() }

// Lock reports that thread tid acquired the mutex.
func (m *Mutex) Lock(tid uint64) { d2.NotifyAcquire(tid, m.lockID()) }

// Unlock reports that thread tid released the mutex.
func (m *Mutex) Unlock(tid uint64) { d2.NotifyRelease(tid, m.lockID()) }

// A RecursiveMutex is a Mutex whose nested reacquisitions are
// transparent to the analysis.
type RecursiveMutex struct {
	once sync.Once
	id   uint64
}

func (m *RecursiveMutex) lockID() uint64 {
	m.once.Do(func() { m.id = d2.NewLockID() })
	return m.id
}

// ID returns the lock's id.
func (m *RecursiveMutex) ID() uint64 { return m.lockID() }

// Lock reports that thread tid acquired the mutex, possibly nested.
func (m *RecursiveMutex) Lock(tid uint64) { d2.NotifyRecursiveAcquire(tid, m.lockID()) }

// Unlock reports that thread tid released one level of the mutex.
func (m *RecursiveMutex) Unlock(tid uint64) { d2.NotifyRecursiveRelease(tid, m.lockID()) }

// A Thread runs a function on its own goroutine under a fresh thread
// id, reporting its start and join to the runtime.
type Thread struct {
	id   uint64
	f    func(self uint64)
	done chan struct{}
}

// NewThread prepares a thread that will run f. f receives the
// thread's id to pass to the mock locks it uses.
func NewThread(f func(self uint64)) *Thread {
	return &Thread{
		id:   threadIDs.Add(1),
		f:    f,
		done: make(chan struct{}),
	}
}

// ID returns the thread's id.
func (t *Thread) ID() uint64 { return t.id }

// Start reports the start from the parent thread and runs the
// function.
func (t *Thread) Start(parent uint64) {
	d2.NotifyStart(parent, t.id)
	go func() {
		defer close(t.done)
		t.f(t.id)
	}()
}

// Join waits for the thread and reports the join to the parent.
func (t *Thread) Join(parent uint64) {
	<-t.done
	d2.NotifyJoin(parent, t.id)
}
