// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"

	"github.com/aclements/d2/event"
)

// An EventTypeError reports an event variant that is not allowed
// where it was found.
type EventTypeError struct {
	Expected string // description of the allowed variants
	Actual   string // tag of the offending event
}

func (e *EventTypeError) Error() string {
	return fmt.Sprintf("unexpected %q event, want %s", e.Actual, e.Expected)
}

// An EventThreadError reports a thread-scoped event whose thread id
// disagrees with the thread file it was read from.
type EventThreadError struct {
	Expected event.ThreadID
	Actual   event.ThreadID
}

func (e *EventThreadError) Error() string {
	return fmt.Sprintf("event for thread %v in the file of thread %v", e.Actual, e.Expected)
}

// An UnexpectedReleaseError reports a release of a lock the releasing
// thread did not hold.
type UnexpectedReleaseError struct {
	Thread event.ThreadID
	Lock   event.LockID
}

func (e *UnexpectedReleaseError) Error() string {
	return fmt.Sprintf("thread %v released lock %v it does not hold", e.Thread, e.Lock)
}

// A RecursiveOverflowError reports that a thread's recursive
// acquisition counter for a lock saturated.
type RecursiveOverflowError struct {
	Thread event.ThreadID
	Lock   event.LockID
}

func (e *RecursiveOverflowError) Error() string {
	return fmt.Sprintf("recursive lock count overflow on lock %v in thread %v", e.Lock, e.Thread)
}
