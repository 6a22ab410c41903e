// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stacktrace captures call stacks at lock acquisition sites
// and resolves them to symbolic frames for diagnostics.
package stacktrace

import (
	"runtime"

	"github.com/aclements/d2/event"
)

// MaxDepth is the maximum number of return addresses captured by
// Capture.
const MaxDepth = 64

// A CallStack is a raw sequence of return addresses. Resolution to
// symbolic frames is deferred so that the capture itself stays cheap
// on the notification hot path.
type CallStack []uintptr

// Capture records up to MaxDepth return addresses, starting skip
// frames above the caller of Capture. Capture(0) starts at the caller
// itself.
func Capture(skip int) CallStack {
	pcs := make([]uintptr, MaxDepth)
	// +2 skips runtime.Callers and Capture.
	n := runtime.Callers(skip+2, pcs)
	return CallStack(pcs[:n])
}

// Resolve maps each captured address to a symbolic frame. Addresses
// with no symbol information yield placeholder names; Resolve never
// fails.
func (cs CallStack) Resolve() []event.StackFrame {
	if len(cs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames([]uintptr(cs))
	out := make([]event.StackFrame, 0, len(cs))
	for {
		fr, more := frames.Next()
		f := event.StackFrame{IP: fr.PC, Function: fr.Function, Module: fr.File}
		if f.Function == "" {
			f.Function = "???"
		}
		if f.Module == "" {
			f.Module = "???"
		}
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}
