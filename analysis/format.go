// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/aclements/d2/event"
)

// Rule is the separator printed between diagnostics.
const Rule = "----------------------------------------------------"

const noLocation = "[no location information]"

// Format writes the human-readable explanation of one potential
// deadlock: for each involved thread, the locks it holds with their
// capture locations and the lock it is waiting for.
func Format(w io.Writer, dl PotentialDeadlock) error {
	var b strings.Builder
	for i, t := range dl.Threads {
		if i > 0 {
			b.WriteByte('\n')
		}
		formatThread(&b, t)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatThread(b *strings.Builder, t DeadlockedThread) {
	fmt.Fprintf(b, "in thread #%v:\n", t.TID)
	for i, l := range t.Holding {
		var info event.LockDebugInfo
		if i < len(t.HoldingInfo) {
			info = t.HoldingInfo[i]
		}
		fmt.Fprintf(b, "holds object #%v acquired at", l)
		formatLocation(b, info)
	}
	fmt.Fprintf(b, "tries to acquire object #%v at", t.WaitingFor)
	formatLocation(b, t.WaitingInfo)
}

func formatLocation(b *strings.Builder, info event.LockDebugInfo) {
	if len(info) == 0 {
		fmt.Fprintf(b, " %s\n", noLocation)
		return
	}
	b.WriteByte('\n')
	for _, fr := range info {
		fmt.Fprintf(b, "    %s\n", fr)
	}
}

// String returns the formatted explanation.
func (p PotentialDeadlock) String() string {
	var b strings.Builder
	Format(&b, p)
	return b.String()
}
