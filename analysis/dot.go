// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"io"

	"github.com/aclements/d2/event"
)

// WriteDot writes the lock graph in the dot language to w. Edges that
// participate in a potential deadlock are highlighted.
func (sk *Skeleton) WriteDot(w io.Writer) error {
	// Collect the lock pairs involved in reported deadlocks so
	// their edges can be drawn hot.
	type pair struct{ from, to event.LockID }
	hot := make(map[pair]bool)
	for _, dl := range sk.Deadlocks() {
		for _, t := range dl.Threads {
			if len(t.Holding) > 0 {
				hot[pair{t.Holding[0], t.WaitingFor}] = true
			}
		}
	}

	if _, err := fmt.Fprintf(w, "digraph locks {\n"); err != nil {
		return err
	}
	for _, l := range sk.lg.Locks() {
		if _, err := fmt.Fprintf(w, "  l%v [label=\"lock #%v\"];\n", l, l); err != nil {
			return err
		}
	}
	edges := append(sk.lg.Edges(), sk.lg.SelfEdges()...)
	for _, e := range edges {
		var props string
		if hot[pair{e.From, e.To}] {
			props = ",penwidth=2,color=red"
		}
		label := fmt.Sprintf("thread %v", e.Label.Thread)
		if fn := topFunction(e.Label.L2Info); fn != "" {
			label = fmt.Sprintf("%s\\n%s", label, fn)
		}
		if _, err := fmt.Fprintf(w, "  l%v -> l%v [label=\"%s\"%s];\n", e.From, e.To, label, props); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "}\n")
	return err
}

func topFunction(info event.LockDebugInfo) string {
	if len(info) == 0 {
		return ""
	}
	return info[0].Function
}
