// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"bytes"
	"testing"

	"github.com/aclements/d2/event"
)

// benchStream builds a thread trace that repeatedly takes a chain of
// locks, exercising the gatelock computation and the edge dedup.
func benchStream(iters, chain int) []byte {
	var buf bytes.Buffer
	for i := 0; i < iters; i++ {
		for l := 0; l < chain; l++ {
			event.Write(&buf, event.Acquire{Thread: 1, Lock: event.LockID(l)})
		}
		for l := chain - 1; l >= 0; l-- {
			event.Write(&buf, event.Release{Thread: 1, Lock: event.LockID(l)})
		}
	}
	return buf.Bytes()
}

func BenchmarkBuildLock(b *testing.B) {
	raw := benchStream(100, 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lg := NewLockGraph()
		if err := BuildLock(lg, event.NewReader(bytes.NewReader(raw))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHappensBefore(b *testing.B) {
	var buf bytes.Buffer
	// A long fork chain.
	for i := 0; i < 200; i++ {
		event.Write(&buf, event.Start{
			Parent:    event.Segment(2 * i),
			NewParent: event.Segment(2*i + 2),
			Child:     event.Segment(2*i + 1),
		})
	}
	sg, err := BuildSegmentation(event.NewReader(&buf), false)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sg.HappensBefore(0, event.Segment(2*i%400))
	}
}
