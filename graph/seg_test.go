// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/d2/event"
)

func stream(t *testing.T, events ...event.Event) *event.Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, e := range events {
		require.NoError(t, event.Write(&buf, e))
	}
	return event.NewReader(&buf)
}

func TestBuildSegmentationEmpty(t *testing.T) {
	sg, err := BuildSegmentation(stream(t), false)
	require.NoError(t, err)
	assert.Equal(t, 0, sg.NumSegments())
	assert.False(t, sg.HappensBefore(0, 1))
}

func TestBuildSegmentationFirstMustBeStart(t *testing.T) {
	_, err := BuildSegmentation(stream(t,
		event.Join{Parent: 0, NewParent: 1, Child: 2},
	), false)
	var te *EventTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, event.TagJoin, te.Actual)
}

func TestBuildSegmentationStartJoin(t *testing.T) {
	// main starts t1 (0 -> 1, child 2), then joins it (1 -> 3).
	sg, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2},
		event.Join{Parent: 1, NewParent: 3, Child: 2},
	), false)
	require.NoError(t, err)

	assert.Equal(t, 4, sg.NumSegments())

	// Fork ordering.
	assert.True(t, sg.HappensBefore(0, 1))
	assert.True(t, sg.HappensBefore(0, 2))
	// Join ordering: both sides reach the new parent segment.
	assert.True(t, sg.HappensBefore(1, 3))
	assert.True(t, sg.HappensBefore(2, 3))
	// Transitivity.
	assert.True(t, sg.HappensBefore(0, 3))
	// The child is concurrent with the parent's continuation.
	assert.False(t, sg.HappensBefore(1, 2))
	assert.False(t, sg.HappensBefore(2, 1))
}

func TestHappensBeforeIrreflexive(t *testing.T) {
	sg, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2},
	), false)
	require.NoError(t, err)
	for s := event.Segment(0); s < 3; s++ {
		assert.False(t, sg.HappensBefore(s, s), "segment %v ordered before itself", s)
	}
}

func TestHappensBeforeUnknownSegments(t *testing.T) {
	sg, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2},
	), false)
	require.NoError(t, err)
	assert.False(t, sg.HappensBefore(0, 99))
	assert.False(t, sg.HappensBefore(99, 0))
	assert.False(t, sg.HappensBefore(98, 99))
}

func TestBuildSegmentationSkipsForeignEvents(t *testing.T) {
	sg, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2},
		event.Release{Thread: 1, Lock: 2},
		event.Join{Parent: 1, NewParent: 3, Child: 2},
	), false)
	require.NoError(t, err)
	assert.True(t, sg.HappensBefore(0, 3))
}

func TestBuildSegmentationStrict(t *testing.T) {
	_, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2},
		event.Release{Thread: 1, Lock: 2},
	), true)
	var te *EventTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, event.TagRelease, te.Actual)
}

func TestSegmentationTree(t *testing.T) {
	// A start/join sequence encoding a valid thread tree always
	// builds (the acyclicity check passes): main forks two
	// children and joins them in reverse order.
	sg, err := BuildSegmentation(stream(t,
		event.Start{Parent: 0, NewParent: 1, Child: 2}, // fork t1
		event.Start{Parent: 1, NewParent: 3, Child: 4}, // fork t2
		event.Join{Parent: 3, NewParent: 5, Child: 4},  // join t2
		event.Join{Parent: 5, NewParent: 6, Child: 2},  // join t1
	), false)
	require.NoError(t, err)
	assert.Equal(t, 7, sg.NumSegments())
	assert.True(t, sg.HappensBefore(2, 6))
	assert.True(t, sg.HappensBefore(4, 5))
	assert.False(t, sg.HappensBefore(2, 5))
}
