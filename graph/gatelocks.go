// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aclements/d2/event"
)

// Gatelocks is an immutable set of lock ids: the locks a thread
// already held when it acquired the target of a lock-graph edge,
// excluding the edge's own endpoints. Equal sets on different edges
// may share storage; the public behavior is pure value semantics.
type Gatelocks struct {
	ids []event.LockID // sorted, no duplicates
}

var emptyGatelocks = &Gatelocks{}

// NewGatelocks builds a set from ids, which may contain duplicates
// and is not modified.
func NewGatelocks(ids []event.LockID) *Gatelocks {
	if len(ids) == 0 {
		return emptyGatelocks
	}
	sorted := append([]event.LockID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := 0
	for i, id := range sorted {
		if i == 0 || id != sorted[n-1] {
			sorted[n] = id
			n++
		}
	}
	return &Gatelocks{ids: sorted[:n]}
}

// Len returns the number of locks in the set.
func (g *Gatelocks) Len() int { return len(g.ids) }

// IDs returns the locks in increasing order. The caller owns the
// returned slice.
func (g *Gatelocks) IDs() []event.LockID {
	return append([]event.LockID(nil), g.ids...)
}

// Contains reports whether id is in the set.
func (g *Gatelocks) Contains(id event.LockID) bool {
	i := sort.Search(len(g.ids), func(i int) bool { return g.ids[i] >= id })
	return i < len(g.ids) && g.ids[i] == id
}

// Equal reports set equality.
func (g *Gatelocks) Equal(other *Gatelocks) bool {
	if len(g.ids) != len(other.ids) {
		return false
	}
	for i := range g.ids {
		if g.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two sets share any lock.
func (g *Gatelocks) Intersects(other *Gatelocks) bool {
	a, b := g.ids, other.ids
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] == b[0]:
			return true
		case a[0] < b[0]:
			a = a[1:]
		default:
			b = b[1:]
		}
	}
	return false
}

func (g *Gatelocks) String() string {
	parts := make([]string, len(g.ids))
	for i, id := range g.ids {
		parts[i] = id.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
