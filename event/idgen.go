// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package event

import "sync/atomic"

// An IDGen mints process-unique lock ids. Every call to Next returns a
// value strictly greater than the previous one. IDGen is safe for
// concurrent use. Ids are never released or reused.
//
// The zero IDGen is ready to use; its first Next returns 1.
type IDGen struct {
	last atomic.Uint64
}

// Next returns a fresh id. Exhausting the 64-bit counter space is not
// survivable; Next panics rather than silently wrapping around.
func (g *IDGen) Next() LockID {
	id := g.last.Add(1)
	if id == 0 {
		panic("event: lock id counter wrapped around")
	}
	return LockID(id)
}
