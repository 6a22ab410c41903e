// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package framework

import (
	"sync/atomic"

	"github.com/aclements/d2/repo"
)

// A handle is a reference-counted wrapper around an open store. The
// framework's current-repository slot holds one reference; every
// in-flight dispatch holds another. The store is closed when the last
// reference is released, so swapping repositories never invalidates a
// write already in progress.
type handle struct {
	store *repo.Store
	refs  atomic.Int64
}

func newHandle(st *repo.Store) *handle {
	h := &handle{store: st}
	h.refs.Store(1)
	return h
}

// tryAcquire takes a reference. It fails if the handle is already
// retired, meaning the count has reached zero.
func (h *handle) tryAcquire() bool {
	for {
		r := h.refs.Load()
		if r <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

func (h *handle) release() {
	if h.refs.Add(-1) == 0 {
		if err := h.store.Close(); err != nil {
			log.WithError(err).Error("d2: closing retired repository")
		}
	}
}
