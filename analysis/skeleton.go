// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"io"

	"github.com/aclements/d2/event"
	"github.com/aclements/d2/graph"
	"github.com/aclements/d2/repo"
)

// A Skeleton is a program stripped down to its synchronization
// history: the two graphs rebuilt from a repository, ready for
// analysis.
type Skeleton struct {
	sg *graph.SegGraph
	lg *graph.LockGraph

	numThreads int
}

// Load rebuilds the skeleton from an opened repository. The
// segmentation graph comes from the process-wide file (absent file
// means an empty graph: the program never started a thread); the lock
// graph accumulates every thread file. An error in any file aborts
// the load and names the file.
func Load(store *repo.Store) (*Skeleton, error) {
	sk := &Skeleton{lg: graph.NewLockGraph()}

	sj, ok, err := store.StartJoinFile()
	if err != nil {
		return nil, err
	}
	if ok {
		f, err := sj.Open()
		if err != nil {
			return nil, err
		}
		sk.sg, err = graph.BuildSegmentation(event.NewReader(f), false)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sj.Name, err)
		}
	} else {
		sk.sg = graph.NewSegGraph()
	}

	threads, err := store.ThreadFiles()
	if err != nil {
		return nil, err
	}
	sk.numThreads = len(threads)
	for _, fe := range threads {
		f, err := fe.Open()
		if err != nil {
			return nil, err
		}
		err = graph.BuildLock(sk.lg, event.NewReader(f))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("thread file %s: %w", fe.Name, err)
		}
	}
	return sk, nil
}

// NumberOfThreads returns the number of threads that logged events.
func (sk *Skeleton) NumberOfThreads() int { return sk.numThreads }

// NumberOfLocks returns the number of distinct locks observed.
func (sk *Skeleton) NumberOfLocks() int { return sk.lg.NumLocks() }

// Deadlocks runs the analysis and returns every potential deadlock,
// deduplicated and deterministically ordered.
func (sk *Skeleton) Deadlocks() []PotentialDeadlock {
	return Deadlocks(sk.lg, sk.sg)
}

// Stats describes the size of the reconstructed graphs.
type Stats struct {
	Threads   int
	Locks     int
	LockEdges int
	Segments  int
	Cycles    int
}

// Stats gathers the analyzer's statistics.
func (sk *Skeleton) Stats() Stats {
	return Stats{
		Threads:   sk.numThreads,
		Locks:     sk.lg.NumLocks(),
		LockEdges: sk.lg.NumEdges(),
		Segments:  sk.sg.NumSegments(),
		Cycles:    CountCycles(sk.lg),
	}
}

// WriteStats prints the statistics in the analyzer's text format.
func (sk *Skeleton) WriteStats(w io.Writer) error {
	st := sk.Stats()
	_, err := fmt.Fprintf(w, "number of threads: %d\nnumber of distinct locks: %d\n", st.Threads, st.Locks)
	return err
}
