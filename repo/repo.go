// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repo implements the filesystem-backed event store.
//
// A repository is a directory holding one file per thread of the
// instrumented program, named with the thread's decimal id, plus a
// single file named "process_wide" holding the start and join events.
// Names beginning with '.' are reserved for bookkeeping (the advisory
// lock file) and are never reported as event files.
package repo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"github.com/aclements/d2/event"
)

// ProcessWideName is the name of the file holding Start and Join
// events.
const ProcessWideName = "process_wide"

// lockName is the advisory lock file guarding a repository against
// concurrent writers.
const lockName = ".d2lock"

// An InvalidPathError reports that a repository path was neither a
// fresh location nor an empty directory, or was otherwise unusable in
// the requested mode.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid repository path %q: %s", e.Path, e.Reason)
}

// A Store is an open repository. A Store is either in logging mode
// (created by Create; Dispatch allowed) or in analysis mode (created
// by Open; read-only). Dispatch is safe for concurrent use from any
// number of threads.
type Store struct {
	dir      string
	readonly bool
	fl       *flock.Flock

	// mu guards files. It is held only to look up or insert an
	// entry; writes to an individual file serialize on the entry's
	// own mutex so that writes to different files proceed in
	// parallel.
	mu    sync.Mutex
	files map[string]*storeFile
}

type storeFile struct {
	mu sync.Mutex
	f  *os.File
}

// Create opens a repository for logging at path. The path must either
// not exist, in which case it is created as a directory, or name an
// existing empty directory; anything else is an *InvalidPathError.
// The repository is locked against other writers for the lifetime of
// the Store. On error nothing is left behind at a previously
// nonexistent path.
func Create(path string) (*Store, error) {
	st, err := os.Stat(path)
	created := false
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o777); err != nil {
			return nil, &InvalidPathError{Path: path, Reason: err.Error()}
		}
		created = true
	case err != nil:
		return nil, &InvalidPathError{Path: path, Reason: err.Error()}
	case !st.IsDir():
		return nil, &InvalidPathError{Path: path, Reason: "not a directory"}
	default:
		ents, err := os.ReadDir(path)
		if err != nil {
			return nil, &InvalidPathError{Path: path, Reason: err.Error()}
		}
		for _, ent := range ents {
			// A leftover lock file from an earlier run does
			// not make the directory non-empty.
			if ent.Name()[0] != '.' {
				return nil, &InvalidPathError{Path: path, Reason: "directory not empty"}
			}
		}
	}

	s := &Store{dir: path, files: make(map[string]*storeFile)}
	if err := s.lock(false); err != nil {
		if created {
			os.RemoveAll(path)
		}
		return nil, err
	}
	return s, nil
}

// Open opens an existing repository for analysis. The returned Store
// is read-only: Dispatch fails. Multiple analyzers may share one
// repository.
func Open(path string) (*Store, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, &InvalidPathError{Path: path, Reason: "no such directory"}
	}
	if !st.IsDir() {
		return nil, &InvalidPathError{Path: path, Reason: "not a directory"}
	}
	s := &Store{dir: path, readonly: true, files: make(map[string]*storeFile)}
	if err := s.lock(true); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) lock(shared bool) error {
	fl := flock.New(filepath.Join(s.dir, lockName))
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLock()
	} else {
		ok, err = fl.TryLock()
	}
	if err != nil {
		return &InvalidPathError{Path: s.dir, Reason: err.Error()}
	}
	if !ok {
		return &InvalidPathError{Path: s.dir, Reason: "repository is locked by another process"}
	}
	s.fl = fl
	return nil
}

// Dir returns the repository's directory.
func (s *Store) Dir() string { return s.dir }

// Dispatch routes an event to its file: thread-scoped events to the
// file named with the originating thread's decimal id, Start and Join
// to the process-wide file. Files are created lazily on first write.
func (s *Store) Dispatch(e event.Event) error {
	if s.readonly {
		return fmt.Errorf("repo: dispatch on read-only repository %q", s.dir)
	}
	name := ProcessWideName
	if tid, ok := event.ThreadOf(e); ok {
		name = tid.String()
	}
	sf, err := s.file(name)
	if err != nil {
		return err
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return event.Write(sf.f, e)
}

func (s *Store) file(name string) (*storeFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sf, ok := s.files[name]; ok {
		return sf, nil
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, err
	}
	sf := &storeFile{f: f}
	s.files[name] = sf
	return sf, nil
}

// A FileEntry names one event file of a repository.
type FileEntry struct {
	// Name is the file's name within the repository: a decimal
	// thread id or ProcessWideName.
	Name string

	path string
}

// IsProcessWide reports whether the entry is the start/join file.
func (fe FileEntry) IsProcessWide() bool { return fe.Name == ProcessWideName }

// ThreadID returns the thread id a thread file belongs to. It fails
// on the process-wide file.
func (fe FileEntry) ThreadID() (event.ThreadID, error) {
	return event.ParseThreadID(fe.Name)
}

// Open opens the file for reading.
func (fe FileEntry) Open() (io.ReadCloser, error) {
	return os.Open(fe.path)
}

// Events reads and decodes the whole file.
func (fe FileEntry) Events() ([]event.Event, error) {
	f, err := fe.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return event.NewReader(f).ReadAll()
}

// Files returns every event file in the repository, thread files
// first in increasing thread-id order, then the process-wide file if
// present.
func (s *Store) Files() ([]FileEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var threads, rest []FileEntry
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || name[0] == '.' {
			continue
		}
		fe := FileEntry{Name: name, path: filepath.Join(s.dir, name)}
		if name == ProcessWideName {
			rest = append(rest, fe)
			continue
		}
		if _, err := fe.ThreadID(); err != nil {
			return nil, &InvalidPathError{Path: fe.path, Reason: "stray file in repository"}
		}
		threads = append(threads, fe)
	}
	sort.Slice(threads, func(i, j int) bool {
		a, _ := threads[i].ThreadID()
		b, _ := threads[j].ThreadID()
		return a < b
	})
	return append(threads, rest...), nil
}

// ThreadFiles returns the per-thread event files in increasing
// thread-id order.
func (s *Store) ThreadFiles() ([]FileEntry, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	n := 0
	for _, fe := range files {
		if !fe.IsProcessWide() {
			files[n] = fe
			n++
		}
	}
	return files[:n], nil
}

// StartJoinFile returns the process-wide file and whether it exists.
// A repository written by a program that never started a thread has
// none.
func (s *Store) StartJoinFile() (FileEntry, bool, error) {
	files, err := s.Files()
	if err != nil {
		return FileEntry{}, false, err
	}
	for _, fe := range files {
		if fe.IsProcessWide() {
			return fe, true, nil
		}
	}
	return FileEntry{}, false, nil
}

// Close flushes and closes every open file and releases the
// repository lock. The Store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, sf := range s.files {
		sf.mu.Lock()
		if err := sf.f.Close(); err != nil && first == nil {
			first = err
		}
		sf.mu.Unlock()
	}
	s.files = make(map[string]*storeFile)
	if s.fl != nil {
		if err := s.fl.Unlock(); err != nil && first == nil {
			first = err
		}
		s.fl = nil
	}
	return first
}
