// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package framework

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aclements/d2/event"
	"github.com/aclements/d2/repo"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a repository\n"), 0o666)
}

func freshRepo(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)
	dir := filepath.Join(t.TempDir(), "events")
	if err := SetRepository(dir); err != nil {
		t.Fatal(err)
	}
	Enable()
	return dir
}

func readThread(t *testing.T, dir string, tid event.ThreadID) []event.Event {
	t.Helper()
	st, err := repo.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	files, err := st.ThreadFiles()
	if err != nil {
		t.Fatal(err)
	}
	for _, fe := range files {
		id, _ := fe.ThreadID()
		if id == tid {
			events, err := fe.Events()
			if err != nil {
				t.Fatal(err)
			}
			return events
		}
	}
	return nil
}

func TestDisabledIsNoop(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	dir := filepath.Join(t.TempDir(), "events")
	if err := SetRepository(dir); err != nil {
		t.Fatal(err)
	}
	// Logging is off: nothing may reach the repository.
	NotifyAcquire(1, 2, 0)
	NotifyStart(1, 2)
	UnsetRepository()

	st, err := repo.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	files, err := st.Files()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("disabled framework wrote %d files", len(files))
	}
}

func TestEnableIdempotent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	Enable()
	Enable()
	if !Enabled() {
		t.Error("Enabled() = false after Enable")
	}
	Disable()
	Disable()
	if Enabled() {
		t.Error("Enabled() = true after Disable")
	}
}

func TestNoRepositoryIsNoop(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	Enable()
	// Must not panic or block without a repository.
	NotifyAcquire(1, 2, 0)
	NotifyRelease(1, 2)
	NotifyStart(1, 2)
	NotifyJoin(1, 2)
}

func TestAcquireCarriesCallStack(t *testing.T) {
	dir := freshRepo(t)
	NotifyAcquire(7, 42, 0)
	UnsetRepository()

	events := readThread(t, dir, 7)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	acq, ok := events[0].(event.Acquire)
	if !ok {
		t.Fatalf("got %T, want Acquire", events[0])
	}
	if acq.Lock != 42 {
		t.Errorf("lock = %v, want 42", acq.Lock)
	}
	if len(acq.Info) == 0 {
		t.Error("acquire event has no call stack")
	}
}

func TestStartJoinSegments(t *testing.T) {
	dir := freshRepo(t)
	NotifyStart(0, 1) // segments: parent 0 -> 1, child 2
	NotifyStart(0, 2) // segments: parent 1 -> 3, child 4
	NotifyJoin(0, 1)  // parent 3 -> 5
	UnsetRepository()

	st, err := repo.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	pw, ok, err := st.StartJoinFile()
	if err != nil || !ok {
		t.Fatalf("StartJoinFile: %v %v", ok, err)
	}
	events, err := pw.Events()
	if err != nil {
		t.Fatal(err)
	}
	want := []event.Event{
		event.Start{Parent: 0, NewParent: 1, Child: 2},
		event.Start{Parent: 1, NewParent: 3, Child: 4},
		event.Join{Parent: 3, NewParent: 5, Child: 2},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d process-wide events, want %d", len(events), len(want))
	}
	for i := range want {
		if !event.Equal(events[i], want[i]) {
			t.Errorf("event %d = %#v, want %#v", i, events[i], want[i])
		}
	}

	// The parent's hop stream mirrors its segment history.
	hops := readThread(t, dir, 0)
	wantHops := []event.Event{
		event.SegmentHop{Thread: 0, Segment: 1},
		event.SegmentHop{Thread: 0, Segment: 3},
		event.SegmentHop{Thread: 0, Segment: 5},
	}
	if len(hops) != len(wantHops) {
		t.Fatalf("parent has %d events, want %d", len(hops), len(wantHops))
	}
	for i := range wantHops {
		if !event.Equal(hops[i], wantHops[i]) {
			t.Errorf("parent event %d = %#v, want %#v", i, hops[i], wantHops[i])
		}
	}
}

func TestStartRejectsSelf(t *testing.T) {
	dir := freshRepo(t)
	NotifyStart(3, 3)
	UnsetRepository()

	st, err := repo.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok, _ := st.StartJoinFile(); ok {
		t.Error("self-start produced a Start event")
	}
}

func TestJoinOfUnknownThread(t *testing.T) {
	dir := freshRepo(t)
	NotifyJoin(1, 2) // neither thread has a segment
	UnsetRepository()

	st, err := repo.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok, _ := st.StartJoinFile(); ok {
		t.Error("join of unknown threads produced a Join event")
	}
}

func TestSetRepositoryFailureKeepsCurrent(t *testing.T) {
	dir := freshRepo(t)
	NotifyAcquire(1, 2, 0)

	// Point at an impossible path: the active repository must
	// survive.
	bad := filepath.Join(t.TempDir(), "plainfile")
	if err := writeFile(bad); err != nil {
		t.Fatal(err)
	}
	if err := SetRepository(bad); err == nil {
		t.Fatal("SetRepository succeeded on a plain file")
	}
	NotifyRelease(1, 2)
	UnsetRepository()

	events := readThread(t, dir, 1)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (repository did not survive failed swap)", len(events))
	}
}

func TestUnsetRepositoryRoundTrip(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	dir := filepath.Join(t.TempDir(), "events")
	if err := SetRepository(dir); err != nil {
		t.Fatal(err)
	}
	UnsetRepository()
	if HasRepository() {
		t.Error("HasRepository after UnsetRepository")
	}
	// The directory lock must have been released: it can be
	// reopened for analysis.
	st, err := repo.Open(dir)
	if err != nil {
		t.Fatalf("repository still locked after unset: %v", err)
	}
	st.Close()
}
