package status

import (
	"testing"
	"time"
)

func TestSnapshotUnknownName(t *testing.T) {
	m := New()
	if _, ok := m.Snapshot("missing"); ok {
		t.Fatal("expected no snapshot for an untouched name")
	}
}

func TestMarkConnectedAndDisconnected(t *testing.T) {
	m := New()
	m.MarkConnected("echo")

	snap, ok := m.Snapshot("echo")
	if !ok {
		t.Fatal("expected a snapshot after MarkConnected")
	}
	if !snap.Connected {
		t.Fatal("expected Connected=true")
	}

	m.MarkDisconnected("echo")
	snap, _ = m.Snapshot("echo")
	if snap.Connected {
		t.Fatal("expected Connected=false after MarkDisconnected")
	}
}

func TestStreamCounters(t *testing.T) {
	m := New()
	m.StreamOpened("echo")
	m.StreamOpened("echo")
	m.StreamClosed("echo")

	snap, ok := m.Snapshot("echo")
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if snap.StreamsTotal != 2 {
		t.Fatalf("got StreamsTotal %d, want 2", snap.StreamsTotal)
	}
	if snap.StreamsActive != 1 {
		t.Fatalf("got StreamsActive %d, want 1", snap.StreamsActive)
	}
}

func TestStreamOpenedRefreshesLastSeen(t *testing.T) {
	m := New()
	m.MarkConnected("echo")
	snap, _ := m.Snapshot("echo")
	before := snap.LastSeen

	time.Sleep(5 * time.Millisecond)
	m.StreamOpened("echo")

	snap, _ = m.Snapshot("echo")
	if !snap.LastSeen.After(before) {
		t.Fatal("expected StreamOpened to advance LastSeen")
	}
}

func TestAddBytes(t *testing.T) {
	m := New()
	m.AddBytes("echo", 10, 20)
	m.AddBytes("echo", 5, 0)

	snap, _ := m.Snapshot("echo")
	if snap.BytesIn != 15 {
		t.Fatalf("got BytesIn %d, want 15", snap.BytesIn)
	}
	if snap.BytesOut != 20 {
		t.Fatalf("got BytesOut %d, want 20", snap.BytesOut)
	}
}

func TestAllReturnsEverySeenName(t *testing.T) {
	m := New()
	m.MarkConnected("a")
	m.MarkConnected("b")

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(all))
	}
	names := map[string]bool{}
	for _, s := range all {
		names[s.Name] = true
	}
	if !names["a"] || !names["b"] {
		t.Fatalf("missing expected names in %v", names)
	}
}
