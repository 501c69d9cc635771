package repometa

import (
	"testing"
	"time"
)

func TestLatestInitTimeAtInclusiveBoundary(t *testing.T) {
	m := Model{RunningHours: []int{0, 6, 12, 18}, DelayMinutes: 60}

	// Exactly on the boundary: now-delay = 06:00, which is a running hour.
	now := time.Date(2021, 1, 1, 7, 0, 0, 0, time.UTC)
	got := m.LatestInitTimeAt(now)
	want := time.Date(2021, 1, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLatestInitTimeAtRollsBack(t *testing.T) {
	m := Model{RunningHours: []int{0, 6, 12, 18}, DelayMinutes: 60}
	now := time.Date(2021, 1, 1, 8, 30, 0, 0, time.UTC)
	got := m.LatestInitTimeAt(now)
	want := time.Date(2021, 1, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLatestInitTimeAtCrossesMidnight(t *testing.T) {
	m := Model{RunningHours: []int{18}, DelayMinutes: 120}
	now := time.Date(2021, 1, 2, 1, 0, 0, 0, time.UTC)
	got := m.LatestInitTimeAt(now)
	want := time.Date(2021, 1, 1, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestValidateRejectsBadMaxConnections(t *testing.T) {
	m := Model{Name: "x", MaxConnections: 0}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for MaxConnections=0")
	}
}

func TestChunkCountDefaults(t *testing.T) {
	m := Model{}
	if d := m.ChunkCount("latitude"); d != 4 {
		t.Errorf("default spatial chunk count = %d, want 4", d)
	}
	if d := m.ChunkCount("step"); d != 0 {
		t.Errorf("default step chunk count sentinel = %d, want 0", d)
	}
}

func TestChunkCountOverride(t *testing.T) {
	m := Model{ChunkCountOverrides: map[string]int{"latitude": 8}}
	if d := m.ChunkCount("latitude"); d != 8 {
		t.Errorf("overridden chunk count = %d, want 8", d)
	}
}
