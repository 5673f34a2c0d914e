package internal_visualizer

import (
	"bytes"
	"testing"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

func TestSnapshotSilentBeforeAudio(t *testing.T) {
	a := NewAnalyser()
	levels := a.Snapshot(8)
	if len(levels) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(levels))
	}
	for i, l := range levels {
		if l != 0 {
			t.Errorf("bucket %d should be silent, got %f", i, l)
		}
	}
}

func TestFeedIgnoresVideo(t *testing.T) {
	a := NewAnalyser()
	a.Feed(internal_type.Packet{Kind: internal_type.DeviceKindCamera, Data: bytes.Repeat([]byte{0xFF}, 64)})
	for _, l := range a.Snapshot(4) {
		if l != 0 {
			t.Fatal("video packets must not affect the meter")
		}
	}
}

func TestSnapshotLevels(t *testing.T) {
	a := NewAnalyser()

	// Midpoint bytes are silence, 0x00/0xFF are loud.
	a.Feed(internal_type.Packet{Kind: internal_type.DeviceKindMicrophone, Data: bytes.Repeat([]byte{128}, 256)})
	for _, l := range a.Snapshot(4) {
		if l != 0 {
			t.Errorf("midpoint samples should read as silence, got %f", l)
		}
	}

	a.Feed(internal_type.Packet{Kind: internal_type.DeviceKindMicrophone, Data: bytes.Repeat([]byte{0}, 256)})
	for _, l := range a.Snapshot(4) {
		if l < 0.9 || l > 1.0 {
			t.Errorf("full-scale samples should read near 1.0, got %f", l)
		}
	}
}

func TestSnapshotBucketCount(t *testing.T) {
	a := NewAnalyser()
	a.Feed(internal_type.Packet{Kind: internal_type.DeviceKindMicrophone, Data: bytes.Repeat([]byte{0}, 10)})

	if got := a.Snapshot(0); got != nil {
		t.Errorf("zero buckets should yield nil, got %v", got)
	}
	if got := a.Snapshot(32); len(got) != 32 {
		t.Errorf("expected 32 buckets even for a short window, got %d", len(got))
	}
}
