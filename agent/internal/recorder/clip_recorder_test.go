// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rapidaai/interview/pkg/commons"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-recorder"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func newTestRecorder(t *testing.T) *clipRecorder {
	t.Helper()
	return NewClipRecorder(newTestLogger(t)).(*clipRecorder)
}

func videoPacket(val byte, length int) internal_type.Packet {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = val
	}
	return internal_type.Packet{Kind: internal_type.DeviceKindCamera, Data: buf}
}

func TestRecordBuffersChunk(t *testing.T) {
	rec := newTestRecorder(t)
	rec.Start()
	p := videoPacket(0x01, 320)
	if err := rec.Record(context.Background(), p); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if len(rec.chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(rec.chunks))
	}
	if !bytes.Equal(rec.chunks[0].Data, p.Data) {
		t.Errorf("data mismatch")
	}
}

func TestRecordEmptyDataIsIgnored(t *testing.T) {
	rec := newTestRecorder(t)
	rec.Start()
	ctx := context.Background()
	rec.Record(ctx, internal_type.Packet{Kind: internal_type.DeviceKindCamera, Data: nil})
	rec.Record(ctx, internal_type.Packet{Kind: internal_type.DeviceKindMicrophone, Data: []byte{}})

	if len(rec.chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(rec.chunks))
	}
}

func TestRecordCopiesCallerBuffer(t *testing.T) {
	rec := newTestRecorder(t)
	rec.Start()
	data := []byte{1, 2, 3}
	rec.Record(context.Background(), internal_type.Packet{Kind: internal_type.DeviceKindCamera, Data: data})
	data[0] = 99

	if rec.chunks[0].Data[0] != 1 {
		t.Error("recorder must copy chunk data, not alias the caller buffer")
	}
}

// Chunk placement never moves backwards even if the clock does.
func TestChunkPlacementIsMonotonic(t *testing.T) {
	rec := newTestRecorder(t)
	now := time.Unix(1000, 0)
	rec.clock = func() time.Time { return now }
	rec.Start()

	now = now.Add(2 * time.Second)
	rec.Record(context.Background(), videoPacket(0x01, 16))

	// Clock jumps backwards; the next chunk must not land before the
	// previous one.
	now = now.Add(-1 * time.Second)
	rec.Record(context.Background(), videoPacket(0x02, 16))

	if rec.chunks[1].Offset < rec.chunks[0].Offset {
		t.Errorf("chunk offsets regressed: %v then %v", rec.chunks[0].Offset, rec.chunks[1].Offset)
	}
}

func TestPersistConcatenatesInOrder(t *testing.T) {
	rec := newTestRecorder(t)
	rec.Start()
	ctx := context.Background()
	rec.Record(ctx, videoPacket(0xAA, 4))
	rec.Record(ctx, videoPacket(0xBB, 4))

	clip, err := rec.Persist()
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	want := append(bytes.Repeat([]byte{0xAA}, 4), bytes.Repeat([]byte{0xBB}, 4)...)
	if !bytes.Equal(clip.Data, want) {
		t.Errorf("clip bytes out of order: %x", clip.Data)
	}
	if clip.MimeType != "video/webm" {
		t.Errorf("unexpected mime type %q", clip.MimeType)
	}
}

func TestPersistWithoutChunksFails(t *testing.T) {
	rec := newTestRecorder(t)
	rec.Start()
	if _, err := rec.Persist(); err == nil {
		t.Fatal("expected error persisting an empty recording")
	}
}

func TestDuration(t *testing.T) {
	rec := newTestRecorder(t)
	now := time.Unix(1000, 0)
	rec.clock = func() time.Time { return now }

	if rec.Duration() != 0 {
		t.Error("duration before Start should be zero")
	}

	rec.Start()
	now = now.Add(5 * time.Second)
	if rec.Duration() != 5*time.Second {
		t.Errorf("expected 5s, got %v", rec.Duration())
	}
}
