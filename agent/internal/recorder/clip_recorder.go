// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/types"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

// chunk is a recorded media fragment placed at a specific position on the
// timeline. Offset is relative to Start().
type chunk struct {
	Offset time.Duration
	Data   []byte
	Kind   internal_type.DeviceKind
}

type clipRecorder struct {
	logger    commons.Logger
	mu        sync.Mutex
	startTime time.Time
	started   bool
	chunks    []chunk
	lastEnd   time.Duration
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewClipRecorder builds a recorder that buffers encoded capture fragments
// in memory and finalizes them into one uploadable clip. The fragments
// arrive already containerized (the capture source emits the header with
// its first fragment), so Persist concatenates them in emission order.
func NewClipRecorder(logger commons.Logger) internal_type.Recorder {
	return &clipRecorder{
		logger: logger,
		clock:  time.Now,
	}
}

// Start begins the recording session. Fragments are placed on the timeline
// based on when they arrive relative to this moment.
func (r *clipRecorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = r.clock()
	r.started = true
}

// Record buffers one fragment at the current wall-clock position. Empty
// fragments are ignored. Placement is monotonic: a fragment never lands
// before the end of the previous one, so out-of-order timer wakeups cannot
// reorder the clip.
func (r *clipRecorder) Record(_ context.Context, p internal_type.Packet) error {
	if len(p.Data) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	offset := time.Duration(0)
	if r.started {
		offset = r.clock().Sub(r.startTime)
	}
	if offset < r.lastEnd {
		offset = r.lastEnd
	}

	// Copy to avoid caller mutations.
	buf := make([]byte, len(p.Data))
	copy(buf, p.Data)

	r.chunks = append(r.chunks, chunk{Offset: offset, Data: buf, Kind: p.Kind})
	r.lastEnd = offset
	return nil
}

// Persist finalizes the buffered fragments into one clip. Fragments are
// concatenated in emission order; the first fragment carries the container
// header.
func (r *clipRecorder) Persist() (types.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.chunks) == 0 {
		return types.Clip{}, fmt.Errorf("no recorded chunks to persist")
	}

	var buf bytes.Buffer
	total := 0
	for _, c := range r.chunks {
		buf.Write(c.Data)
		total += len(c.Data)
	}

	span := time.Duration(0)
	if r.started {
		span = r.clock().Sub(r.startTime)
	}
	r.logger.Infof("clip persisted: bytes=%d chunks=%d span=%.2fs",
		total, len(r.chunks), span.Seconds())

	return types.Clip{
		Data:     buf.Bytes(),
		MimeType: "video/webm",
	}, nil
}

// Duration reports the timeline span recorded so far.
func (r *clipRecorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return 0
	}
	return r.clock().Sub(r.startTime)
}
