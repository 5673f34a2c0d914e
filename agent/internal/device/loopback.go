// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rapidaai/interview/pkg/types"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

// LoopbackBackend is an in-process capture backend. The standalone agent
// runs against it when no platform capture is attached, and it doubles as
// the deterministic backend for tests: devices can be marked busy, removed,
// or failed mid-capture.
type LoopbackBackend struct {
	mu      sync.Mutex
	devices []internal_type.Device
	busy    map[string]bool
	// chunkEvery paces synthetic chunk emission. Zero disables emission;
	// tracks then only deliver what FailDevice/Stop produce.
	chunkEvery time.Duration
	chunkSize  int
	open       map[string]*loopbackTrack
}

// NewLoopbackBackend seeds a backend with the given devices.
func NewLoopbackBackend(devices []internal_type.Device, chunkEvery time.Duration) *LoopbackBackend {
	return &LoopbackBackend{
		devices:    devices,
		busy:       make(map[string]bool),
		chunkEvery: chunkEvery,
		chunkSize:  1024,
		open:       make(map[string]*loopbackTrack),
	}
}

func (b *LoopbackBackend) Enumerate(_ context.Context, kind internal_type.DeviceKind) ([]internal_type.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []internal_type.Device
	for _, d := range b.devices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *LoopbackBackend) Open(_ context.Context, device internal_type.Device) (internal_type.Track, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy[device.ID] {
		return nil, fmt.Errorf("%w: %s", types.ErrDeviceBusy, device.Label)
	}
	// A device with a live track is held exclusively, same as a physical
	// camera claimed by another process.
	if prev, ok := b.open[device.ID]; ok && !prev.isClosed() {
		return nil, fmt.Errorf("%w: %s already streaming", types.ErrDeviceBusy, device.Label)
	}
	found := false
	for _, d := range b.devices {
		if d.ID == device.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", types.ErrDeviceNotFound, device.ID)
	}

	track := newLoopbackTrack(device, b.chunkEvery, b.chunkSize)
	b.open[device.ID] = track
	return track, nil
}

// SetBusy marks a device as held by another process.
func (b *LoopbackBackend) SetBusy(deviceID string, busy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.busy[deviceID] = busy
}

// FailDevice simulates the device disappearing mid-capture: its open track
// closes with an error.
func (b *LoopbackBackend) FailDevice(deviceID string) {
	b.mu.Lock()
	track := b.open[deviceID]
	b.mu.Unlock()
	if track != nil {
		track.fail(fmt.Errorf("%w: %s", types.ErrDeviceNotFound, deviceID))
	}
}

type loopbackTrack struct {
	device internal_type.Device
	chunks chan internal_type.Packet

	mu         sync.Mutex
	err        error
	closed     bool
	done       chan struct{}
	hasEmitter bool
}

func newLoopbackTrack(device internal_type.Device, chunkEvery time.Duration, chunkSize int) *loopbackTrack {
	t := &loopbackTrack{
		device: device,
		chunks: make(chan internal_type.Packet, 64),
		done:   make(chan struct{}),
	}
	if chunkEvery > 0 {
		t.hasEmitter = true
		go t.emit(chunkEvery, chunkSize)
	}
	return t
}

// emit owns the chunk channel: it is the only sender and closes it on exit,
// so a concurrent Stop can never race a send against the close.
func (t *loopbackTrack) emit(every time.Duration, size int) {
	defer close(t.chunks)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	seq := byte(0)
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = seq
			}
			seq++
			select {
			case t.chunks <- internal_type.Packet{Kind: t.device.Kind, Data: payload}:
			case <-t.done:
				return
			}
		}
	}
}

func (t *loopbackTrack) Device() internal_type.Device        { return t.device }
func (t *loopbackTrack) Chunks() <-chan internal_type.Packet { return t.chunks }

func (t *loopbackTrack) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *loopbackTrack) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *loopbackTrack) Stop() error {
	t.closeWith(nil)
	return nil
}

func (t *loopbackTrack) fail(err error) {
	t.closeWith(err)
}

func (t *loopbackTrack) closeWith(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.err = err
	t.mu.Unlock()
	close(t.done)
	if !t.hasEmitter {
		close(t.chunks)
	}
}
