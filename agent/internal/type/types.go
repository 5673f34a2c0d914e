// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"
	"time"

	"github.com/rapidaai/interview/pkg/types"
)

// DeviceKind discriminates capture device classes, mirroring the
// enumeration kinds exposed by browser media APIs.
type DeviceKind string

const (
	DeviceKindCamera     DeviceKind = "videoinput"
	DeviceKindMicrophone DeviceKind = "audioinput"
)

// Device identifies one capture device.
type Device struct {
	ID    string
	Label string
	Kind  DeviceKind
}

// Packet is one encoded media fragment emitted by a live track.
type Packet struct {
	Kind DeviceKind
	Data []byte
}

// Track is a live capture feed from exactly one device.
type Track interface {
	// Device returns the device backing this track.
	Device() Device
	// Chunks delivers encoded fragments in emission order. The channel is
	// closed when the track stops, either through Stop or a device failure.
	Chunks() <-chan Packet
	// Err reports why the chunk channel closed. Nil after a clean Stop,
	// non-nil when the device failed mid-capture.
	Err() error
	// Stop releases the device. Idempotent.
	Stop() error
}

// DeviceManager is the device access layer: enumeration snapshots and
// exclusive stream acquisition with typed failures.
type DeviceManager interface {
	// ListCameras returns the current camera snapshot, enumerating lazily on
	// first use. Refresh rebuilds it.
	ListCameras(ctx context.Context) ([]Device, error)
	// ListMicrophones returns the current microphone snapshot.
	ListMicrophones(ctx context.Context) ([]Device, error)
	// Refresh re-enumerates both snapshots, e.g. after an OS device change.
	Refresh(ctx context.Context) error
	// Acquire opens a track for one device of the given kind, or the first
	// enumerated device when deviceID is empty. Any track already held for
	// the same kind is fully released first. A busy device triggers
	// fallback over the remaining same-kind snapshot; the returned Device
	// is the one actually opened.
	Acquire(ctx context.Context, kind DeviceKind, deviceID string) (Track, Device, error)
	// ReleaseAll stops every held track.
	ReleaseAll()
}

// Recorder accumulates packets from live tracks and finalizes them into a
// single uploadable clip.
type Recorder interface {
	// Start begins the recording timeline. All subsequent Record calls are
	// placed on a wall-clock timeline relative to this moment.
	Start()
	// Record buffers one media fragment.
	Record(context.Context, Packet) error
	// Persist finalizes the buffered fragments into one encoded clip.
	Persist() (types.Clip, error)
	// Duration reports the recorded timeline span so far.
	Duration() time.Duration
}
