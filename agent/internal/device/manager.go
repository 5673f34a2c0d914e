// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/types"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

// Backend supplies platform capture devices to the manager. The manager
// layers enumeration snapshots, exclusivity and busy fallback on top of it.
type Backend interface {
	Enumerate(ctx context.Context, kind internal_type.DeviceKind) ([]internal_type.Device, error)
	Open(ctx context.Context, device internal_type.Device) (internal_type.Track, error)
}

type manager struct {
	logger  commons.Logger
	backend Backend

	mu       sync.Mutex
	snapshot map[internal_type.DeviceKind][]internal_type.Device
	// held tracks the single live track per kind. Acquiring a new one for
	// the same kind releases the previous track first — the device layer
	// never holds two exclusive locks of one kind.
	held map[internal_type.DeviceKind]internal_type.Track
}

// NewManager builds the device access layer over a capture backend.
func NewManager(logger commons.Logger, backend Backend) internal_type.DeviceManager {
	return &manager{
		logger:   logger,
		backend:  backend,
		snapshot: make(map[internal_type.DeviceKind][]internal_type.Device),
		held:     make(map[internal_type.DeviceKind]internal_type.Track),
	}
}

func (m *manager) ListCameras(ctx context.Context) ([]internal_type.Device, error) {
	return m.list(ctx, internal_type.DeviceKindCamera)
}

func (m *manager) ListMicrophones(ctx context.Context) ([]internal_type.Device, error) {
	return m.list(ctx, internal_type.DeviceKindMicrophone)
}

func (m *manager) list(ctx context.Context, kind internal_type.DeviceKind) ([]internal_type.Device, error) {
	m.mu.Lock()
	cached, ok := m.snapshot[kind]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	devices, err := m.backend.Enumerate(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s devices: %w", kind, err)
	}
	m.mu.Lock()
	m.snapshot[kind] = devices
	m.mu.Unlock()
	return devices, nil
}

func (m *manager) Refresh(ctx context.Context) error {
	for _, kind := range []internal_type.DeviceKind{internal_type.DeviceKindCamera, internal_type.DeviceKindMicrophone} {
		devices, err := m.backend.Enumerate(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to refresh %s devices: %w", kind, err)
		}
		m.mu.Lock()
		m.snapshot[kind] = devices
		m.mu.Unlock()
	}
	return nil
}

// Acquire opens one device of the given kind. Busy devices do not fail the
// flow: the remaining snapshot of the same kind is tried in enumeration
// order, and the device actually opened is returned so callers can surface
// the substituted label. The policy is the same for cameras and
// microphones.
func (m *manager) Acquire(ctx context.Context, kind internal_type.DeviceKind, deviceID string) (internal_type.Track, internal_type.Device, error) {
	devices, err := m.list(ctx, kind)
	if err != nil {
		return nil, internal_type.Device{}, err
	}
	if len(devices) == 0 {
		return nil, internal_type.Device{}, fmt.Errorf("%w: no %s available", types.ErrDeviceNotFound, kind)
	}

	// Release any track already held for this kind before opening a new
	// exclusive lock. This must complete before Open is attempted.
	m.mu.Lock()
	if prev, ok := m.held[kind]; ok {
		delete(m.held, kind)
		m.mu.Unlock()
		if err := prev.Stop(); err != nil {
			m.logger.Warnf("failed to release previous %s track: %v", kind, err)
		}
	} else {
		m.mu.Unlock()
	}

	candidates := orderCandidates(devices, deviceID)
	if len(candidates) == 0 {
		return nil, internal_type.Device{}, fmt.Errorf("%w: %s %q", types.ErrDeviceNotFound, kind, deviceID)
	}

	var lastErr error
	for _, device := range candidates {
		track, err := m.backend.Open(ctx, device)
		if err == nil {
			m.mu.Lock()
			m.held[kind] = track
			m.mu.Unlock()
			if device.ID != deviceID && deviceID != "" {
				m.logger.Infof("%s %q unavailable, using %q instead", kind, deviceID, device.Label)
			}
			return track, device, nil
		}
		lastErr = err
		if errors.Is(err, types.ErrDeviceBusy) {
			m.logger.Warnf("%s %q is busy, trying next device", kind, device.Label)
			continue
		}
		// Permission and not-found failures are not recoverable by
		// switching devices.
		return nil, internal_type.Device{}, fmt.Errorf("failed to open %s %q: %w", kind, device.Label, err)
	}
	return nil, internal_type.Device{}, fmt.Errorf("all %s devices busy: %w", kind, lastErr)
}

func (m *manager) ReleaseAll() {
	m.mu.Lock()
	held := m.held
	m.held = make(map[internal_type.DeviceKind]internal_type.Track)
	m.mu.Unlock()

	for kind, track := range held {
		if err := track.Stop(); err != nil {
			m.logger.Warnf("failed to release %s track: %v", kind, err)
		}
	}
}

// orderCandidates places the requested device first and keeps the rest in
// enumeration order as fallbacks. An empty request means "system default",
// i.e. the snapshot as-is. An unknown ID yields no candidates.
func orderCandidates(devices []internal_type.Device, deviceID string) []internal_type.Device {
	if deviceID == "" {
		return devices
	}
	var requested *internal_type.Device
	rest := make([]internal_type.Device, 0, len(devices))
	for i := range devices {
		if devices[i].ID == deviceID {
			requested = &devices[i]
			continue
		}
		rest = append(rest, devices[i])
	}
	if requested == nil {
		return nil
	}
	return append([]internal_type.Device{*requested}, rest...)
}
