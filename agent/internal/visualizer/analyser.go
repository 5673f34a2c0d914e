// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_visualizer

import (
	"math"
	"sync"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

// DefaultWindowBytes bounds how much of the latest audio fragment the
// analyser keeps for snapshots.
const DefaultWindowBytes = 4096

// Analyser keeps the most recent audio fragment and renders amplitude
// buckets from it for an on-screen level meter. Purely cosmetic: nothing
// here feeds back into the recording flow.
type Analyser struct {
	mu     sync.Mutex
	window []byte
}

func NewAnalyser() *Analyser {
	return &Analyser{}
}

// Feed observes one capture packet. Non-audio packets are ignored.
func (a *Analyser) Feed(p internal_type.Packet) {
	if p.Kind != internal_type.DeviceKindMicrophone || len(p.Data) == 0 {
		return
	}
	data := p.Data
	if len(data) > DefaultWindowBytes {
		data = data[len(data)-DefaultWindowBytes:]
	}
	a.mu.Lock()
	a.window = append(a.window[:0], data...)
	a.mu.Unlock()
}

// Snapshot renders the current window into n buckets, each the RMS
// amplitude of its slice normalized to [0, 1]. With no audio observed yet
// every bucket is zero.
func (a *Analyser) Snapshot(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)

	a.mu.Lock()
	window := a.window
	a.mu.Unlock()
	if len(window) == 0 {
		return out
	}

	bucketLen := len(window) / n
	if bucketLen == 0 {
		bucketLen = 1
	}
	for i := 0; i < n; i++ {
		start := i * bucketLen
		if start >= len(window) {
			break
		}
		end := start + bucketLen
		if end > len(window) {
			end = len(window)
		}
		var sum float64
		for _, b := range window[start:end] {
			// Center around the unsigned midpoint so silence reads as zero.
			v := (float64(b) - 128) / 128
			sum += v * v
		}
		out[i] = math.Sqrt(sum / float64(end-start))
	}
	return out
}
