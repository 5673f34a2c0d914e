// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/types"

	internal_device "github.com/rapidaai/interview/agent/internal/device"
	internal_recorder "github.com/rapidaai/interview/agent/internal/recorder"
	internal_type "github.com/rapidaai/interview/agent/internal/type"
)

// ============================================================================
// Test helpers
// ============================================================================

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-machine"),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

type submitResult struct {
	resp *types.InterviewResponse
	err  error
}

type submitCall struct {
	sessionID string
	order     int
	clipSize  int64
}

// scriptedClient replays canned SubmitAnswer results in order.
type scriptedClient struct {
	mu      sync.Mutex
	results []submitResult
	calls   []submitCall
}

func (c *scriptedClient) StartInterview(_ context.Context, interviewID, candidateID string) (*types.InterviewSession, error) {
	return nil, errors.New("not used in machine tests")
}

func (c *scriptedClient) CurrentSession(_ context.Context, interviewID string) (*types.InterviewSession, error) {
	return nil, errors.New("not used in machine tests")
}

func (c *scriptedClient) SubmitAnswer(_ context.Context, sessionID, candidateID string, questionOrder int, clip types.Clip) (*types.InterviewResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, submitCall{sessionID: sessionID, order: questionOrder, clipSize: clip.Size()})
	if len(c.results) == 0 {
		return nil, fmt.Errorf("scriptedClient: no result for call %d", len(c.calls))
	}
	result := c.results[0]
	c.results = c.results[1:]
	return result.resp, result.err
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *scriptedClient) call(i int) submitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[i]
}

func question(order, tempo int) types.Question {
	return types.Question{Texto: fmt.Sprintf("Pergunta %d", order), Ordem: order, TempoMaximo: tempo}
}

func session(tempo int) *types.InterviewSession {
	return &types.InterviewSession{
		ID:                 "ent-1",
		CandidatoID:        "cand-1",
		PerguntaAtual:      question(1, tempo),
		TotalPerguntas:     2,
		PerguntasRestantes: 2,
	}
}

type fixture struct {
	machine *Machine
	backend *internal_device.LoopbackBackend
	client  *scriptedClient
}

func newFixture(t *testing.T, s *types.InterviewSession, results ...submitResult) *fixture {
	t.Helper()
	logger := newTestLogger(t)
	backend := internal_device.NewLoopbackBackend([]internal_type.Device{
		{ID: "cam-1", Label: "Integrated Camera", Kind: internal_type.DeviceKindCamera},
		{ID: "cam-2", Label: "USB Camera", Kind: internal_type.DeviceKindCamera},
		{ID: "mic-1", Label: "Internal Microphone", Kind: internal_type.DeviceKindMicrophone},
	}, 2*time.Millisecond)
	client := &scriptedClient{results: results}

	m := New(
		logger,
		internal_device.NewManager(logger, backend),
		client,
		func() internal_type.Recorder { return internal_recorder.NewClipRecorder(logger) },
		s,
		WithTickInterval(5*time.Millisecond),
	)
	t.Cleanup(m.Close)
	return &fixture{machine: m, backend: backend, client: client}
}

func waitPhase(t *testing.T, m *Machine, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, still %s", want, m.Phase())
}

func nextQuestionResponse(order, tempo, remaining int) *types.InterviewResponse {
	q := question(order, tempo)
	return &types.InterviewResponse{
		Finalizada:         false,
		PerguntaAtual:      &q,
		TotalPerguntas:     2,
		PerguntasRestantes: remaining,
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Two-question interview: record, stop, next question resets the countdown;
// second answer runs to timer expiry and the finalizada reply finishes the
// machine.
func TestFullInterviewFlow(t *testing.T) {
	f := newFixture(t, session(120),
		submitResult{resp: nextQuestionResponse(2, 120, 1)},
		submitResult{resp: &types.InterviewResponse{Finalizada: true, Feedback: "Obrigado!"}},
	)
	m := f.machine
	ctx := context.Background()

	require.Equal(t, PhaseIdle, m.Phase())
	require.Equal(t, 120, m.Remaining())

	require.NoError(t, m.Start(ctx))
	require.Equal(t, PhaseRecording, m.Phase())
	time.Sleep(20 * time.Millisecond) // let a few chunks land

	require.NoError(t, m.Stop(ctx))
	waitPhase(t, m, PhaseIdle)

	// Session replaced wholesale, countdown re-armed.
	assert.Equal(t, 2, m.Session().PerguntaAtual.Ordem)
	assert.Equal(t, 1, m.Session().PerguntasRestantes)
	assert.Equal(t, 120, m.Remaining())
	assert.Equal(t, 1, f.client.callCount())
	assert.Equal(t, 1, f.client.call(0).order)
	assert.Greater(t, f.client.call(0).clipSize, int64(0))

	// Second question: let the countdown expire naturally.
	m.Session().PerguntaAtual.TempoMaximo = 2
	require.NoError(t, m.Start(ctx))
	waitPhase(t, m, PhaseFinished)

	assert.Equal(t, 0, m.Remaining(), "remaining time must end at exactly zero")
	assert.Equal(t, 2, f.client.callCount())
	assert.Equal(t, 2, f.client.call(1).order)
}

// Questions without tempo_maximo fall back to the 120s default.
func TestDefaultDuration(t *testing.T) {
	f := newFixture(t, session(0))
	assert.Equal(t, 120, f.machine.Remaining())
}

func TestTimerExpiryStopsAtZero(t *testing.T) {
	f := newFixture(t, session(3),
		submitResult{resp: &types.InterviewResponse{Finalizada: true}},
	)
	require.NoError(t, f.machine.Start(context.Background()))
	waitPhase(t, f.machine, PhaseFinished)
	assert.Equal(t, 0, f.machine.Remaining())
}

// Every track is released when recording stops: the same devices can be
// re-acquired immediately, which the loopback backend only allows once the
// previous exclusive stream is closed.
func TestStopReleasesStream(t *testing.T) {
	f := newFixture(t, session(120),
		submitResult{resp: nextQuestionResponse(2, 90, 1)},
	)
	ctx := context.Background()

	require.NoError(t, f.machine.Start(ctx))
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, f.machine.Stop(ctx))
	waitPhase(t, f.machine, PhaseIdle)
	assert.Equal(t, 90, f.machine.Remaining())

	require.NoError(t, f.machine.Start(ctx), "devices must be free after stop")
	require.Equal(t, PhaseRecording, f.machine.Phase())
}

func TestStartWhileRecordingRejected(t *testing.T) {
	f := newFixture(t, session(120))
	ctx := context.Background()
	require.NoError(t, f.machine.Start(ctx))

	err := f.machine.Start(ctx)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStopWhileIdleRejected(t *testing.T) {
	f := newFixture(t, session(120))
	require.ErrorIs(t, f.machine.Stop(context.Background()), ErrInvalidState)
}

func TestDeviceSwitchWhileRecordingRejected(t *testing.T) {
	f := newFixture(t, session(120))
	require.NoError(t, f.machine.Start(context.Background()))
	require.ErrorIs(t, f.machine.SelectCamera("cam-2"), ErrInvalidState)
}

// ============================================================================
// Failure handling
// ============================================================================

// A failed upload keeps the clip; Retry resubmits the same bytes without
// re-recording.
func TestUploadFailureKeepsClipForRetry(t *testing.T) {
	f := newFixture(t, session(120),
		submitResult{err: fmt.Errorf("%w: status 503", types.ErrServiceUnavailable)},
		submitResult{resp: &types.InterviewResponse{Finalizada: true}},
	)
	m := f.machine
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	time.Sleep(15 * time.Millisecond)

	err := m.Stop(ctx)
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
	assert.Equal(t, PhaseUploading, m.Phase(), "failure leaves the machine in a recoverable uploading state")
	assert.ErrorIs(t, m.LastError(), types.ErrServiceUnavailable)

	require.NoError(t, m.Retry(ctx))
	waitPhase(t, m, PhaseFinished)

	require.Equal(t, 2, f.client.callCount())
	assert.Equal(t, f.client.call(0).clipSize, f.client.call(1).clipSize,
		"retry must resubmit the recorded clip unchanged")
	assert.Equal(t, f.client.call(0).order, f.client.call(1).order)
}

func TestRetryWithoutFailedUploadRejected(t *testing.T) {
	f := newFixture(t, session(120))
	require.ErrorIs(t, f.machine.Retry(context.Background()), ErrInvalidState)
}

// A busy camera is substituted with the next enumerated one and the UI is
// told about the new device.
func TestBusyCameraFallsBackAndNotifies(t *testing.T) {
	f := newFixture(t, session(120))
	f.backend.SetBusy("cam-1", true)
	require.NoError(t, f.machine.SelectCamera("cam-1"))

	require.NoError(t, f.machine.Start(context.Background()))

	deadline := time.After(time.Second)
	for {
		select {
		case n := <-f.machine.Notifications():
			if n.Kind == EventDeviceSubstituted {
				assert.Equal(t, "cam-2", n.Device.ID)
				assert.Equal(t, "USB Camera", n.Device.Label)
				return
			}
		case <-deadline:
			t.Fatal("no device substitution notification received")
		}
	}
}

// The camera dying mid-recording moves the machine to Error; reselecting a
// device allows a clean re-start.
func TestDeviceFailureMidRecording(t *testing.T) {
	f := newFixture(t, session(120))
	m := f.machine
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	time.Sleep(10 * time.Millisecond)
	f.backend.FailDevice("cam-1")
	waitPhase(t, m, PhaseError)
	assert.Error(t, m.LastError())

	require.NoError(t, m.SelectCamera("cam-2"))
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, PhaseRecording, m.Phase())
}

func TestStartWithAllDevicesBusy(t *testing.T) {
	f := newFixture(t, session(120))
	f.backend.SetBusy("mic-1", true)

	err := f.machine.Start(context.Background())
	require.ErrorIs(t, err, types.ErrDeviceBusy)
	assert.Equal(t, PhaseError, f.machine.Phase())
}
