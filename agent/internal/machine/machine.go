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
	"time"

	interview_client "github.com/rapidaai/interview/pkg/clients/interview"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/types"

	internal_type "github.com/rapidaai/interview/agent/internal/type"
	internal_visualizer "github.com/rapidaai/interview/agent/internal/visualizer"
)

// Phase is the machine's current position in the answer lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"      // session loaded, awaiting Start
	PhaseRecording Phase = "recording" // capture live, countdown running
	PhaseUploading Phase = "uploading" // clip finalized, submission pending or failed
	PhaseFinished  Phase = "finished"  // server signalled finalizada
	PhaseError     Phase = "error"     // device failure, re-Start after reselecting
)

// ErrInvalidState is returned when an operation is not legal in the current
// phase, e.g. Stop while Idle or Start while Uploading.
var ErrInvalidState = errors.New("operation not valid in current phase")

// EventKind tags machine notifications.
type EventKind string

const (
	EventPhaseChanged      EventKind = "phase_changed"
	EventTick              EventKind = "tick"
	EventDeviceSubstituted EventKind = "device_substituted"
	EventUploadFailed      EventKind = "upload_failed"
	EventNextQuestion      EventKind = "next_question"
	EventFinished          EventKind = "finished"
	EventDeviceError       EventKind = "device_error"
)

// Notification is a machine event surfaced to the candidate UI.
type Notification struct {
	Kind      EventKind
	Phase     Phase
	Remaining int
	Device    internal_type.Device
	Message   string
}

type machineOptions struct {
	tickInterval time.Duration
	notifyBuffer int
	analyser     *internal_visualizer.Analyser
}

type Option func(*machineOptions)

// WithTickInterval overrides the countdown tick period. Production runs at
// one second; tests compress it.
func WithTickInterval(d time.Duration) Option {
	return func(o *machineOptions) { o.tickInterval = d }
}

// WithNotifyBuffer sizes the notification channel.
func WithNotifyBuffer(n int) Option {
	return func(o *machineOptions) { o.notifyBuffer = n }
}

// WithAnalyser tees live audio into a level-meter analyser.
func WithAnalyser(a *internal_visualizer.Analyser) Option {
	return func(o *machineOptions) { o.analyser = a }
}

// Machine owns the active capture stream, the per-question countdown and
// the recorder, and drives record → stop → upload → next-question
// transitions. All external inputs (timer ticks, chunk arrival, device
// failure, candidate actions) converge on this one state owner; there are
// no scattered flags.
type Machine struct {
	logger      commons.Logger
	devices     internal_type.DeviceManager
	client      interview_client.InterviewServiceClient
	newRecorder func() internal_type.Recorder
	analyser    *internal_visualizer.Analyser

	// Machine-owned lifecycle, so cleanup is never short-circuited by a
	// caller's context being cancelled first.
	ctx    context.Context
	cancel context.CancelFunc

	tickInterval time.Duration
	notifyCh     chan Notification

	mu        sync.Mutex
	phase     Phase
	session   *types.InterviewSession
	remaining int

	// Device selection. Takes effect on the next Start; hot-swapping while
	// Recording is not supported.
	cameraID     string
	microphoneID string

	tracks        []internal_type.Track
	recorder      internal_type.Recorder
	cancelCapture context.CancelFunc
	pumps         sync.WaitGroup

	// The last finalized clip survives upload failure so the candidate can
	// retry without re-recording.
	lastClip  *types.Clip
	lastOrder int
	lastErr   error
}

// New builds a machine around an established interview session. The
// countdown for the first question is armed but not started; recording
// begins on Start.
func New(
	logger commons.Logger,
	devices internal_type.DeviceManager,
	client interview_client.InterviewServiceClient,
	newRecorder func() internal_type.Recorder,
	session *types.InterviewSession,
	opts ...Option,
) *Machine {
	options := &machineOptions{
		tickInterval: time.Second,
		notifyBuffer: 64,
	}
	for _, opt := range opts {
		opt(options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		logger:       logger,
		devices:      devices,
		client:       client,
		newRecorder:  newRecorder,
		analyser:     options.analyser,
		ctx:          ctx,
		cancel:       cancel,
		tickInterval: options.tickInterval,
		notifyCh:     make(chan Notification, options.notifyBuffer),
		phase:        PhaseIdle,
		session:      session,
		remaining:    session.PerguntaAtual.MaxDurationSeconds(),
	}
}

// Notifications exposes machine events for the UI.
func (m *Machine) Notifications() <-chan Notification {
	return m.notifyCh
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Remaining returns the countdown value in seconds. Never negative.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// Session returns the current interview session.
func (m *Machine) Session() *types.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LastError returns the most recent recoverable failure.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SelectCamera records the camera for the next Start. Not allowed while
// recording.
func (m *Machine) SelectCamera(deviceID string) error {
	return m.selectDevice(&m.cameraID, deviceID)
}

// SelectMicrophone records the microphone for the next Start.
func (m *Machine) SelectMicrophone(deviceID string) error {
	return m.selectDevice(&m.microphoneID, deviceID)
}

func (m *Machine) selectDevice(target *string, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseRecording {
		return fmt.Errorf("%w: cannot switch devices while recording", ErrInvalidState)
	}
	*target = deviceID
	return nil
}

// Start acquires the selected devices and begins recording the current
// question. Legal from Idle and from Error (after the candidate reselects
// a device). Any prior capture is fully released before new devices are
// acquired.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseIdle && m.phase != PhaseError {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, phase)
	}
	if m.session == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: no active session", ErrInvalidState)
	}
	cameraID, microphoneID := m.cameraID, m.microphoneID
	m.mu.Unlock()

	// Hard precondition: the previous capture must be gone before a new
	// stream is opened.
	m.releaseCapture()

	micTrack, micDevice, err := m.devices.Acquire(ctx, internal_type.DeviceKindMicrophone, microphoneID)
	if err != nil {
		m.toError(fmt.Errorf("microphone acquisition failed: %w", err))
		return err
	}
	camTrack, camDevice, err := m.devices.Acquire(ctx, internal_type.DeviceKindCamera, cameraID)
	if err != nil {
		micTrack.Stop()
		m.toError(fmt.Errorf("camera acquisition failed: %w", err))
		return err
	}

	if microphoneID != "" && micDevice.ID != microphoneID {
		m.notify(Notification{Kind: EventDeviceSubstituted, Device: micDevice})
	}
	if cameraID != "" && camDevice.ID != cameraID {
		m.notify(Notification{Kind: EventDeviceSubstituted, Device: camDevice})
	}

	captureCtx, cancelCapture := context.WithCancel(m.ctx)
	recorder := m.newRecorder()
	recorder.Start()

	m.mu.Lock()
	m.tracks = []internal_type.Track{micTrack, camTrack}
	m.recorder = recorder
	m.cancelCapture = cancelCapture
	m.remaining = m.session.PerguntaAtual.MaxDurationSeconds()
	m.lastErr = nil
	m.setPhaseLocked(PhaseRecording)
	m.mu.Unlock()

	for _, track := range []internal_type.Track{micTrack, camTrack} {
		m.pumps.Add(1)
		go m.pump(captureCtx, track, recorder)
	}
	go m.runCountdown(captureCtx)

	m.logger.Infof("recording started: question=%d camera=%q microphone=%q",
		m.Session().PerguntaAtual.Ordem, camDevice.Label, micDevice.Label)
	return nil
}

// Stop finalizes the recording and submits the clip. Called by the
// candidate or by countdown expiry; only the first caller wins.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseRecording {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidState, phase)
	}
	// Claim the transition before releasing the lock so a concurrent Stop
	// (manual vs. timer) cannot run twice.
	m.setPhaseLocked(PhaseUploading)
	recorder := m.recorder
	order := m.session.PerguntaAtual.Ordem
	m.mu.Unlock()

	m.releaseCapture()

	clip, err := recorder.Persist()
	if err != nil {
		m.toError(fmt.Errorf("failed to finalize recording: %w", err))
		return err
	}

	m.mu.Lock()
	m.lastClip = &clip
	m.lastOrder = order
	m.mu.Unlock()

	return m.upload(ctx)
}

// Retry resubmits the clip kept from a failed upload. The candidate does
// not re-record.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseUploading || m.lastClip == nil {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidState, phase)
	}
	m.mu.Unlock()
	return m.upload(ctx)
}

// Close tears the machine down: capture released, countdown cancelled.
func (m *Machine) Close() {
	m.cancel()
	m.releaseCapture()
	m.devices.ReleaseAll()
}

func (m *Machine) upload(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	clip := m.lastClip
	order := m.lastOrder
	m.mu.Unlock()

	resp, err := m.client.SubmitAnswer(ctx, session.ID, session.CandidatoID, order, *clip)
	if err != nil {
		// Keep the clip; the candidate retries without losing the answer.
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		m.notify(Notification{Kind: EventUploadFailed, Phase: PhaseUploading, Message: err.Error()})
		m.logger.Errorf("answer upload failed: question=%d err=%v", order, err)
		return err
	}

	m.mu.Lock()
	m.lastClip = nil
	m.lastErr = nil
	if resp.Finalizada {
		m.session = nil
		m.setPhaseLocked(PhaseFinished)
		m.mu.Unlock()
		m.notify(Notification{Kind: EventFinished, Phase: PhaseFinished, Message: resp.Feedback})
		m.logger.Infof("interview finished after question %d", order)
		return nil
	}

	// Replace the session wholesale with the server's view and re-arm the
	// countdown for the next question. Recording waits for a manual Start.
	next := *session
	if resp.PerguntaAtual != nil {
		next.PerguntaAtual = *resp.PerguntaAtual
	}
	next.TotalPerguntas = resp.TotalPerguntas
	next.PerguntasRestantes = resp.PerguntasRestantes
	m.session = &next
	m.remaining = next.PerguntaAtual.MaxDurationSeconds()
	remaining := m.remaining
	m.setPhaseLocked(PhaseIdle)
	m.mu.Unlock()

	m.notify(Notification{Kind: EventNextQuestion, Phase: PhaseIdle, Remaining: remaining})
	m.logger.Infof("next question received: ordem=%d remaining=%ds", next.PerguntaAtual.Ordem, remaining)
	return nil
}

// pump copies one track's fragments into the recorder until the track
// closes. A track closing with an error while we are still recording means
// the device failed mid-capture.
func (m *Machine) pump(ctx context.Context, track internal_type.Track, recorder internal_type.Recorder) {
	for packet := range track.Chunks() {
		if err := recorder.Record(ctx, packet); err != nil {
			m.logger.Warnf("failed to buffer %s chunk: %v", packet.Kind, err)
		}
		if m.analyser != nil {
			m.analyser.Feed(packet)
		}
	}
	// Done must precede the failure handler: releaseCapture waits on the
	// pump group and would otherwise wait on this goroutine.
	m.pumps.Done()
	if err := track.Err(); err != nil {
		m.deviceFailure(track.Device(), err)
	}
}

// runCountdown decrements the per-question timer every tick and triggers
// the automatic stop at zero. The capture context cancels it on any manual
// stop so no dangling tick fires after the state has moved on.
func (m *Machine) runCountdown(ctx context.Context) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.phase != PhaseRecording {
				m.mu.Unlock()
				return
			}
			if m.remaining > 0 {
				m.remaining--
			}
			remaining := m.remaining
			m.mu.Unlock()

			m.notify(Notification{Kind: EventTick, Phase: PhaseRecording, Remaining: remaining})
			if remaining == 0 {
				if err := m.Stop(m.ctx); err != nil && !errors.Is(err, ErrInvalidState) {
					m.logger.Errorf("automatic stop failed: %v", err)
				}
				return
			}
		}
	}
}

// deviceFailure handles a device disappearing mid-recording. The candidate
// reselects a device and Starts again; nothing is uploaded.
func (m *Machine) deviceFailure(device internal_type.Device, err error) {
	m.mu.Lock()
	if m.phase != PhaseRecording {
		m.mu.Unlock()
		return
	}
	m.setPhaseLocked(PhaseError)
	m.lastErr = err
	m.mu.Unlock()

	m.releaseCapture()
	m.notify(Notification{
		Kind:    EventDeviceError,
		Phase:   PhaseError,
		Device:  device,
		Message: err.Error(),
	})
	m.logger.Errorf("device failed mid-recording: %s: %v", device.Label, err)
}

// toError moves the machine to the Error phase after a failed start or
// finalize.
func (m *Machine) toError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.setPhaseLocked(PhaseError)
	m.mu.Unlock()
	m.notify(Notification{Kind: EventDeviceError, Phase: PhaseError, Message: err.Error()})
}

// releaseCapture cancels the countdown, stops every held track and waits
// for the chunk pumps to drain. This is the mandatory cleanup on every exit
// from Recording; Start treats it as a precondition.
func (m *Machine) releaseCapture() {
	m.mu.Lock()
	cancel := m.cancelCapture
	tracks := m.tracks
	m.cancelCapture = nil
	m.tracks = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, track := range tracks {
		if err := track.Stop(); err != nil {
			m.logger.Warnf("failed to stop %s track: %v", track.Device().Kind, err)
		}
	}
	m.pumps.Wait()
}

func (m *Machine) setPhaseLocked(phase Phase) {
	if m.phase == phase {
		return
	}
	m.phase = phase
	m.notify(Notification{Kind: EventPhaseChanged, Phase: phase, Remaining: m.remaining})
}

// notify never blocks the state machine: when the UI falls behind, events
// are dropped.
func (m *Machine) notify(n Notification) {
	select {
	case m.notifyCh <- n:
	default:
	}
}
