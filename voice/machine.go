// Package voice holds the state machine that gates the whole capture and
// transcription pipeline. The machine is the single source of truth for the
// lifecycle and the sole arbiter of session exclusivity: at most one
// recording session exists at a time, and every exit path releases the
// device.
package voice

import (
	"context"
	"log"
	"sync"

	"github.com/kmehta/voice-triage/capture"
	"github.com/kmehta/voice-triage/fault"
	"github.com/kmehta/voice-triage/model"
)

// State is the machine's current position in the capture lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateListening    State = "listening"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
	// StateUnsupported is entered once, permanently, when the capture
	// capability is absent at initialization. Only the text path remains.
	StateUnsupported State = "unsupported"
)

// Transcriber converts a finalized clip to text. Satisfied by *stt.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, clip capture.Clip) (string, error)
}

// Dispatcher receives the finalized transcript as an explicit argument.
// Satisfied by *chat.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) *model.Message
}

// Machine drives one user's voice session. Methods are safe for concurrent
// use; network calls are made outside the lock, so State remains observable
// while a transcription or dispatch request is in flight.
type Machine struct {
	mu          sync.Mutex
	state       State
	failure     *fault.Failure
	controller  *capture.Controller
	transcriber Transcriber
	dispatcher  Dispatcher
}

// NewMachine builds the machine. captureSupported is the one-time capability
// negotiation result; when false the machine parks in StateUnsupported and
// never re-evaluates.
func NewMachine(controller *capture.Controller, transcriber Transcriber, dispatcher Dispatcher, captureSupported bool) *Machine {
	state := StateIdle
	if !captureSupported {
		state = StateUnsupported
	}
	return &Machine{
		state:       state,
		controller:  controller,
		transcriber: transcriber,
		dispatcher:  dispatcher,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastFailure returns the failure that moved the machine into StateError,
// or nil.
func (m *Machine) LastFailure() *fault.Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// StartListening acquires the device and begins a capture session. A start
// arriving while already Listening or Transcribing is dropped silently; the
// controller's own duplicate-start guard is the second line of defense.
func (m *Machine) StartListening(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateUnsupported:
		m.mu.Unlock()
		return fault.New(fault.KindDeviceUnavailable)
	case StateListening, StateTranscribing:
		m.mu.Unlock()
		log.Println("voice: start dropped, capture already in progress")
		return nil
	}

	if err := m.controller.Start(ctx); err != nil {
		m.failure = fault.AsFailure(err, fault.KindDeviceUnavailable)
		m.state = StateError
		m.mu.Unlock()
		return err
	}
	m.failure = nil
	m.state = StateListening
	m.mu.Unlock()
	return nil
}

// Push forwards a recorded chunk to the controller while Listening. Chunks
// arriving in any other state are dropped.
func (m *Machine) Push(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateListening {
		return
	}
	m.controller.Push(chunk)
}

// StopAndSend finalizes the capture, transcribes it, and hands the
// transcript straight to the dispatcher. The transcript travels as a
// function argument from transcription completion into dispatch; nothing is
// read back out of settled state. Returns the machine to Idle on success.
func (m *Machine) StopAndSend(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateListening {
		m.mu.Unlock()
		return nil
	}

	clip, err := m.controller.Stop()
	if err != nil {
		m.failure = fault.AsFailure(err, fault.KindNoAudioCaptured)
		m.state = StateError
		m.mu.Unlock()
		return err
	}
	m.state = StateTranscribing
	m.mu.Unlock()

	transcript, err := m.transcriber.Transcribe(ctx, clip)
	if err != nil {
		m.mu.Lock()
		m.failure = fault.AsFailure(err, fault.KindTranscriptionFailed)
		m.state = StateError
		m.mu.Unlock()
		return err
	}

	m.dispatcher.Dispatch(ctx, transcript)

	m.mu.Lock()
	m.failure = nil
	m.state = StateIdle
	m.mu.Unlock()
	return nil
}

// Dismiss acknowledges an error and returns the machine to Idle. A no-op in
// every other state.
func (m *Machine) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateError {
		return
	}
	m.failure = nil
	m.state = StateIdle
}

// Abort is the teardown path: any live capture session is discarded so the
// device is never left held. The machine parks in Idle unless capture was
// never supported.
func (m *Machine) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller.Abort()
	if m.state == StateUnsupported {
		return
	}
	m.failure = nil
	m.state = StateIdle
}
