// Package capture owns the recording device and the chunks it produces. At
// most one session is live per controller; the session moves strictly
// forward (recording, then finalized or aborted) and the device is released
// on every exit path.
package capture

import (
	"context"
	"log"

	"github.com/kmehta/voice-triage/fault"
)

// MinClipBytes is the smallest finalized blob worth transcribing. Anything
// shorter is almost always a misfire or silence, so it is rejected before a
// network call is wasted on it.
const MinClipBytes = 500

// Clip is one finalized recording: the joined chunks plus the encoding the
// recorder reported when it was acquired.
type Clip struct {
	Data     []byte
	MimeType string
}

type sessionState int

const (
	sessionRecording sessionState = iota
	sessionFinalized
	sessionAborted
)

// session is one record-to-blob cycle. It is created on Start and destroyed
// on Stop or Abort; it is never reopened.
type session struct {
	acc      *accumulator
	mimeType string
	state    sessionState
}

// Controller acquires and releases the device and accumulates chunks into
// one clip per session. It is not safe for concurrent use; the voice state
// machine serializes access to it.
type Controller struct {
	device   Device
	minBytes int
	sess     *session
}

// NewController wires a controller to its device. minBytes <= 0 selects the
// default minimum clip size.
func NewController(device Device, minBytes int) *Controller {
	if minBytes <= 0 {
		minBytes = MinClipBytes
	}
	return &Controller{device: device, minBytes: minBytes}
}

// Active reports whether a session is currently recording.
func (c *Controller) Active() bool {
	return c.sess != nil && c.sess.state == sessionRecording
}

// Start acquires the device and opens a new session. Calling Start while a
// session is live is a no-op; the duplicate request is dropped.
func (c *Controller) Start(ctx context.Context) error {
	if c.Active() {
		log.Println("capture: start ignored, session already active")
		return nil
	}
	if c.device == nil {
		return fault.New(fault.KindDeviceUnavailable)
	}
	mimeType, err := c.device.Acquire(ctx)
	if err != nil {
		return err
	}
	c.sess = &session{
		acc:      newAccumulator(),
		mimeType: mimeType,
		state:    sessionRecording,
	}
	return nil
}

// Push appends a recorded chunk to the live session. Chunks arriving with no
// session open are dropped.
func (c *Controller) Push(chunk []byte) {
	if !c.Active() {
		return
	}
	c.sess.acc.append(chunk)
}

// Stop finalizes the live session into a single clip and releases the
// device. A blob under the minimum size is rejected with NoAudioCaptured.
// Stop with no live session is a no-op and returns an empty clip.
func (c *Controller) Stop() (Clip, error) {
	if !c.Active() {
		return Clip{}, nil
	}
	sess := c.sess
	sess.state = sessionFinalized
	c.sess = nil
	c.device.Release()

	blob := sess.acc.drain()
	if len(blob) < c.minBytes {
		return Clip{}, fault.New(fault.KindNoAudioCaptured)
	}
	return Clip{Data: blob, MimeType: sess.mimeType}, nil
}

// Abort discards the live session, releasing the device and dropping any
// accumulated chunks. Safe to call at any time; used by external teardown so
// the device can never remain held.
func (c *Controller) Abort() {
	if !c.Active() {
		return
	}
	c.sess.state = sessionAborted
	c.sess.acc.drain()
	c.sess = nil
	c.device.Release()
}
