package stream

import (
	"context"

	"github.com/kmehta/voice-triage/fault"
)

// wsDevice is the capture device as seen from the server: the browser's
// recorder on the far side of the websocket. The hello handshake fixes its
// properties once for the life of the connection; they are never re-checked.
type wsDevice struct {
	mimeType string // encoding the recorder produces, e.g. "audio/webm;codecs=opus"
	denied   bool   // the browser refused microphone access
	held     bool
}

func (d *wsDevice) Acquire(ctx context.Context) (string, error) {
	if d.denied {
		return "", fault.New(fault.KindPermissionDenied)
	}
	if d.mimeType == "" {
		return "", fault.New(fault.KindDeviceUnavailable)
	}
	d.held = true
	return d.mimeType, nil
}

func (d *wsDevice) Release() {
	d.held = false
}
