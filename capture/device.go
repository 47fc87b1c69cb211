package capture

import "context"

// Device abstracts the recording hardware (in practice, the browser's
// recorder on the far side of the websocket). Acquire must return the
// encoding the recorder actually produces; the controller never chooses one.
//
// Acquire errors should be classified as fault.KindPermissionDenied or
// fault.KindDeviceUnavailable by the implementation.
type Device interface {
	Acquire(ctx context.Context) (mimeType string, err error)
	Release()
}
