package capture

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmehta/voice-triage/fault"
)

// fakeDevice counts acquisitions and releases so tests can assert the
// device is never left held.
type fakeDevice struct {
	mimeType   string
	acquireErr error
	acquired   int
	released   int
}

func (d *fakeDevice) Acquire(ctx context.Context) (string, error) {
	if d.acquireErr != nil {
		return "", d.acquireErr
	}
	d.acquired++
	return d.mimeType, nil
}

func (d *fakeDevice) Release() {
	d.released++
}

func newTestController(t *testing.T) (*Controller, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{mimeType: "audio/webm;codecs=opus"}
	return NewController(dev, 0), dev
}

func TestStartStopReleasesDeviceOnce(t *testing.T) {
	c, dev := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0xAB}, 2000))

	clip, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, "audio/webm;codecs=opus", clip.MimeType)
	assert.Len(t, clip.Data, 2000)

	assert.Equal(t, 1, dev.acquired)
	assert.Equal(t, 1, dev.released)
}

func TestDuplicateStartIsNoOp(t *testing.T) {
	c, dev := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 1, dev.acquired)
	assert.True(t, c.Active())
}

func TestStopWithoutSessionIsNoOp(t *testing.T) {
	c, dev := newTestController(t)

	clip, err := c.Stop()
	assert.NoError(t, err)
	assert.Empty(t, clip.Data)
	assert.Zero(t, dev.released)
}

func TestUndersizedClipRejected(t *testing.T) {
	c, dev := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0x01}, 499))

	_, err := c.Stop()
	require.Error(t, err)
	assert.Equal(t, fault.KindNoAudioCaptured, fault.KindOf(err))

	// rejection still releases the device
	assert.Equal(t, 1, dev.released)
	assert.False(t, c.Active())
}

func TestExactMinimumSizeAccepted(t *testing.T) {
	c, _ := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0x01}, MinClipBytes))

	clip, err := c.Stop()
	require.NoError(t, err)
	assert.Len(t, clip.Data, MinClipBytes)
}

func TestAbortReleasesDeviceAndDiscardsChunks(t *testing.T) {
	c, dev := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0x01}, 2000))
	c.Abort()

	assert.Equal(t, 1, dev.released)
	assert.False(t, c.Active())

	// session never reopens after abort; a stop finds nothing
	clip, err := c.Stop()
	assert.NoError(t, err)
	assert.Empty(t, clip.Data)
	assert.Equal(t, 1, dev.released)
}

func TestAbortWithoutSessionIsNoOp(t *testing.T) {
	c, dev := newTestController(t)
	c.Abort()
	assert.Zero(t, dev.released)
}

func TestAcquireFailurePropagates(t *testing.T) {
	dev := &fakeDevice{acquireErr: fault.New(fault.KindPermissionDenied)}
	c := NewController(dev, 0)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.KindPermissionDenied, fault.KindOf(err))
	assert.False(t, c.Active())
}

func TestChunksJoinInArrivalOrder(t *testing.T) {
	c, _ := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0x01}, 300))
	c.Push(bytes.Repeat([]byte{0x02}, 300))

	clip, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), clip.Data[0])
	assert.Equal(t, byte(0x02), clip.Data[599])
	assert.Len(t, clip.Data, 600)
}

func TestPushWithoutSessionIsDropped(t *testing.T) {
	c, _ := newTestController(t)
	c.Push([]byte("orphan chunk"))

	require.NoError(t, c.Start(context.Background()))
	c.Push(bytes.Repeat([]byte{0x01}, 600))
	clip, err := c.Stop()
	require.NoError(t, err)
	assert.Len(t, clip.Data, 600)
}

func TestRepeatedSessionsEachAcquireOnce(t *testing.T) {
	c, dev := newTestController(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Start(context.Background()))
		c.Push(bytes.Repeat([]byte{0x01}, 600))
		_, err := c.Stop()
		require.NoError(t, err)
	}

	assert.Equal(t, 3, dev.acquired)
	assert.Equal(t, 3, dev.released)
}
