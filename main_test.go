package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmehta/voice-triage/fault"
	"github.com/kmehta/voice-triage/model"
	"github.com/kmehta/voice-triage/stream"
	"github.com/kmehta/voice-triage/voice"
)

// newTestApp builds the fiber app against fake provider endpoints. The
// stream options point at the app's own API routes only when it is actually
// listening (see startTestServer); handler-level tests never touch them.
func newTestApp(t *testing.T, deepgramURL, openaiURL string) *fiber.App {
	t.Helper()
	return newApp(
		testProvider(t, deepgramURL),
		testAssistant(t, openaiURL),
		stream.Options{
			TranscribeURL: "http://127.0.0.1:0/api/transcribe",
			ChatURL:       "http://127.0.0.1:0/api/chat",
		},
	)
}

// startTestServer runs the app on a loopback listener so websocket clients
// can dial it, with the voice pipeline's endpoints pointed back at the same
// server.
func startTestServer(t *testing.T, deepgramURL, openaiURL string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	app := newApp(
		testProvider(t, deepgramURL),
		testAssistant(t, openaiURL),
		stream.Options{
			TranscribeURL: fmt.Sprintf("http://%s/api/transcribe", addr),
			ChatURL:       fmt.Sprintf("http://%s/api/chat", addr),
		},
	)
	go func() {
		if err := app.Listener(ln); err != nil {
			t.Logf("server stopped: %v", err)
		}
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return addr
}

func dialStream(t *testing.T, addr string) *gws.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/stream", addr)
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, _, err := gws.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial %s: %v", url, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

type wsEvent struct {
	Event    string          `json:"event"`
	State    voice.State     `json:"state"`
	Kind     fault.Kind      `json:"kind"`
	Message  string          `json:"message"`
	Messages []model.Message `json:"messages"`
}

func send(t *testing.T, conn *gws.Conn, ev map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ev))
}

func recv(t *testing.T, conn *gws.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestVoicePipelineEndToEnd(t *testing.T) {
	dg, contentType := fakeDeepgram(t, "I have a headache")
	oa, lastUser := fakeOpenAI(t, sixSectionReply)
	addr := startTestServer(t, dg.URL, oa.URL)

	conn := dialStream(t, addr)

	send(t, conn, map[string]any{
		"event": "hello",
		"hello": map[string]any{
			"captureSupported": true,
			"permission":       "granted",
			"mimeType":         "audio/webm;codecs=opus",
		},
	})
	ev := recv(t, conn)
	assert.Equal(t, "state", ev.Event)
	assert.Equal(t, voice.StateIdle, ev.State)

	send(t, conn, map[string]any{"event": "start"})
	ev = recv(t, conn)
	assert.Equal(t, voice.StateListening, ev.State)

	blob := bytes.Repeat([]byte{0xAB}, 2000)
	send(t, conn, map[string]any{
		"event": "media",
		"media": map[string]any{"payload": base64.StdEncoding.EncodeToString(blob)},
	})

	send(t, conn, map[string]any{"event": "stop"})

	ev = recv(t, conn)
	assert.Equal(t, voice.StateTranscribing, ev.State)

	ev = recv(t, conn)
	require.Equal(t, "messages", ev.Event)
	require.Len(t, ev.Messages, 2)

	user := ev.Messages[0]
	assert.Equal(t, model.RoleUser, user.Role)
	assert.Equal(t, "I have a headache", user.Text)
	assert.Equal(t, 0, user.Order)

	assistant := ev.Messages[1]
	assert.Equal(t, model.RoleAssistant, assistant.Role)
	assert.Equal(t, 1, assistant.Order)
	require.NotNil(t, assistant.Reply)
	assert.Equal(t, "Moderate", assistant.Reply.Severity)
	assert.Equal(t, "None right now.", assistant.Reply.ImmediateNeed)
	assert.Len(t, assistant.Reply.SeeDoctorIf, 2)
	assert.Len(t, assistant.Reply.NextSteps, 2)
	assert.Len(t, assistant.Reply.PossibleConditions, 2)
	assert.Equal(t, "This is not medical advice.", assistant.Reply.Disclaimer)

	ev = recv(t, conn)
	assert.Equal(t, voice.StateIdle, ev.State)

	// codec parameter stripped before the provider saw the clip, and the
	// transcript travelled into the conversation request untouched
	assert.Equal(t, "audio/webm", *contentType)
	assert.Equal(t, "I have a headache", *lastUser)
}

func TestStreamTinyClipReportsNoAudio(t *testing.T) {
	dg, _ := fakeDeepgram(t, "should never be called")
	oa, _ := fakeOpenAI(t, sixSectionReply)
	addr := startTestServer(t, dg.URL, oa.URL)

	conn := dialStream(t, addr)
	send(t, conn, map[string]any{
		"event": "hello",
		"hello": map[string]any{"captureSupported": true, "permission": "granted", "mimeType": "audio/webm"},
	})
	recv(t, conn) // idle

	send(t, conn, map[string]any{"event": "start"})
	recv(t, conn) // listening

	send(t, conn, map[string]any{
		"event": "media",
		"media": map[string]any{"payload": base64.StdEncoding.EncodeToString([]byte("tiny"))},
	})
	send(t, conn, map[string]any{"event": "stop"})

	recv(t, conn) // transcribing
	ev := recv(t, conn)
	assert.Equal(t, "error", ev.Event)
	assert.Equal(t, fault.KindNoAudioCaptured, ev.Kind)
	assert.NotEmpty(t, ev.Message)

	ev = recv(t, conn)
	assert.Equal(t, voice.StateError, ev.State)

	// error is dismissible and the machine comes back
	send(t, conn, map[string]any{"event": "dismiss"})
	ev = recv(t, conn)
	assert.Equal(t, voice.StateIdle, ev.State)
}

func TestStreamUnsupportedCaptureKeepsTextPath(t *testing.T) {
	dg, _ := fakeDeepgram(t, "unused")
	oa, _ := fakeOpenAI(t, sixSectionReply)
	addr := startTestServer(t, dg.URL, oa.URL)

	conn := dialStream(t, addr)
	send(t, conn, map[string]any{
		"event": "hello",
		"hello": map[string]any{"captureSupported": false},
	})
	ev := recv(t, conn)
	assert.Equal(t, voice.StateUnsupported, ev.State)

	// voice start is rejected, permanently
	send(t, conn, map[string]any{"event": "start"})
	ev = recv(t, conn)
	assert.Equal(t, "error", ev.Event)
	ev = recv(t, conn)
	assert.Equal(t, voice.StateUnsupported, ev.State)

	// the typed path still works
	send(t, conn, map[string]any{"event": "text", "text": "I have a sore throat"})
	ev = recv(t, conn)
	require.Equal(t, "messages", ev.Event)
	require.Len(t, ev.Messages, 2)
	assert.Equal(t, "I have a sore throat", ev.Messages[0].Text)
	require.NotNil(t, ev.Messages[1].Reply)
	assert.Equal(t, "Moderate", ev.Messages[1].Reply.Severity)
}

func TestStreamBlankTextDispatchesNothing(t *testing.T) {
	dg, _ := fakeDeepgram(t, "unused")
	oa, lastUser := fakeOpenAI(t, sixSectionReply)
	addr := startTestServer(t, dg.URL, oa.URL)

	conn := dialStream(t, addr)
	send(t, conn, map[string]any{
		"event": "hello",
		"hello": map[string]any{"captureSupported": true, "permission": "granted", "mimeType": "audio/webm"},
	})
	recv(t, conn) // idle

	send(t, conn, map[string]any{"event": "text", "text": "   "})

	// no messages event arrives; the next exchange proves the session is
	// still healthy and nothing reached the assistant
	send(t, conn, map[string]any{"event": "text", "text": "real symptoms"})
	ev := recv(t, conn)
	require.Equal(t, "messages", ev.Event)
	require.Len(t, ev.Messages, 2)
	assert.Equal(t, "real symptoms", ev.Messages[0].Text)
	assert.Equal(t, "real symptoms", *lastUser)
}

func TestStreamPermissionDenied(t *testing.T) {
	dg, _ := fakeDeepgram(t, "unused")
	oa, _ := fakeOpenAI(t, sixSectionReply)
	addr := startTestServer(t, dg.URL, oa.URL)

	conn := dialStream(t, addr)
	send(t, conn, map[string]any{
		"event": "hello",
		"hello": map[string]any{"captureSupported": true, "permission": "denied", "mimeType": "audio/webm"},
	})
	recv(t, conn) // idle

	send(t, conn, map[string]any{"event": "start"})
	ev := recv(t, conn)
	assert.Equal(t, "error", ev.Event)
	assert.Equal(t, fault.KindPermissionDenied, ev.Kind)

	ev = recv(t, conn)
	assert.Equal(t, voice.StateError, ev.State)
}
