// Package stream runs one voice conversation per websocket connection: it
// reads capture events from the browser, drives the voice state machine, and
// pushes state changes and parsed messages back.
package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/kmehta/voice-triage/capture"
	"github.com/kmehta/voice-triage/chat"
	"github.com/kmehta/voice-triage/fault"
	"github.com/kmehta/voice-triage/model"
	"github.com/kmehta/voice-triage/stt"
	"github.com/kmehta/voice-triage/voice"
)

// clientEvent is the inbound envelope. The browser announces itself once
// with "hello", then sends "start", "media", "stop", "dismiss" and "text".
type clientEvent struct {
	Event string `json:"event"`
	Hello struct {
		CaptureSupported bool   `json:"captureSupported"`
		Permission       string `json:"permission"` // "granted" or "denied"
		MimeType         string `json:"mimeType"`
	} `json:"hello"`
	Media struct {
		Payload string `json:"payload"` // base64 audio chunk
	} `json:"media"`
	Text string `json:"text"`
}

// serverEvent is the outbound envelope: state changes, new messages, and
// classified errors.
type serverEvent struct {
	Event    string          `json:"event"`
	State    voice.State     `json:"state,omitempty"`
	Kind     fault.Kind      `json:"kind,omitempty"`
	Message  string          `json:"message,omitempty"`
	Messages []model.Message `json:"messages,omitempty"`
}

// Options carries the endpoints the session's clients talk to.
type Options struct {
	TranscribeURL string
	ChatURL       string
	MinClipBytes  int
}

// Session owns everything tied to one connection: the device view, the
// machine, and the conversation log. It is created on upgrade and torn down
// when the read loop exits, releasing the device on the way out.
type Session struct {
	ws         *websocket.Conn
	opts       Options
	device     *wsDevice
	machine    *voice.Machine
	dispatcher *chat.Dispatcher
}

// NewSession prepares a session for a freshly upgraded connection.
func NewSession(ws *websocket.Conn, opts Options) *Session {
	return &Session{ws: ws, opts: opts}
}

// Run is the read loop. It blocks until the connection closes and always
// leaves the device released.
func (s *Session) Run() {
	defer s.Cleanup()
	ctx := context.Background()

	for {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("stream: connection closed:", err)
			} else {
				log.Printf("stream: read error: %v", err)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Printf("stream: bad event: %v", err)
			continue
		}

		if s.machine == nil && ev.Event != "hello" {
			log.Printf("stream: %q before hello, dropped", ev.Event)
			continue
		}

		switch ev.Event {
		case "hello":
			s.handleHello(ev)

		case "start":
			if err := s.machine.StartListening(ctx); err != nil {
				s.sendFailure(err, fault.KindDeviceUnavailable)
			}
			s.sendState()

		case "media":
			chunk, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				log.Printf("stream: base64 decode error: %v", err)
				continue
			}
			s.machine.Push(chunk)

		case "stop":
			if s.machine.State() != voice.StateListening {
				continue
			}
			s.sendEvent(serverEvent{Event: "state", State: voice.StateTranscribing})
			if err := s.machine.StopAndSend(ctx); err != nil {
				s.sendFailure(err, fault.KindTranscriptionFailed)
			} else {
				s.sendMessages()
			}
			s.sendState()

		case "dismiss":
			s.machine.Dismiss()
			s.sendState()

		case "text":
			// The typed path stays open whatever the voice state is.
			if m := s.dispatcher.Dispatch(ctx, ev.Text); m != nil {
				s.sendMessages()
			}

		default:
			log.Printf("stream: unknown event: %s", ev.Event)
		}
	}
}

// handleHello performs the one-time capability negotiation and builds the
// machine. A second hello is ignored; capability is never re-evaluated.
func (s *Session) handleHello(ev clientEvent) {
	if s.machine != nil {
		log.Println("stream: duplicate hello, ignored")
		return
	}
	s.device = &wsDevice{
		mimeType: ev.Hello.MimeType,
		denied:   ev.Hello.Permission == "denied",
	}
	controller := capture.NewController(s.device, s.opts.MinClipBytes)

	transcriber, err := stt.NewClient(s.opts.TranscribeURL)
	if err != nil {
		log.Printf("stream: transcriber init failed: %v", err)
		s.ws.Close()
		return
	}
	sender, err := chat.NewClient(s.opts.ChatURL)
	if err != nil {
		log.Printf("stream: chat client init failed: %v", err)
		s.ws.Close()
		return
	}
	s.dispatcher = chat.NewDispatcher(chat.NewLog(), sender)
	s.machine = voice.NewMachine(controller, transcriber, s.dispatcher, ev.Hello.CaptureSupported)
	s.sendState()
}

// Cleanup aborts any live capture so the device is never left held, then
// closes the connection. In-flight transcription or dispatch requests are
// not cancelled; a late response is applied to whatever log still exists.
func (s *Session) Cleanup() {
	if s.machine != nil {
		s.machine.Abort()
	}
	if s.ws != nil {
		s.ws.Close()
	}
}

func (s *Session) sendState() {
	s.sendEvent(serverEvent{Event: "state", State: s.machine.State()})
}

func (s *Session) sendMessages() {
	s.sendEvent(serverEvent{Event: "messages", Messages: s.dispatcher.Log().Messages()})
}

func (s *Session) sendFailure(err error, fallback fault.Kind) {
	f := fault.AsFailure(err, fallback)
	s.sendEvent(serverEvent{Event: "error", Kind: f.Kind, Message: f.UserMessage()})
}

func (s *Session) sendEvent(ev serverEvent) {
	if err := s.ws.WriteJSON(ev); err != nil {
		log.Printf("stream: write error: %v", err)
	}
}
