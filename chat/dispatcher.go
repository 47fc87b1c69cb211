// Package chat holds the conversation log and the dispatcher that feeds it.
// Chat continuity is the invariant here: whatever the network does, every
// non-blank user message gets exactly one assistant message after it.
package chat

import (
	"context"
	"log"
	"strings"

	"github.com/kmehta/voice-triage/model"
	"github.com/kmehta/voice-triage/reply"
)

// fallbackReply is appended when the conversation endpoint fails in any way,
// instead of surfacing the error into the conversation.
const fallbackReply = "Sorry, I couldn't process that right now. Please try again in a moment."

// Sender obtains a raw assistant reply for a symptom description. Satisfied
// by *Client; tests substitute fakes.
type Sender interface {
	Send(ctx context.Context, symptoms string) (string, error)
}

// Dispatcher sends finalized text (typed or transcribed) to the conversation
// endpoint and appends the results to the log. The text arrives as an
// explicit argument; it is never read back out of transient UI state.
type Dispatcher struct {
	log    *Log
	sender Sender
}

// NewDispatcher wires a dispatcher to its log and conversation client.
func NewDispatcher(msgLog *Log, sender Sender) *Dispatcher {
	return &Dispatcher{log: msgLog, sender: sender}
}

// Log exposes the dispatcher's message log for rendering.
func (d *Dispatcher) Log() *Log {
	return d.log
}

// Dispatch trims text, drops it silently when blank, and otherwise appends
// the user message, requests a reply, and appends the assistant message —
// parsed into a structured record on success, the generic fallback on any
// failure. It returns the assistant message, or nil when the input was
// blank.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) *model.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	d.log.Append(model.RoleUser, text, nil)

	raw, err := d.sender.Send(ctx, text)
	if err != nil {
		log.Printf("chat: dispatch failed, appending fallback: %v", err)
		msg := d.log.Append(model.RoleAssistant, fallbackReply, nil)
		return &msg
	}

	rec := reply.Parse(raw)
	var recPtr *reply.StructuredReply
	if !rec.Empty() {
		recPtr = &rec
	}
	msg := d.log.Append(model.RoleAssistant, raw, recPtr)
	return &msg
}
