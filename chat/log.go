package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kmehta/voice-triage/model"
	"github.com/kmehta/voice-triage/reply"
)

// Log is the append-only message history of one conversation. Order is
// monotonic and immutable once assigned; messages are never reordered or
// deleted. A late append (a response arriving after the session that asked
// for it was torn down) still lands in whatever log exists at that point.
type Log struct {
	mu       sync.Mutex
	messages []model.Message
}

// NewLog returns an empty conversation log.
func NewLog() *Log {
	return &Log{messages: []model.Message{}}
}

// Append adds a message with the next order value and returns it.
func (l *Log) Append(role model.Role, text string, rec *reply.StructuredReply) model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := model.Message{
		ID:    uuid.New(),
		Role:  role,
		Text:  text,
		Order: len(l.messages),
		Reply: rec,
	}
	l.messages = append(l.messages, msg)
	return msg
}

// Messages returns a copy of the history in append order.
func (l *Log) Messages() []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
