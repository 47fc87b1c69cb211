package model

import (
	"github.com/google/uuid"

	"github.com/kmehta/voice-triage/reply"
)

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Messages are append-only: Order is
// assigned when the message enters the log and never changes afterwards.
type Message struct {
	ID    uuid.UUID              `json:"id"`
	Role  Role                   `json:"role"`
	Text  string                 `json:"text"`
	Order int                    `json:"order"`
	Reply *reply.StructuredReply `json:"reply,omitempty"`
}
