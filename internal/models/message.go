package models

import "time"

// Scope says where a message arrived from; command rules restrict
// themselves to one scope or allow both.
type Scope string

const (
	ScopeMessage Scope = "message"
	ScopeComment Scope = "comment"
)

// InboundMessage is the engine's view of one delivered platform item.
// The transport (polling, streaming, retry/backoff) lives outside the
// engine; by the time a message gets here it has been delivered.
type InboundMessage struct {
	Id           string    `json:"id"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	CreatedAt    time.Time `json:"created_at"`
	IsReply      bool      `json:"is_reply"`
	ParentAuthor string    `json:"parent_author,omitempty"`
}

// Scope derives the matching scope from the message shape.
func (m InboundMessage) Scope() Scope {
	if m.IsReply {
		return ScopeComment
	}
	return ScopeMessage
}
