// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered message history of one chat plus the
// "awaiting response" flag.
//
// It is append-only: messages are never removed, replaced or reordered, so
// the stored order is always the chronological order. The mutex only keeps
// concurrent readers safe; allowing a single request in flight is up to the
// caller.
type Conversation struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	messages  []Message
	pending   bool
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		messages:  make([]Message, 0),
	}
}

// RestoreConversation rebuilds a conversation from persisted messages.
func RestoreConversation(id string, createdAt time.Time, messages []Message) *Conversation {
	conv := &Conversation{
		id:        id,
		createdAt: createdAt,
		messages:  make([]Message, 0, len(messages)),
	}
	for _, msg := range messages {
		conv.messages = append(conv.messages, msg.Clone())
	}
	return conv
}

// ID returns the conversation ID.
func (c *Conversation) ID() string {
	return c.id
}

// CreatedAt returns when the conversation was started.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg.Clone())
}

// Messages returns a copy of the history in chronological order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message, or false if the history is empty.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// Title returns a preview of the first user message.
func (c *Conversation) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			return msg.Preview(50)
		}
	}
	return "New Conversation"
}

// =============================================================================
// PENDING FLAG
// =============================================================================

// SetPending sets the "awaiting response" flag.
func (c *Conversation) SetPending(pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = pending
}

// Pending reports whether a completion request is in flight.
func (c *Conversation) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}
