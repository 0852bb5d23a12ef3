// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation.
//
// Messages are treated as immutable once created; identity is the ID.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   Contents  `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and the current time.
// The content items are copied so later changes to the caller's slice do not leak in.
func NewMessage(role Role, items ...ContentItem) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   cloneContents(items),
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(items ...ContentItem) Message {
	return NewMessage(RoleUser, items...)
}

// NewAssistantText creates an assistant message holding a single text item.
func NewAssistantText(text string) Message {
	return NewMessage(RoleAssistant, NewText(text))
}

// NewSystemText creates a system message holding a single text item.
func NewSystemText(text string) Message {
	return NewMessage(RoleSystem, NewText(text))
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// PlainText returns all text items joined by newlines.
func (m Message) PlainText() string {
	var parts []string
	for _, item := range m.Content {
		if t, ok := item.(Text); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Images returns the image references in content order.
func (m Message) Images() []ImageRef {
	var images []ImageRef
	for _, item := range m.Content {
		if img, ok := item.(ImageRef); ok {
			images = append(images, img)
		}
	}
	return images
}

// Preview returns a truncated, single-line preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.PlainText()), " ")
	if content == "" && len(m.Images()) > 0 {
		content = "[image]"
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content items.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Clone returns a copy of the message that shares nothing mutable with m.
func (m Message) Clone() Message {
	m.Content = cloneContents(m.Content)
	return m
}

func cloneContents(items []ContentItem) Contents {
	if items == nil {
		return nil
	}
	out := make(Contents, len(items))
	copy(out, items)
	return out
}
