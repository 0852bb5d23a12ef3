// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/orchat/internal/model"
)

// ImagePlaceholder replaces each image when content is flattened to text.
const ImagePlaceholder = "[Image shown in the chat]"

// DefaultSystemPrompt is the instruction sent ahead of every history.
const DefaultSystemPrompt = "You are a helpful assistant that can also analyze images."

// =============================================================================
// CONTENT MODE
// =============================================================================

// ContentMode selects how message content is put on the wire.
type ContentMode string

const (
	// ContentStructured sends content as an ordered array of typed parts.
	ContentStructured ContentMode = "structured"

	// ContentFlattened sends content as a single string. Images become
	// ImagePlaceholder, so this mode is lossy and only suits text-only models.
	ContentFlattened ContentMode = "flattened"
)

// ParseContentMode parses a mode name. The empty string selects ContentStructured.
func ParseContentMode(s string) (ContentMode, error) {
	switch ContentMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ContentStructured:
		return ContentStructured, nil
	case ContentFlattened:
		return ContentFlattened, nil
	default:
		return "", fmt.Errorf("unknown content mode %q (want %q or %q)", s, ContentStructured, ContentFlattened)
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one entry of the request's messages array.
//
// Exactly one of Text and Parts is used: Parts when non-nil, Text otherwise.
type ChatMessage struct {
	Role  string
	Text  string
	Parts model.Contents
}

// MarshalJSON encodes content as a string or as a part array.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if m.Parts != nil {
		return json.Marshal(struct {
			Role    string         `json:"role"`
			Content model.Contents `json:"content"`
		}{m.Role, m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Text})
}

// ChatRequest is the body of a chat completion request.
// Streaming is never requested, so the stream field is omitted.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the subset of the completion response the client reads.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// apiErrorResponse is the error envelope returned with non-2xx statuses.
// The code is numeric on OpenRouter and a string on some upstreams.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// =============================================================================
// MAPPING
// =============================================================================

// buildRequest maps the history onto the wire schema: one leading system
// entry, then one entry per message in order.
func buildRequest(history []model.Message, m model.ModelDescriptor, mode ContentMode, systemPrompt string) ChatRequest {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: string(model.RoleSystem), Text: systemPrompt})

	for _, msg := range history {
		entry := ChatMessage{Role: string(msg.Role)}
		if mode == ContentFlattened {
			entry.Text = Flatten(msg.Content)
		} else {
			entry.Parts = make(model.Contents, len(msg.Content))
			copy(entry.Parts, msg.Content)
		}
		messages = append(messages, entry)
	}

	return ChatRequest{Model: m.ID, Messages: messages}
}

// Flatten joins text items with single spaces, substituting ImagePlaceholder
// for each image at its position, and trims trailing whitespace.
func Flatten(items []model.ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case model.Text:
			parts = append(parts, v.Text)
		case model.ImageRef:
			parts = append(parts, ImagePlaceholder)
		}
	}
	return strings.TrimRight(strings.Join(parts, " "), " \t\r\n")
}
