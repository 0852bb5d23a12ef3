// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the completion
// client, the media encoder and every caller.
//
// # Key Types
//
//   - ContentItem: closed union of message content (Text, ImageRef)
//   - Message: immutable message envelope with role, content and timestamp
//   - ModelDescriptor: identifies the remote model variant a request targets
//   - Conversation: ordered, append-only message history plus a pending flag
//
// # Usage
//
// Build a conversation:
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage(model.NewText("Hi")))
//	for _, msg := range conv.Messages() {
//	    fmt.Println(msg.Role, msg.PlainText())
//	}
package model
