// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendReadBack(t *testing.T) {
	conv := NewConversation()
	msg := NewUserMessage(NewText("Hi"), NewImageRef("data:image/png;base64,AA=="))

	conv.Append(msg)

	got := conv.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

func TestConversation_PreservesOrder(t *testing.T) {
	conv := NewConversation()
	var want []string
	for _, text := range []string{"one", "two", "three", "four"} {
		msg := NewUserMessage(NewText(text))
		want = append(want, msg.ID)
		conv.Append(msg)
	}

	var got []string
	for _, msg := range conv.Messages() {
		got = append(got, msg.ID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 4, conv.Len())
}

func TestConversation_MessagesIsACopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage(NewText("stored")))

	out := conv.Messages()
	out[0].Content[0] = NewText("tampered")
	out[0] = NewUserMessage(NewText("replaced"))

	again := conv.Messages()
	assert.Equal(t, "stored", again[0].PlainText())
}

func TestConversation_AppendCopiesContent(t *testing.T) {
	conv := NewConversation()
	msg := NewUserMessage(NewText("stored"))
	conv.Append(msg)

	msg.Content[0] = NewText("tampered")

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, "stored", last.PlainText())
}

func TestConversation_Pending(t *testing.T) {
	conv := NewConversation()
	assert.False(t, conv.Pending())

	conv.SetPending(true)
	assert.True(t, conv.Pending())

	conv.SetPending(false)
	assert.False(t, conv.Pending())
}

func TestConversation_LastAndTitle(t *testing.T) {
	conv := NewConversation()
	_, ok := conv.Last()
	assert.False(t, ok)
	assert.Equal(t, "New Conversation", conv.Title())

	conv.Append(NewAssistantText("Hello! How may I assist you today?"))
	conv.Append(NewUserMessage(NewText("Tell me about Go")))

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "Tell me about Go", conv.Title())
}

func TestRestoreConversation(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{NewUserMessage(NewText("a")), NewAssistantText("b")}

	conv := RestoreConversation("conv-1", created, msgs)

	assert.Equal(t, "conv-1", conv.ID())
	assert.Equal(t, created, conv.CreatedAt())
	assert.Equal(t, msgs, conv.Messages())
	assert.False(t, conv.Pending())
}

// Run with: go test -race -run TestConversation_ConcurrentReaders
func TestConversation_ConcurrentReaders(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			conv.Append(NewUserMessage(NewText("x")))
		}()
		go func() {
			defer wg.Done()
			_ = conv.Messages()
			_ = conv.Pending()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, conv.Len())
}
