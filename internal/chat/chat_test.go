// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/media"
	"github.com/jeranaias/orchat/internal/model"
)

// fakeCompleter answers with a fixed reply, optionally blocking until released.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	lastHist []model.Message
	lastMod  model.ModelDescriptor
	reply    string
	err      error
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, history []model.Message, m model.ModelDescriptor) (model.Message, error) {
	f.mu.Lock()
	f.calls++
	f.lastHist = history
	f.lastMod = m
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return model.Message{}, f.err
	}
	return model.NewAssistantText(f.reply), nil
}

type fakeRecorder struct {
	saved []string
	err   error
}

func (r *fakeRecorder) Record(conv *model.Conversation, m model.ModelDescriptor) error {
	r.saved = append(r.saved, conv.ID()+"@"+m.ID)
	return r.err
}

// =============================================================================
// DRAFT
// =============================================================================

func TestDraft_ContentOrder(t *testing.T) {
	var d Draft
	d.SetText("what are these?")
	d.AddImage(model.NewImageRef("u1"))
	d.AddImage(model.NewImageRef("u2"))

	items, err := d.Content()
	require.NoError(t, err)
	assert.Equal(t, model.Contents{
		model.NewImageRef("u1"),
		model.NewImageRef("u2"),
		model.NewText("what are these?"),
	}, items)
}

func TestDraft_BlankTextOmitted(t *testing.T) {
	var d Draft
	d.SetText("   ")
	d.AddImage(model.NewImageRef("u1"))

	items, err := d.Content()
	require.NoError(t, err)
	assert.Equal(t, model.Contents{model.NewImageRef("u1")}, items)
}

func TestDraft_Empty(t *testing.T) {
	var d Draft
	assert.True(t, d.Empty())
	_, err := d.Content()
	assert.ErrorIs(t, err, ErrEmptyDraft)

	d.SetText(" \n\t")
	assert.True(t, d.Empty())
}

func TestDraft_RemoveImage(t *testing.T) {
	var d Draft
	d.AddImage(model.NewImageRef("a"))
	d.AddImage(model.NewImageRef("b"))
	d.AddImage(model.NewImageRef("c"))

	require.NoError(t, d.RemoveImage(1))
	assert.Equal(t, []model.ImageRef{{URL: "a"}, {URL: "c"}}, d.Images())

	assert.ErrorIs(t, d.RemoveImage(2), ErrImageIndex)
	assert.ErrorIs(t, d.RemoveImage(-1), ErrImageIndex)
}

func TestDraft_AttachImage(t *testing.T) {
	var d Draft
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	ref, err := d.AttachImage(context.Background(), media.NewInlineEncoder(), media.File{MIMEType: "image/png", Data: png})
	require.NoError(t, err)
	assert.Contains(t, ref.URL, "data:image/png;base64,")
	assert.Len(t, d.Images(), 1)

	_, err = d.AttachImage(context.Background(), media.NewInlineEncoder(), media.File{MIMEType: "text/plain", Data: []byte("x")})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
	assert.Len(t, d.Images(), 1)
}

func TestDraft_Reset(t *testing.T) {
	var d Draft
	d.SetText("x")
	d.AddImage(model.NewImageRef("a"))
	d.Reset()
	assert.True(t, d.Empty())
	assert.Empty(t, d.Images())
}

// =============================================================================
// SESSION
// =============================================================================

func TestSession_Send(t *testing.T) {
	fc := &fakeCompleter{reply: "Hello!"}
	rec := &fakeRecorder{}
	s := NewSession(fc).WithRecorder(rec)

	reply, err := s.Send(context.Background(), model.Contents{model.NewText("Hi")})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.PlainText())

	msgs := s.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.ID, msgs[1].ID)
	assert.False(t, s.Pending())

	// The completer saw the full history, ending with the new user message
	require.Len(t, fc.lastHist, 1)
	assert.Equal(t, "Hi", fc.lastHist[0].PlainText())
	assert.Equal(t, model.DefaultModel(), fc.lastMod)

	assert.Equal(t, []string{s.Conversation().ID() + "@" + model.DefaultModel().ID}, rec.saved)
}

func TestSession_FullHistorySent(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	s := NewSession(fc).WithGreeting(DefaultGreeting)

	for i := 0; i < 3; i++ {
		_, err := s.Send(context.Background(), model.Contents{model.NewText("q")})
		require.NoError(t, err)
	}
	// greeting + 2 full turns + new user message
	assert.Len(t, fc.lastHist, 6)
	assert.Equal(t, DefaultGreeting, fc.lastHist[0].PlainText())
	assert.Equal(t, 7, s.Conversation().Len())
}

func TestSession_FailureKeepsUserMessage(t *testing.T) {
	boom := errors.New("remote exploded")
	fc := &fakeCompleter{err: boom}
	rec := &fakeRecorder{}
	s := NewSession(fc).WithRecorder(rec)

	_, err := s.Send(context.Background(), model.Contents{model.NewText("Hi")})
	assert.ErrorIs(t, err, boom)

	msgs := s.Conversation().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.False(t, s.Pending())
	assert.Empty(t, rec.saved)
}

func TestSession_RejectsWhilePending(t *testing.T) {
	fc := &fakeCompleter{reply: "slow", started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(fc)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), model.Contents{model.NewText("first")})
		done <- err
	}()

	<-fc.started
	assert.True(t, s.Pending())

	_, err := s.Send(context.Background(), model.Contents{model.NewText("second")})
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.Equal(t, 1, s.Conversation().Len(), "rejected send must not touch the store")

	close(fc.release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, s.Conversation().Len())
	assert.Equal(t, 1, fc.calls)
}

func TestSession_EmptySend(t *testing.T) {
	fc := &fakeCompleter{}
	s := NewSession(fc)
	_, err := s.Send(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDraft)
	assert.Zero(t, fc.calls)
}

func TestSession_SelectModel(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	s := NewSession(fc)

	m, known := s.SelectModel("openai/gpt-4o")
	assert.True(t, known)
	assert.Equal(t, "GPT-4o", m.Name)

	_, err := s.Send(context.Background(), model.Contents{model.NewText("x")})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", fc.lastMod.ID)

	m, known = s.SelectModel("some/new-model")
	assert.False(t, known)
	assert.Equal(t, "some/new-model", s.Model().ID)
	assert.Equal(t, "some/new-model", m.Name)
}

func TestSession_GreetingOnlyOnEmpty(t *testing.T) {
	conv := model.NewConversation()
	conv.Append(model.NewUserMessage(model.NewText("existing")))

	s := NewSession(&fakeCompleter{}).WithConversation(conv).WithGreeting(DefaultGreeting)
	assert.Equal(t, 1, s.Conversation().Len())
}

func TestSession_RecorderErrorDoesNotFailTurn(t *testing.T) {
	s := NewSession(&fakeCompleter{reply: "ok"}).WithRecorder(&fakeRecorder{err: errors.New("disk full")})
	_, err := s.Send(context.Background(), model.Contents{model.NewText("x")})
	assert.NoError(t, err)
}

func TestSession_SendDraft(t *testing.T) {
	s := NewSession(&fakeCompleter{reply: "ok"})

	var d Draft
	_, err := s.SendDraft(context.Background(), &d)
	assert.ErrorIs(t, err, ErrEmptyDraft)

	d.SetText("hello")
	d.AddImage(model.NewImageRef("u"))
	_, err = s.SendDraft(context.Background(), &d)
	require.NoError(t, err)
	assert.True(t, d.Empty())

	first := s.Conversation().Messages()[0]
	assert.Equal(t, model.Contents{model.NewImageRef("u"), model.NewText("hello")}, first.Content)
}

func TestSession_SendDraftClearedOnRemoteFailure(t *testing.T) {
	s := NewSession(&fakeCompleter{err: errors.New("nope")})
	var d Draft
	d.SetText("hello")

	_, err := s.SendDraft(context.Background(), &d)
	require.Error(t, err)
	assert.True(t, d.Empty())
}
