// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/orchat/internal/model"
)

// DefaultGreeting is the assistant message a new conversation can open with.
const DefaultGreeting = "Hello! I'm your AI assistant powered by OpenRouter. " +
	"I can help answer questions and analyze images. How may I assist you today?"

// Completer produces the assistant reply for a full history.
type Completer interface {
	Complete(ctx context.Context, history []model.Message, m model.ModelDescriptor) (model.Message, error)
}

// Recorder persists a conversation after each completed turn.
type Recorder interface {
	Record(conv *model.Conversation, m model.ModelDescriptor) error
}

// Session owns one conversation and allows at most one request in flight.
//
// Session is safe for concurrent use; overlapping sends fail fast with
// ErrRequestPending instead of queueing.
type Session struct {
	mu        sync.Mutex
	conv      *model.Conversation
	completer Completer
	model     model.ModelDescriptor
	recorder  Recorder
	logger    *zap.Logger
}

// NewSession creates a session with a fresh conversation and the default model.
func NewSession(completer Completer) *Session {
	return &Session{
		conv:      model.NewConversation(),
		completer: completer,
		model:     model.DefaultModel(),
		logger:    zap.NewNop(),
	}
}

// WithConversation continues an existing conversation.
func (s *Session) WithConversation(conv *model.Conversation) *Session {
	if conv != nil {
		s.conv = conv
	}
	return s
}

// WithModel sets the initial model.
func (s *Session) WithModel(m model.ModelDescriptor) *Session {
	if m.ID != "" {
		s.model = m
	}
	return s
}

// WithGreeting opens an empty conversation with an assistant greeting.
// The greeting is part of the history sent to the model.
func (s *Session) WithGreeting(text string) *Session {
	if text != "" && s.conv.Len() == 0 {
		s.conv.Append(model.NewAssistantText(text))
	}
	return s
}

// WithRecorder sets where completed turns are persisted.
func (s *Session) WithRecorder(r Recorder) *Session {
	s.recorder = r
	return s
}

// WithLogger sets the logger.
func (s *Session) WithLogger(logger *zap.Logger) *Session {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Conversation returns the underlying conversation.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// Model returns the selected model.
func (s *Session) Model() model.ModelDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SelectModel switches the model used by later sends. The returned flag is
// false for ids outside the catalog, which are still accepted.
func (s *Session) SelectModel(id string) (model.ModelDescriptor, bool) {
	m, known := model.LookupModel(id)
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return m, known
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	return s.conv.Pending()
}

// Send appends a user message with items, requests a reply for the full
// history and appends it.
//
// On failure the user message stays in the conversation, the pending flag
// is cleared and the error is returned unchanged.
func (s *Session) Send(ctx context.Context, items model.Contents) (model.Message, error) {
	if len(items) == 0 {
		return model.Message{}, ErrEmptyDraft
	}

	s.mu.Lock()
	if s.conv.Pending() {
		s.mu.Unlock()
		return model.Message{}, ErrRequestPending
	}
	s.conv.Append(model.NewUserMessage(items...))
	s.conv.SetPending(true)
	m := s.model
	history := s.conv.Messages()
	s.mu.Unlock()

	start := time.Now()
	reply, err := s.completer.Complete(ctx, history, m)

	s.mu.Lock()
	if err == nil {
		s.conv.Append(reply)
	}
	s.conv.SetPending(false)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("conversation", s.conv.ID()),
			zap.String("model", m.ID),
			zap.Error(err),
		)
		return model.Message{}, err
	}

	s.logger.Debug("turn completed",
		zap.String("conversation", s.conv.ID()),
		zap.String("model", m.ID),
		zap.Int("messages", s.conv.Len()),
		zap.Duration("duration", time.Since(start)),
	)

	if s.recorder != nil {
		if err := s.recorder.Record(s.conv, m); err != nil {
			s.logger.Warn("failed to save transcript", zap.String("conversation", s.conv.ID()), zap.Error(err))
		}
	}
	return reply, nil
}

// SendDraft sends the draft's content. The draft is cleared once its
// message has entered the conversation, even if the reply then fails.
func (s *Session) SendDraft(ctx context.Context, d *Draft) (model.Message, error) {
	items, err := d.Content()
	if err != nil {
		return model.Message{}, err
	}
	reply, err := s.Send(ctx, items)
	if !errors.Is(err, ErrRequestPending) {
		d.Reset()
	}
	return reply, err
}
