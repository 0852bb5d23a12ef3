// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"

	"github.com/jeranaias/orchat/internal/model"
)

// DefaultMaxTranscripts is how many transcripts are kept before the oldest are pruned.
const DefaultMaxTranscripts = 100

// =============================================================================
// STORED TRANSCRIPT TYPE
// =============================================================================

// Transcript is a persisted conversation.
type Transcript struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []model.Message `json:"messages"`
}

// TranscriptMeta contains metadata for listing transcripts.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// Conversation rebuilds the in-memory conversation.
func (t *Transcript) Conversation() *model.Conversation {
	return model.RestoreConversation(t.ID, t.CreatedAt, t.Messages)
}

// ModelDescriptor returns the model the transcript was last continued with.
func (t *Transcript) ModelDescriptor() model.ModelDescriptor {
	if t.Model == "" {
		return model.DefaultModel()
	}
	m, _ := model.LookupModel(t.Model)
	return m
}

// Preview returns the first user message, truncated.
func (t *Transcript) Preview() string {
	for _, msg := range t.Messages {
		if msg.Role == model.RoleUser && !msg.IsEmpty() {
			return msg.Preview(80)
		}
	}
	return ""
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore keeps one JSON file per conversation.
type TranscriptStore struct {
	// BaseDir is the directory for storing transcripts
	// Default: $XDG_DATA_HOME/orchat/transcripts
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited)
	MaxTranscripts int

	mu sync.Mutex
}

// DefaultDir returns the default transcript directory.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "orchat", "transcripts")
}

// NewTranscriptStore creates a store in DefaultDir.
func NewTranscriptStore() (*TranscriptStore, error) {
	return NewTranscriptStoreWithDir(DefaultDir())
}

// NewTranscriptStoreWithDir creates a store with a custom directory.
func NewTranscriptStoreWithDir(baseDir string) (*TranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &TranscriptStore{
		BaseDir:        baseDir,
		MaxTranscripts: DefaultMaxTranscripts,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a transcript and returns its ID.
func (s *TranscriptStore) Save(t *Transcript) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if !validID(t.ID) {
		return "", fmt.Errorf("invalid transcript id %q", t.ID)
	}
	if t.Title == "" {
		t.Title = t.Preview()
		if t.Title == "" {
			t.Title = "New Conversation"
		}
	}

	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// RELIABILITY: Atomic write prevents torn files on crash
	if err := writeFileAtomic(s.filePath(t.ID), data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// Record saves conv under its own ID. It satisfies chat.Recorder.
func (s *TranscriptStore) Record(conv *model.Conversation, m model.ModelDescriptor) error {
	_, err := s.Save(&Transcript{
		ID:        conv.ID(),
		Title:     conv.Title(),
		Model:     m.ID,
		CreatedAt: conv.CreatedAt(),
		Messages:  conv.Messages(),
	})
	return err
}

// enforceLimit removes the oldest transcripts when over the limit.
// Callers hold s.mu.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.list()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// list is newest first
	for _, meta := range metas[s.MaxTranscripts:] {
		os.Remove(s.filePath(meta.ID))
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a transcript by ID.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	if !validID(id) {
		return nil, ErrTranscriptNotFound
	}

	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("corrupt transcript %s: %w", id, err)
	}
	return &t, nil
}

// Resolve loads a transcript by full ID, unique ID prefix, or 1-based
// position in List order.
func (s *TranscriptStore) Resolve(ref string) (*Transcript, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrTranscriptNotFound
	}
	if validID(ref) {
		return s.Load(ref)
	}

	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(metas) {
			return nil, ErrTranscriptNotFound
		}
		return s.Load(metas[n-1].ID)
	}

	var match string
	for _, meta := range metas {
		if strings.HasPrefix(meta.ID, ref) {
			if match != "" {
				return nil, fmt.Errorf("%w: %q matches more than one transcript", ErrAmbiguousReference, ref)
			}
			match = meta.ID
		}
	}
	if match == "" {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(match)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved transcripts, most recent first.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *TranscriptStore) list() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := make([]TranscriptMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, TranscriptMeta{
			ID:           t.ID,
			Title:        t.Title,
			Model:        t.Model,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: len(t.Messages),
			Preview:      t.Preview(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a transcript by ID.
func (s *TranscriptStore) Delete(id string) error {
	if !validID(id) {
		return ErrTranscriptNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a transcript ID.
func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// validID reports whether id is a conversation UUID. Anything else could
// escape BaseDir.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTranscriptNotFound is returned when a transcript doesn't exist.
	ErrTranscriptNotFound = errors.New("transcript not found")

	// ErrAmbiguousReference is returned when an ID prefix matches several transcripts.
	ErrAmbiguousReference = errors.New("ambiguous transcript reference")
)
