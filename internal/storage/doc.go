// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts.
//
// Each conversation is one JSON file named by its ID. Writes go through a
// temp file and rename, so a crash never leaves a partial transcript.
//
// # Key Types
//
//   - TranscriptStore: saves, lists, loads and deletes transcripts
//   - Transcript: a conversation with its model and timestamps
//   - TranscriptMeta: lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.NewTranscriptStore()
//	session := chat.NewSession(client).WithRecorder(store)
//
//	metas, err := store.List()
//	t, err := store.Resolve("1")
//	conv := t.Conversation()
//
// # Storage Location
//
// Transcripts are stored in $XDG_DATA_HOME/orchat/transcripts/.
package storage
