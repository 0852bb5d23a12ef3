// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// ModelDescriptor identifies which remote model variant a request targets.
type ModelDescriptor struct {
	// ID is the OpenRouter model identifier used in API calls
	ID string `json:"id" toml:"id"`

	// Name is the human-readable display name
	Name string `json:"name" toml:"name"`

	// Description is an optional short explanation
	Description string `json:"description,omitempty" toml:"description,omitempty"`
}

// Catalog is the static list of popular OpenRouter models.
// The first entry is the default.
var Catalog = []ModelDescriptor{
	{ID: "anthropic/claude-3-5-sonnet", Name: "Claude 3.5 Sonnet"},
	{ID: "openai/gpt-4o", Name: "GPT-4o"},
	{ID: "anthropic/claude-3-opus", Name: "Claude 3 Opus"},
	{ID: "anthropic/claude-3-sonnet", Name: "Claude 3 Sonnet"},
	{ID: "anthropic/claude-3-haiku", Name: "Claude 3 Haiku"},
	{ID: "google/gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
	{ID: "mistralai/mistral-large", Name: "Mistral Large"},
}

// DefaultModel returns the first catalog entry.
func DefaultModel() ModelDescriptor {
	return Catalog[0]
}

// LookupModel returns the catalog descriptor for id.
//
// Ids outside the catalog are still usable with OpenRouter, so they come back
// as an ad-hoc descriptor named after the id; the boolean reports whether the
// id was found in the catalog.
func LookupModel(id string) (ModelDescriptor, bool) {
	id = strings.TrimSpace(id)
	for _, m := range Catalog {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return ModelDescriptor{ID: id, Name: id}, false
}

// DisplayName returns Name, falling back to ID.
func (m ModelDescriptor) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
