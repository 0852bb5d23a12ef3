// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestCatalog_HaveRequiredFields(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Catalog {
		t.Run(m.ID, func(t *testing.T) {
			if m.ID == "" {
				t.Error("ModelDescriptor.ID should not be empty")
			}
			if m.Name == "" {
				t.Error("ModelDescriptor.Name should not be empty")
			}
			if !strings.Contains(m.ID, "/") {
				t.Errorf("ModelDescriptor.ID %q should be provider-qualified", m.ID)
			}
			if seen[m.ID] {
				t.Errorf("duplicate catalog id %q", m.ID)
			}
			seen[m.ID] = true
		})
	}
}

func TestDefaultModel(t *testing.T) {
	if got := DefaultModel().ID; got != "anthropic/claude-3-5-sonnet" {
		t.Errorf("DefaultModel().ID = %q, want anthropic/claude-3-5-sonnet", got)
	}
}

func TestLookupModel(t *testing.T) {
	m, ok := LookupModel("openai/gpt-4o")
	if !ok {
		t.Fatal("LookupModel(openai/gpt-4o) should be found")
	}
	if m.Name != "GPT-4o" {
		t.Errorf("Name = %q, want GPT-4o", m.Name)
	}

	// Case and whitespace insensitive
	if _, ok := LookupModel("  OpenAI/GPT-4o "); !ok {
		t.Error("LookupModel should ignore case and surrounding whitespace")
	}

	// Unknown ids become ad-hoc descriptors
	m, ok = LookupModel("meta-llama/llama-3-70b-instruct")
	if ok {
		t.Error("unknown id should not report found")
	}
	if m.ID != "meta-llama/llama-3-70b-instruct" || m.DisplayName() != m.ID {
		t.Errorf("ad-hoc descriptor = %+v", m)
	}
}

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{RoleSystem, true},
		{Role("tool"), false},
		{Role(""), false},
	}
	for _, tc := range tests {
		if got := tc.role.Valid(); got != tc.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q", RoleAssistant.DisplayName())
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_GeneratesIdentity(t *testing.T) {
	a := NewUserMessage(NewText("one"))
	b := NewUserMessage(NewText("one"))

	if a.ID == "" || b.ID == "" {
		t.Fatal("messages should get an ID")
	}
	if a.ID == b.ID {
		t.Error("message IDs should be unique")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestNewMessage_CopiesContent(t *testing.T) {
	items := []ContentItem{NewText("original")}
	msg := NewUserMessage(items...)

	items[0] = NewText("changed")

	if msg.PlainText() != "original" {
		t.Errorf("message content changed through caller slice: %q", msg.PlainText())
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		max  int
		want string
	}{
		{"short", NewUserMessage(NewText("hello")), 10, "hello"},
		{"truncated", NewUserMessage(NewText("hello world, how are you")), 10, "hello w..."},
		{"collapses whitespace", NewUserMessage(NewText("a\n\nb   c")), 20, "a b c"},
		{"image only", NewUserMessage(NewImageRef("data:image/png;base64,AA==")), 20, "[image]"},
		{"unicode", NewUserMessage(NewText("日本語のテキストです")), 5, "日本..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Preview(tc.max); got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.max, got, tc.want)
			}
		})
	}
}

func TestMessage_ImagesAndText(t *testing.T) {
	msg := NewUserMessage(
		NewImageRef("https://example.com/a.png"),
		NewText("caption"),
		NewImageRef("https://example.com/b.png"),
	)

	images := msg.Images()
	if len(images) != 2 {
		t.Fatalf("Images() len = %d, want 2", len(images))
	}
	if images[0].URL != "https://example.com/a.png" || images[1].URL != "https://example.com/b.png" {
		t.Errorf("Images() out of order: %+v", images)
	}
	if msg.PlainText() != "caption" {
		t.Errorf("PlainText() = %q", msg.PlainText())
	}
}
