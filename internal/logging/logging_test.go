// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", zap.String("model", "openai/gpt-4o"))
	logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level:\n%s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "openai/gpt-4o") {
		t.Errorf("info line missing:\n%s", out)
	}
	if !strings.Contains(out, "INFO") {
		t.Errorf("level not rendered:\n%s", out)
	}
}

func TestNewWithWriter_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, true)
	logger.Debug("visible")
	logger.Sync()

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug line missing:\n%s", buf.String())
	}
}

func TestNew(t *testing.T) {
	if New(false) == nil {
		t.Fatal("New returned nil")
	}
}
