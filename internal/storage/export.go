// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/orchat/internal/model"
)

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats transcript metadata as a plain-text table.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved conversations."
	}

	var sb strings.Builder
	sb.WriteString(formatPadded("#", 4) + " " + formatPadded("ID", 8) + " " +
		formatPadded("Updated", 16) + " " + formatPadded("Msgs", 5) + " Title\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for i, m := range metas {
		id := m.ID
		if len(id) > 8 {
			id = id[:8]
		}
		sb.WriteString(formatPadded(strconv.Itoa(i+1), 4) + " " +
			formatPadded(id, 8) + " " +
			formatPadded(m.UpdatedAt.Format("2006-01-02 15:04"), 16) + " " +
			formatPadded(strconv.Itoa(m.MessageCount), 5) + " " +
			truncateString(m.Title, 36) + "\n")
	}
	return sb.String()
}

// truncateString truncates s to maxWidth terminal cells, adding "..." if truncated.
func truncateString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// formatPadded pads s with spaces to width terminal cells.
func formatPadded(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the transcript as Markdown. Images are rendered as
// links; inline data URIs are abbreviated.
func (t *Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Title + "\n\n")
	sb.WriteString("Model: " + t.Model + "  \n")
	sb.WriteString("Created: " + t.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range t.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		for _, item := range msg.Content {
			switch v := item.(type) {
			case model.Text:
				sb.WriteString(v.Text + "\n\n")
			case model.ImageRef:
				sb.WriteString("![image](" + imageLink(v.URL) + ")\n\n")
			}
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

// ExportJSON exports the transcript as pretty-printed JSON.
func (t *Transcript) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

func imageLink(url string) string {
	if strings.HasPrefix(url, "data:") {
		if i := strings.Index(url, ","); i >= 0 {
			return url[:i+1] + "..."
		}
	}
	return url
}
