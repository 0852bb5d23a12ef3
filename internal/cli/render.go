// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/orchat/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	markdownRendererOnce.Do(func() {
		width := GetTerminalWidth() - 4
		if width > 100 {
			width = 100
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// printer writes messages to a command's output. Markdown is rendered only
// when enabled and the output is a terminal, so piped output stays plain.
type printer struct {
	out      io.Writer
	markdown bool
}

func newPrinter(out io.Writer, markdown bool) *printer {
	return &printer{out: out, markdown: markdown && isTerminalWriter(out)}
}

// reply prints only the body of an assistant message.
func (p *printer) reply(m model.Message) {
	text := m.PlainText()
	if p.markdown {
		fmt.Fprint(p.out, renderMarkdown(text))
		return
	}
	fmt.Fprintln(p.out, text)
}

// message prints a labelled message; images are listed after the text.
func (p *printer) message(m model.Message) {
	fmt.Fprintln(p.out, RenderRole(m.Role))
	for _, img := range m.Images() {
		fmt.Fprintln(p.out, DimStyle.Render("[image] "+abbreviateURL(img.URL)))
	}
	if m.Role == model.RoleAssistant {
		p.reply(m)
	} else if text := m.PlainText(); text != "" {
		fmt.Fprintln(p.out, text)
	}
	fmt.Fprintln(p.out)
}

// abbreviateURL shortens data URIs to their media type.
func abbreviateURL(url string) string {
	if strings.HasPrefix(url, "data:") {
		if i := strings.Index(url, ","); i > 0 {
			return url[:i] + ",..."
		}
	}
	return url
}
