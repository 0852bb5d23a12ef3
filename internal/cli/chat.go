// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/chat"
	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/media"
	"github.com/jeranaias/orchat/internal/model"
)

const chatLongDesc string = `Start an interactive chat.

Type a message and press Enter to send it. Images staged with /image are
sent ahead of the next message.

Commands:
  /image <path>   Stage an image for the next message
  /drop <n>       Remove staged image n
  /images         List staged images
  /model [id]     Show or switch the model
  /models         List catalog models
  /history        Print the conversation so far
  /help           Show this help
  /quit           Exit

Examples:
  orchat chat
  orchat chat --model google/gemini-1.5-pro
  orchat chat --resume 1`

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input per call.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader provides line editing and persistent history on a terminal.
type linerReader struct {
	state       *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	r := &linerReader{
		state:       state,
		historyFile: filepath.Join(config.ConfigDir(), "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		state.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.state.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.state.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			r.state.WriteHistory(f)
			f.Close()
		}
	}
	return r.state.Close()
}

// scanReader reads lines from a non-terminal input such as a pipe.
type scanReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scanReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// COMMAND
// =============================================================================

type chatCommander struct {
	app        *app
	model      string
	resume     string
	noGreeting bool
}

func newChatCmd(a *app) *cobra.Command {
	cmder := &chatCommander{app: a}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			var reader lineReader
			if isTerminalReader(in) {
				reader = newLinerReader()
			} else {
				reader = &scanReader{scanner: bufio.NewScanner(in), out: cmd.OutOrStdout()}
			}
			defer reader.Close()
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), reader)
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model id (overrides openrouter.model)")
	cmd.Flags().StringVarP(&cmder.resume, "resume", "r", "", "Continue a saved conversation (id, prefix or list number)")
	cmd.Flags().BoolVar(&cmder.noGreeting, "no-greeting", false, "Do not open with the welcome message")

	return cmd
}

// chatLoop holds the state of one interactive chat.
type chatLoop struct {
	app     *app
	session *chat.Session
	draft   chat.Draft
	encoder media.Encoder
	out     *printer
	w       io.Writer
}

func (c *chatCommander) run(ctx context.Context, w io.Writer, reader lineReader) error {
	opts := sessionOptions{model: c.model, greeting: !c.noGreeting}
	if c.resume != "" {
		store, err := c.app.openStore()
		if err != nil {
			return err
		}
		t, err := store.Resolve(c.resume)
		if err != nil {
			return err
		}
		opts.resume = t
		opts.greeting = false
	}

	session, err := c.app.newSession(opts)
	if err != nil {
		return err
	}

	loop := &chatLoop{
		app:     c.app,
		session: session,
		out:     newPrinter(w, c.app.cfg.Chat.RenderMarkdown),
		w:       w,
	}
	return loop.run(ctx, reader)
}

func (l *chatLoop) run(ctx context.Context, reader lineReader) error {
	l.printWelcome()

	for {
		line, err := reader.Prompt(l.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(l.w)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := l.handleCommand(ctx, line)
			if err != nil {
				fmt.Fprintln(l.w, ErrorStyle.Render("Error:")+" "+err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		l.send(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// prompt shows the number of staged images.
func (l *chatLoop) prompt() string {
	if n := len(l.draft.Images()); n > 0 {
		return fmt.Sprintf("[%d image(s)] > ", n)
	}
	return "> "
}

func (l *chatLoop) send(ctx context.Context, text string) {
	l.draft.SetText(text)
	fmt.Fprintln(l.w, DimStyle.Render("Thinking..."))

	reply, err := l.session.SendDraft(ctx, &l.draft)
	if err != nil {
		fmt.Fprintln(l.w, ErrorStyle.Render("Error:")+" "+userMessage(err))
		return
	}
	fmt.Fprintln(l.w)
	l.out.message(reply)
}

// userMessage turns a send failure into the text shown in the chat.
func userMessage(err error) string {
	var remote *cloud.RemoteError
	switch {
	case errors.Is(err, cloud.ErrMissingCredential):
		return err.Error() + " (run `orchat key set` or set " + credential.DefaultKeyName + ")"
	case errors.As(err, &remote):
		return remote.Message
	case errors.Is(err, cloud.ErrMalformedResponse):
		return cloud.FallbackErrorMessage
	default:
		return err.Error()
	}
}

func (l *chatLoop) printWelcome() {
	fmt.Fprintln(l.w, TitleStyle.Render("orchat")+" "+DimStyle.Render("v"+Version))
	fmt.Fprintln(l.w, RenderLabel("Model:")+l.session.Model().DisplayName())
	fmt.Fprintln(l.w, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(l.w, RenderSeparator())

	for _, m := range l.session.Conversation().Messages() {
		l.out.message(m)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand runs a slash command and reports whether the chat should end.
func (l *chatLoop) handleCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(l.w, chatLongDesc[strings.Index(chatLongDesc, "Commands:"):strings.Index(chatLongDesc, "Examples:")])

	case "/image":
		if arg == "" {
			return false, fmt.Errorf("usage: /image <path>")
		}
		if l.encoder == nil {
			enc, err := l.app.encoder(ctx)
			if err != nil {
				return false, err
			}
			l.encoder = enc
		}
		if err := attachFile(ctx, &l.draft, l.encoder, arg); err != nil {
			return false, err
		}
		fmt.Fprintln(l.w, SuccessStyle.Render("Attached")+" "+filepath.Base(arg))

	case "/drop":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("usage: /drop <n>")
		}
		if err := l.draft.RemoveImage(n - 1); err != nil {
			return false, err
		}
		fmt.Fprintf(l.w, "Removed image %d\n", n)

	case "/images":
		images := l.draft.Images()
		if len(images) == 0 {
			fmt.Fprintln(l.w, DimStyle.Render("No staged images."))
		}
		for i, img := range images {
			fmt.Fprintf(l.w, "%d. %s\n", i+1, abbreviateURL(img.URL))
		}

	case "/model":
		if arg == "" {
			fmt.Fprintln(l.w, RenderLabel("Model:")+l.session.Model().ID)
			break
		}
		m, known := l.session.SelectModel(arg)
		fmt.Fprintln(l.w, SuccessStyle.Render("Model set to")+" "+m.DisplayName())
		if !known {
			fmt.Fprintln(l.w, WarningStyle.Render("Note: "+m.ID+" is not in the built-in catalog"))
		}

	case "/models":
		printCatalog(l.w, model.Catalog, l.session.Model().ID)

	case "/history":
		for _, m := range l.session.Conversation().Messages() {
			l.out.message(m)
		}

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

// printCatalog lists models, marking the selected one.
func printCatalog(w io.Writer, models []model.ModelDescriptor, selected string) {
	for _, m := range models {
		marker := "  "
		if strings.EqualFold(m.ID, selected) {
			marker = SuccessStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, runewidth.FillRight(m.ID, 32), DimStyle.Render(m.DisplayName()))
	}
}
