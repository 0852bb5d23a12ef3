// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/chat"
	"github.com/jeranaias/orchat/internal/media"
)

const askLongDesc string = `Send one message and print the reply.

Images are attached before the text, in the order given. Each image is
encoded according to media.mode (inline data URI, ImageKit or S3).

Examples:
  orchat ask "Explain TCP slow start"
  orchat ask --model openai/gpt-4o --image chart.png "Summarize this chart"
  orchat ask --image a.jpg --image b.jpg "What changed between these?"`

type askCommander struct {
	app    *app
	model  string
	images []string
}

func newAskCmd(a *app) *cobra.Command {
	cmder := &askCommander{app: a}

	cmd := &cobra.Command{
		Use:   "ask [flags] <prompt>",
		Short: "Send a single message",
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model id (overrides openrouter.model)")
	cmd.Flags().StringArrayVarP(&cmder.images, "image", "i", nil, "Attach an image file (repeatable)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	session, err := c.app.newSession(sessionOptions{model: c.model})
	if err != nil {
		return err
	}

	var draft chat.Draft
	if len(c.images) > 0 {
		enc, err := c.app.encoder(ctx)
		if err != nil {
			return err
		}
		for _, path := range c.images {
			if err := attachFile(ctx, &draft, enc, path); err != nil {
				return err
			}
		}
	}
	draft.SetText(prompt)

	if draft.Empty() {
		return fmt.Errorf("nothing to send: give a prompt or --image")
	}

	reply, err := session.SendDraft(ctx, &draft)
	if err != nil {
		return err
	}

	newPrinter(cmd.OutOrStdout(), c.app.cfg.Chat.RenderMarkdown).reply(reply)
	return nil
}

// attachFile reads path and stages it on the draft.
func attachFile(ctx context.Context, d *chat.Draft, enc media.Encoder, path string) error {
	f, err := media.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := d.AttachImage(ctx, enc, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
