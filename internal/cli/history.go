// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/storage"
)

const historyRefHelp = `A conversation is referred to by its full id, a unique id prefix, or
its number in "orchat history list" (1 is the newest).`

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List, show and delete saved conversations",
		Long:    "Manage saved conversations.\n\n" + historyRefHelp,
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <ref>",
		Short: "Print a saved conversation",
		Long:  "Print a saved conversation as Markdown (or JSON with --json).\n\n" + historyRefHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			t, err := store.Resolve(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := t.ExportJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			md := t.ExportMarkdown()
			if a.cfg.Chat.RenderMarkdown && isTerminalWriter(cmd.OutOrStdout()) {
				md = renderMarkdown(md)
			}
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List saved conversations, newest first",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				metas, err := store.List()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(metas))
				if len(metas) == 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			},
		},
		show,
		&cobra.Command{
			Use:     "delete <ref>",
			Aliases: []string{"rm"},
			Short:   "Delete a saved conversation",
			Long:    "Delete a saved conversation.\n\n" + historyRefHelp,
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				t, err := store.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(t.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted")+" "+t.ID+" "+DimStyle.Render(t.Title))
				return nil
			},
		},
	)

	return cmd
}
