// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (secrets redacted)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprint(cmd.OutOrStdout(), a.cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting, e.g. openrouter.model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if config.IsSecretKey(args[0]) {
					return fmt.Errorf("%s is a secret and is not printed", args[0])
				}
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting in the config file",
			Long: "Change one setting in the config file.\n\nKeys:\n  " +
				strings.Join(config.GetAllKeys(), "\n  "),
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(a, cmd, args[0], args[1])
			},
		},
	)

	return cmd
}

// runConfigSet edits the file as written, so environment overrides never
// leak into it.
func runConfigSet(a *app, cmd *cobra.Command, key, value string) error {
	path := a.path()

	cfg := config.Default()
	if configExists(path) {
		var err error
		if cfg, err = config.ReadFile(path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return err
	}

	shown := value
	if config.IsSecretKey(key) {
		shown = "(redacted)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Set")+" "+key+" = "+shown)
	return nil
}

// configExists reports whether the config file is present.
func configExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
