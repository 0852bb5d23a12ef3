// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/orchat/internal/credential"
)

const keySetLongDesc string = `Store the OpenRouter API key in the system keyring.

The key is read without echo from the terminal, or from the first line of
stdin when it is piped.

Examples:
  orchat key set
  pass show openrouter | orchat key set`

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the OpenRouter API key",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Store the API key in the keyring",
			Long:  keySetLongDesc,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeySet(a, cmd)
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the API key from the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeyDelete(a, cmd)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the API key comes from and whether it is set",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeyStatus(a, cmd)
			},
		},
	)

	return cmd
}

// requireKeyring fails unless the configured source is the keyring.
func requireKeyring(a *app) error {
	if !a.usesKeyring() {
		return fmt.Errorf("credentials.source is %q; the key is managed outside orchat", a.cfg.Credentials.Source)
	}
	return nil
}

func runKeySet(a *app, cmd *cobra.Command) error {
	if err := requireKeyring(a); err != nil {
		return err
	}

	key, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "OpenRouter API key: ")
	if err != nil {
		return err
	}

	if err := a.keyring().Save(key); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !credential.LooksValid(key) {
		fmt.Fprintln(out, WarningStyle.Render("Warning: key does not start with "+credential.KeyPrefix))
	}
	fmt.Fprintln(out, SuccessStyle.Render("Stored")+" key "+credential.Fingerprint(strings.TrimSpace(key)))
	return nil
}

func runKeyDelete(a *app, cmd *cobra.Command) error {
	if err := requireKeyring(a); err != nil {
		return err
	}
	if err := a.keyring().Delete(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted")+" API key from keyring")
	return nil
}

func runKeyStatus(a *app, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, RenderLabel("Source:")+a.cfg.Credentials.Source)

	key, err := a.credentialSource().APIKey(cmd.Context())
	switch {
	case errors.Is(err, credential.ErrNotFound):
		fmt.Fprintln(out, RenderLabel("Key:")+WarningStyle.Render("not set"))
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintln(out, RenderLabel("Key:")+SuccessStyle.Render("set")+" "+credential.Fingerprint(key))
	if !credential.LooksValid(key) {
		fmt.Fprintln(out, WarningStyle.Render("Warning: key does not start with "+credential.KeyPrefix))
	}
	return nil
}

// readSecret reads one line without echo on a terminal, or the first line
// of in otherwise.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if fd, ok := terminalFd(in); ok {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
