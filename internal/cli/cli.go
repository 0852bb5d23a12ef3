// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const rootLongDesc string = `orchat is a chat client for OpenRouter.

Send text and images to any OpenRouter model, one-shot or interactively,
or expose a conversation over a local HTTP API.

Configuration is read from $XDG_CONFIG_HOME/orchat/config.toml and
ORCHAT_* environment variables.

Examples:
  orchat ask "What is the capital of France?"
  orchat ask --image cat.png "What breed is this?"
  orchat chat --model openai/gpt-4o
  orchat key set
  orchat serve --addr 127.0.0.1:9090`

// app carries what every command shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

// load reads the configuration and builds the logger.
func (a *app) load() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(a.debug)
	return nil
}

// path returns the config file the app reads and writes.
func (a *app) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}

// NewRootCmd builds the orchat command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "orchat",
		Short:         "Chat with OpenRouter models from the terminal",
		Long:          rootLongDesc,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lipgloss.SetColorProfile(GetColorProfile())
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/orchat/config.toml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newServeCmd(a),
		newModelsCmd(a),
		newKeyCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

// Execute runs the root command and prints any error in the error style.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		return 1
	}
	return 0
}
