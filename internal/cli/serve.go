// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/server"
)

const serveLongDesc string = `Serve one conversation over a local JSON HTTP API.

The server listens on server.addr (127.0.0.1:8080 by default) until
interrupted. PUT /api/key is available when credentials.source is
"keyring".

Examples:
  orchat serve
  orchat serve --addr 127.0.0.1:9090 --model openai/gpt-4o`

type serveCommander struct {
	app   *app
	addr  string
	model string
}

func newServeCmd(a *app) *cobra.Command {
	cmder := &serveCommander{app: a}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model id (overrides openrouter.model)")

	return cmd
}

// build wires the server without starting it.
func (c *serveCommander) build(ctx context.Context) (*server.Server, error) {
	session, err := c.app.newSession(sessionOptions{model: c.model, greeting: true})
	if err != nil {
		return nil, err
	}
	enc, err := c.app.encoder(ctx)
	if err != nil {
		return nil, err
	}

	addr := c.addr
	if addr == "" {
		addr = c.app.cfg.Server.Addr
	}

	srv := server.NewServer(addr, session, enc).WithLogger(c.app.logger.Named("http"))
	if c.app.usesKeyring() {
		srv = srv.WithKeyStore(c.app.keyring())
	}
	return srv, nil
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	srv, err := c.build(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Listening on")+" http://"+srv.Addr())
	return srv.Start(ctx)
}
