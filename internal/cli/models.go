// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/orchat/internal/model"
)

type modelsCommander struct {
	app    *app
	remote bool
}

func newModelsCmd(a *app) *cobra.Command {
	cmder := &modelsCommander{app: a}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Long: `List the built-in model catalog. The selected model is marked with *.

With --remote, the full list is fetched from OpenRouter's /models endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.remote, "remote", false, "Fetch the model list from OpenRouter")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, cmd *cobra.Command) error {
	models := model.Catalog
	if c.remote {
		client, err := c.app.client()
		if err != nil {
			return err
		}
		models, err = client.ListModels(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d models available from %s\n\n", len(models), client.ModelsEndpoint())
	}

	printCatalog(cmd.OutOrStdout(), models, c.app.cfg.OpenRouter.Model)
	return nil
}
