// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for orchat.
//
// Configuration is TOML with built-in defaults, environment variable
// overrides and validation. Each deployment variant (content mode, media
// mode, credential source) is chosen here, once per process.
//
// # Key Types
//
//   - Config: main configuration structure
//   - OpenRouterConfig: endpoint, model, content mode and request headers
//   - CredentialsConfig: where the API key is read from
//   - MediaConfig: inline data URIs or hosted uploads (ImageKit, S3)
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ORCHAT_*)
//   - $XDG_CONFIG_HOME/orchat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	mode := cfg.OpenRouter.ContentMode
package config
