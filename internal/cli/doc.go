// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the orchat command tree.
//
// Every command shares one configuration and logger, loaded by the root
// command before it runs. Components (completion client, image encoder,
// transcript store, chat session) are built from that configuration.
//
// # Commands
//
//	orchat ask [--model] [--image path]... <prompt>
//	orchat chat [--model] [--resume ref] [--no-greeting]
//	orchat serve [--addr] [--model]
//	orchat models [--remote]
//	orchat key set|delete|status
//	orchat history list|show <ref>|delete <ref>
//	orchat config path|show|get <key>|set <key> <value>
//
// # Usage
//
//	os.Exit(cli.Execute(context.Background()))
package cli
