// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes a chat session over a small JSON HTTP API.
//
// # Endpoints
//
//   - GET  /healthz          - liveness, selected model, pending flag
//   - GET  /api/models       - model catalog and the selected model
//   - PUT  /api/model        - select a model by id
//   - GET  /api/conversation - message history and pending flag
//   - POST /api/images       - encode a multipart "image" into a content item
//   - POST /api/messages     - send content items, receive the assistant reply
//   - PUT  /api/key          - store the API key (keyring credential source)
//
// Errors use one envelope: {"error": {"message": "...", "code": 409}}.
//
// # Usage
//
//	srv := server.NewServer(cfg.Server.Addr, session, encoder).
//		WithKeyStore(credential.NewKeyring()).
//		WithLogger(logger)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
package server
