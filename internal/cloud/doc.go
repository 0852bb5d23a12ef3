// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the OpenRouter chat completion client.
//
// The client maps a conversation history onto the OpenRouter request
// schema, performs exactly one POST per call and maps the first choice of
// the response back into an assistant message. There is no retry, no
// streaming and no history truncation: the full history is sent every time.
//
// # Key Types
//
//   - Client: the completion client, configured with With* methods
//   - ContentMode: structured (content part arrays) or flattened (plain text)
//   - RemoteError: a non-2xx answer from the API, carrying its message
//
// # Usage
//
//	client := cloud.NewClient(credential.NewKeyring()).
//	    WithLogger(logger)
//	reply, err := client.Complete(ctx, conv.Messages(), model.DefaultModel())
//
// # Security
//
// The API key is looked up per call and only ever placed in the
// Authorization header. Logs carry method, path, status and timing, never
// headers, bodies or the key itself.
package cloud
