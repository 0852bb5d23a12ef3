// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential supplies the OpenRouter API key to the completion client.
//
// The key is never held in package state. A Source is injected where it is
// needed and consulted once per request, so a key saved mid-session is
// picked up by the next turn.
//
// # Sources
//
//   - Static: a single key shared by every user of the process
//   - Env: read from an environment variable (OPENROUTER_API_KEY by default)
//   - Keyring: the per-user key stored in the operating system keyring
package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultKeyName is the name the API key is stored and looked up under.
const DefaultKeyName = "OPENROUTER_API_KEY"

// KeyPrefix is the prefix carried by OpenRouter API keys.
const KeyPrefix = "sk-or-"

// ErrNotFound indicates the source holds no key.
var ErrNotFound = errors.New("API key not found")

// Source looks up the API key.
type Source interface {
	// APIKey returns the current key. An absent or blank key is ErrNotFound.
	APIKey(ctx context.Context) (string, error)
}

// =============================================================================
// STATIC
// =============================================================================

// Static is a fixed key, typically from the config file.
type Static string

// APIKey implements Source.
func (s Static) APIKey(_ context.Context) (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env reads the key from an environment variable.
type Env struct {
	// Name of the variable; DefaultKeyName when empty
	Name string
}

// APIKey implements Source.
func (e Env) APIKey(_ context.Context) (string, error) {
	name := e.Name
	if name == "" {
		name = DefaultKeyName
	}
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", fmt.Errorf("%w: $%s is not set", ErrNotFound, name)
	}
	return key, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Fingerprint returns a short SHA-256 fingerprint of key for logs and status
// output. The key itself must never be printed.
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// LooksValid reports whether key has the OpenRouter key shape. It is a hint
// for user-facing warnings only; the remote API is the authority.
func LooksValid(key string) bool {
	key = strings.TrimSpace(key)
	return strings.HasPrefix(key, KeyPrefix) && len(key) > len(KeyPrefix)
}
