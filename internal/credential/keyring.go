// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service the key is filed under.
const DefaultKeyringService = "orchat"

// ErrEmptyKey indicates an attempt to store a blank key.
var ErrEmptyKey = errors.New("API key is empty")

// Keyring stores the key in the operating system keyring.
type Keyring struct {
	Service string
	Key     string
}

// NewKeyring returns a keyring source using the default service and key name.
func NewKeyring() *Keyring {
	return &Keyring{Service: DefaultKeyringService, Key: DefaultKeyName}
}

func (k *Keyring) names() (string, string) {
	service, key := k.Service, k.Key
	if service == "" {
		service = DefaultKeyringService
	}
	if key == "" {
		key = DefaultKeyName
	}
	return service, key
}

// APIKey implements Source.
func (k *Keyring) APIKey(_ context.Context) (string, error) {
	service, name := k.names()
	secret, err := keyring.Get(service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key from keyring: %w", err)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", ErrNotFound
	}
	return secret, nil
}

// Save stores key, replacing any previous value.
func (k *Keyring) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	service, name := k.names()
	if err := keyring.Set(service, name, key); err != nil {
		return fmt.Errorf("failed to store key in keyring: %w", err)
	}
	return nil
}

// Delete removes the stored key. Deleting an absent key is not an error.
func (k *Keyring) Delete() error {
	service, name := k.names()
	if err := keyring.Delete(service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}
	return nil
}
