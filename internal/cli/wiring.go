// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/orchat/internal/chat"
	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/media"
	"github.com/jeranaias/orchat/internal/model"
	"github.com/jeranaias/orchat/internal/storage"
)

// =============================================================================
// COMPONENT WIRING
// =============================================================================

// credentialSource returns where the API key is read from.
func (a *app) credentialSource() credential.Source {
	creds := a.cfg.Credentials
	switch creds.Source {
	case config.CredentialSourceEnv:
		return credential.Env{Name: creds.EnvVar}
	case config.CredentialSourceStatic:
		return credential.Static(creds.APIKey)
	default:
		return a.keyring()
	}
}

// keyring returns the keyring entry named by the config.
func (a *app) keyring() *credential.Keyring {
	return &credential.Keyring{
		Service: a.cfg.Credentials.KeyringService,
		Key:     credential.DefaultKeyName,
	}
}

// usesKeyring reports whether the API key lives in the system keyring.
func (a *app) usesKeyring() bool {
	return a.cfg.Credentials.Source == config.CredentialSourceKeyring
}

// client builds the completion client from the [openrouter] section.
func (a *app) client() (*cloud.Client, error) {
	or := a.cfg.OpenRouter
	mode, err := cloud.ParseContentMode(or.ContentMode)
	if err != nil {
		return nil, err
	}
	return cloud.NewClient(a.credentialSource()).
		WithEndpoint(or.Endpoint).
		WithContentMode(mode).
		WithSystemPrompt(or.SystemPrompt).
		WithReferer(or.Referer).
		WithTitle(or.Title).
		WithLogger(a.logger.Named("cloud")), nil
}

// encoder builds the image encoder selected by media.mode.
func (a *app) encoder(ctx context.Context) (media.Encoder, error) {
	m := a.cfg.Media
	switch m.Mode {
	case config.MediaModeImageKit:
		uploader := media.NewImageKitUploader(m.ImageKit.PrivateKey)
		if m.ImageKit.Endpoint != "" {
			uploader = uploader.WithEndpoint(m.ImageKit.Endpoint)
		}
		return media.NewHostedEncoder(uploader).WithLogger(a.logger.Named("media")), nil
	case config.MediaModeS3:
		uploader, err := media.NewS3UploaderFromEnv(ctx, media.S3Options{
			Bucket:        m.S3.Bucket,
			Region:        m.S3.Region,
			Prefix:        m.S3.Prefix,
			PublicBaseURL: m.S3.PublicBaseURL,
			Endpoint:      m.S3.Endpoint,
			PathStyle:     m.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return media.NewHostedEncoder(uploader).WithLogger(a.logger.Named("media")), nil
	default:
		return media.NewInlineEncoder(), nil
	}
}

// store opens the transcript store, or returns nil when storage is disabled.
func (a *app) store() (*storage.TranscriptStore, error) {
	if !a.cfg.Storage.Enabled {
		return nil, nil
	}
	return a.openStore()
}

// openStore opens the transcript store regardless of storage.enabled.
func (a *app) openStore() (*storage.TranscriptStore, error) {
	var (
		store *storage.TranscriptStore
		err   error
	)
	if a.cfg.Storage.Dir != "" {
		store, err = storage.NewTranscriptStoreWithDir(a.cfg.Storage.Dir)
	} else {
		store, err = storage.NewTranscriptStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}
	store.MaxTranscripts = a.cfg.Storage.MaxTranscripts
	return store, nil
}

// sessionOptions tune newSession for a command.
type sessionOptions struct {
	// model overrides openrouter.model when set
	model string
	// greeting adds the configured welcome message to a new conversation
	greeting bool
	// resume continues a stored transcript
	resume *storage.Transcript
}

// newSession wires a chat session: client, model, greeting and recorder.
func (a *app) newSession(opts sessionOptions) (*chat.Session, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	session := chat.NewSession(client).WithLogger(a.logger.Named("chat"))

	modelID := a.cfg.OpenRouter.Model
	if opts.resume != nil {
		session = session.WithConversation(opts.resume.Conversation())
		modelID = opts.resume.ModelDescriptor().ID
	}
	if opts.model != "" {
		modelID = opts.model
	}
	m, _ := model.LookupModel(modelID)
	session = session.WithModel(m)

	if opts.greeting && a.cfg.Chat.Greeting {
		text := a.cfg.Chat.GreetingText
		if text == "" {
			text = chat.DefaultGreeting
		}
		session = session.WithGreeting(text)
	}

	store, err := a.store()
	if err != nil {
		return nil, err
	}
	if store != nil {
		session = session.WithRecorder(store)
	}
	return session, nil
}
