// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/orchat/internal/model"
)

// Upload is one object handed to an Uploader.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte

	// Unique asks the store to avoid overwriting an existing object of the same name
	Unique bool
}

// Uploader stores image bytes in a binary object store and returns the
// public URL of the stored object.
type Uploader interface {
	Upload(ctx context.Context, u Upload) (string, error)
}

// HostedEncoder uploads the image and references it by the returned URL.
//
// Each Encode performs exactly one upload attempt; failures are returned
// to the caller as ErrUploadFailed and never retried.
type HostedEncoder struct {
	uploader Uploader
	logger   *zap.Logger
}

// NewHostedEncoder creates a hosted encoder around uploader.
func NewHostedEncoder(uploader Uploader) *HostedEncoder {
	return &HostedEncoder{
		uploader: uploader,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger.
func (e *HostedEncoder) WithLogger(logger *zap.Logger) *HostedEncoder {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Encode implements Encoder.
func (e *HostedEncoder) Encode(ctx context.Context, f File) (model.ImageRef, error) {
	mime, err := Validate(f)
	if err != nil {
		return model.ImageRef{}, err
	}

	start := time.Now()
	url, err := e.uploader.Upload(ctx, Upload{
		Name:     uploadName(f.Name, mime),
		MIMEType: mime,
		Data:     f.Data,
		Unique:   true,
	})
	if err != nil {
		e.logger.Warn("image upload failed",
			zap.String("file", f.Name),
			zap.Int("bytes", len(f.Data)),
			zap.Error(err),
		)
		if errors.Is(err, ErrUploadFailed) {
			return model.ImageRef{}, err
		}
		return model.ImageRef{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if strings.TrimSpace(url) == "" {
		return model.ImageRef{}, fmt.Errorf("%w: store returned no url", ErrUploadFailed)
	}

	e.logger.Debug("image uploaded",
		zap.String("file", f.Name),
		zap.Int("bytes", len(f.Data)),
		zap.Duration("duration", time.Since(start)),
	)
	return model.NewImageRef(url), nil
}

// uploadName returns name, or a generic name with an extension derived from mime.
func uploadName(name, mime string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	ext := strings.TrimPrefix(mime, "image/")
	if i := strings.IndexAny(ext, "+;"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	return "image." + ext
}
