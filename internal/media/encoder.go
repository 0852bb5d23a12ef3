// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package media turns locally selected image files into image content items.
//
// Two variants exist and a deployment picks one: the inline encoder produces
// base64 data URIs and never touches the network; the hosted encoder uploads
// the bytes once to an object store and references the returned URL.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/orchat/internal/model"
)

// MaxImageBytes is the largest accepted image (5 MiB).
const MaxImageBytes = 5 * 1024 * 1024

// Error variables for encoding failures.
var (
	// ErrUnsupportedType indicates the file is not an image.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge indicates the file exceeds MaxImageBytes.
	ErrTooLarge = errors.New("image too large")

	// ErrUploadFailed indicates the hosted upload round trip failed.
	ErrUploadFailed = errors.New("image upload failed")

	// ErrDecodeFailed indicates the file bytes could not be read.
	ErrDecodeFailed = errors.New("could not read image")
)

// File is an image selected by the user.
type File struct {
	// Name is the original file name (used by hosted uploads)
	Name string

	// MIMEType is the declared type; sniffed from Data when empty
	MIMEType string

	Data []byte
}

// Encoder converts a File into an image content item.
type Encoder interface {
	Encode(ctx context.Context, f File) (model.ImageRef, error)
}

// Validate checks the file against the accepted types and size limit and
// returns the effective MIME type.
//
// The type is checked before the size.
func Validate(f File) (string, error) {
	mime := strings.TrimSpace(f.MIMEType)
	if mime == "" {
		mime = mimetype.Detect(f.Data).String()
	}
	// Drop parameters such as "; charset=binary"
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	mime = strings.ToLower(mime)

	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	if len(f.Data) > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(f.Data), MaxImageBytes)
	}
	if len(f.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrDecodeFailed)
	}
	return mime, nil
}

// =============================================================================
// INLINE ENCODER
// =============================================================================

// InlineEncoder embeds the image as a base64 data URI.
type InlineEncoder struct{}

// NewInlineEncoder creates an inline encoder.
func NewInlineEncoder() *InlineEncoder {
	return &InlineEncoder{}
}

// Encode implements Encoder. It performs no I/O.
func (e *InlineEncoder) Encode(_ context.Context, f File) (model.ImageRef, error) {
	mime, err := Validate(f)
	if err != nil {
		return model.ImageRef{}, err
	}
	return model.NewImageRef(DataURI(mime, f.Data)), nil
}

// DataURI formats data as "data:<mime>;base64,<payload>".
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
