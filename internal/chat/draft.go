// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives a single conversation: it stages user input, guards
// against overlapping requests and appends replies in order.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/orchat/internal/media"
	"github.com/jeranaias/orchat/internal/model"
)

// Error variables for turn handling.
var (
	// ErrEmptyDraft indicates a send with neither text nor images.
	ErrEmptyDraft = errors.New("message is empty")

	// ErrImageIndex indicates a staged image index out of range.
	ErrImageIndex = errors.New("no staged image at that position")

	// ErrRequestPending indicates a send while a reply is still outstanding.
	ErrRequestPending = errors.New("a request is already in progress")
)

// Draft is the message being composed: free text plus staged images.
//
// A Draft is not safe for concurrent use.
type Draft struct {
	text   string
	images []model.ImageRef
}

// SetText replaces the draft text.
func (d *Draft) SetText(text string) {
	d.text = text
}

// Text returns the draft text.
func (d *Draft) Text() string {
	return d.text
}

// AttachImage encodes f with enc and stages the result. On error nothing is staged.
func (d *Draft) AttachImage(ctx context.Context, enc media.Encoder, f media.File) (model.ImageRef, error) {
	ref, err := enc.Encode(ctx, f)
	if err != nil {
		return model.ImageRef{}, err
	}
	d.images = append(d.images, ref)
	return ref, nil
}

// AddImage stages an already encoded image.
func (d *Draft) AddImage(ref model.ImageRef) {
	d.images = append(d.images, ref)
}

// RemoveImage unstages the image at index i.
func (d *Draft) RemoveImage(i int) error {
	if i < 0 || i >= len(d.images) {
		return fmt.Errorf("%w: %d (have %d)", ErrImageIndex, i, len(d.images))
	}
	d.images = append(d.images[:i], d.images[i+1:]...)
	return nil
}

// Images returns a copy of the staged images.
func (d *Draft) Images() []model.ImageRef {
	out := make([]model.ImageRef, len(d.images))
	copy(out, d.images)
	return out
}

// Empty reports whether the draft has no images and only blank text.
func (d *Draft) Empty() bool {
	return len(d.images) == 0 && strings.TrimSpace(d.text) == ""
}

// Content builds the message content: staged images first, then the text
// when it is not blank.
func (d *Draft) Content() (model.Contents, error) {
	if d.Empty() {
		return nil, ErrEmptyDraft
	}
	items := make(model.Contents, 0, len(d.images)+1)
	for _, img := range d.images {
		items = append(items, img)
	}
	if strings.TrimSpace(d.text) != "" {
		items = append(items, model.NewText(d.text))
	}
	return items, nil
}

// Reset clears text and images.
func (d *Draft) Reset() {
	d.text = ""
	d.images = nil
}
