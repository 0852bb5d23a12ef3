// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire type tags for content items.
const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// ErrUnknownContentKind is returned when a content item is neither Text nor ImageRef.
var ErrUnknownContentKind = errors.New("unknown content kind")

// =============================================================================
// CONTENT ITEM
// =============================================================================

// ContentItem is one unit of message content.
//
// The set of implementations is closed: only Text and ImageRef satisfy it.
// Consumers switch on the concrete type and must handle both.
type ContentItem interface {
	// Kind returns the wire type tag ("text" or "image_url").
	Kind() string

	contentItem()
}

// Text is a plain text content item.
type Text struct {
	Text string
}

// Kind implements ContentItem.
func (Text) Kind() string { return ContentTypeText }

func (Text) contentItem() {}

// ImageRef references an image either by data URI or by hosted URL.
type ImageRef struct {
	URL string
}

// Kind implements ContentItem.
func (ImageRef) Kind() string { return ContentTypeImageURL }

func (ImageRef) contentItem() {}

// NewText creates a text content item.
func NewText(text string) Text {
	return Text{Text: text}
}

// NewImageRef creates an image content item.
func NewImageRef(url string) ImageRef {
	return ImageRef{URL: url}
}

// =============================================================================
// JSON ENCODING
// =============================================================================

// contentJSON is the wire shape of a single content item.
type contentJSON struct {
	Type     string        `json:"type"`
	Text     *string       `json:"text,omitempty"`
	ImageURL *imageURLJSON `json:"image_url,omitempty"`
}

type imageURLJSON struct {
	URL string `json:"url"`
}

// Contents is an ordered sequence of content items with a JSON encoding
// matching the OpenAI-style content part array.
type Contents []ContentItem

// MarshalJSON implements json.Marshaler.
func (c Contents) MarshalJSON() ([]byte, error) {
	parts := make([]contentJSON, 0, len(c))
	for _, item := range c {
		part, err := encodeContent(item)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return json.Marshal(parts)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Contents) UnmarshalJSON(data []byte) error {
	var parts []contentJSON
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}

	items := make(Contents, 0, len(parts))
	for _, part := range parts {
		item, err := decodeContent(part)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	*c = items
	return nil
}

func encodeContent(item ContentItem) (contentJSON, error) {
	switch v := item.(type) {
	case Text:
		text := v.Text
		return contentJSON{Type: ContentTypeText, Text: &text}, nil
	case ImageRef:
		return contentJSON{Type: ContentTypeImageURL, ImageURL: &imageURLJSON{URL: v.URL}}, nil
	default:
		return contentJSON{}, fmt.Errorf("%w: %T", ErrUnknownContentKind, item)
	}
}

func decodeContent(part contentJSON) (ContentItem, error) {
	switch part.Type {
	case ContentTypeText:
		if part.Text == nil {
			return Text{}, nil
		}
		return Text{Text: *part.Text}, nil
	case ContentTypeImageURL:
		if part.ImageURL == nil {
			return nil, fmt.Errorf("image_url content without url")
		}
		return ImageRef{URL: part.ImageURL.URL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentKind, part.Type)
	}
}
