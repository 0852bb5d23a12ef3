// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContents_MarshalJSON(t *testing.T) {
	c := Contents{
		NewImageRef("data:image/png;base64,iVBORw0KGgo="),
		NewText("what is this?"),
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw0KGgo="}},
		{"type":"text","text":"what is this?"}
	]`, string(data))
}

func TestContents_EmptyTextKeepsField(t *testing.T) {
	data, err := json.Marshal(Contents{NewText("")})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":""}]`, string(data))
}

func TestContents_UnmarshalJSON(t *testing.T) {
	var c Contents
	err := json.Unmarshal([]byte(`[
		{"type":"text","text":"hi"},
		{"type":"image_url","image_url":{"url":"https://example.com/x.png"}}
	]`), &c)
	require.NoError(t, err)

	assert.Equal(t, Contents{NewText("hi"), NewImageRef("https://example.com/x.png")}, c)
}

func TestContents_UnmarshalUnknownKind(t *testing.T) {
	var c Contents
	err := json.Unmarshal([]byte(`[{"type":"audio","audio":{}}]`), &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownContentKind)
}

func TestContents_UnmarshalImageWithoutURL(t *testing.T) {
	var c Contents
	err := json.Unmarshal([]byte(`[{"type":"image_url"}]`), &c)
	assert.Error(t, err)
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	msg := NewUserMessage(NewText("Hi"), NewImageRef("https://example.com/x.png"))

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.Role, decoded.Role)
	assert.Equal(t, msg.Content, decoded.Content)
	assert.True(t, msg.CreatedAt.Equal(decoded.CreatedAt))
}

func TestContentItem_Kind(t *testing.T) {
	var items []ContentItem = []ContentItem{NewText("a"), NewImageRef("b")}
	assert.Equal(t, ContentTypeText, items[0].Kind())
	assert.Equal(t, ContentTypeImageURL, items[1].Kind())
}
