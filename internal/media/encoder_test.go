// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngOfSize(n int) []byte {
	data := make([]byte, n)
	copy(data, pngHeader)
	return data
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestInlineEncoder_ValidImagesSucceed(t *testing.T) {
	enc := NewInlineEncoder()
	sizes := []int{len(pngHeader), 1024, 512 * 1024, MaxImageBytes - 1, MaxImageBytes}
	mimes := []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

	for _, size := range sizes {
		for _, mime := range mimes {
			ref, err := enc.Encode(context.Background(), File{Name: "x", MIMEType: mime, Data: pngOfSize(size)})
			require.NoError(t, err, "size=%d mime=%s", size, mime)
			assert.NotEmpty(t, ref.URL)
			assert.True(t, strings.HasPrefix(ref.URL, "data:"+mime+";base64,"))
		}
	}
}

func TestInlineEncoder_PayloadIsBase64OfInput(t *testing.T) {
	data := pngOfSize(64)
	ref, err := NewInlineEncoder().Encode(context.Background(), File{MIMEType: "image/png", Data: data})
	require.NoError(t, err)

	payload := strings.TrimPrefix(ref.URL, "data:image/png;base64,")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestInlineEncoder_TooLarge(t *testing.T) {
	enc := NewInlineEncoder()
	for _, size := range []int{MaxImageBytes + 1, MaxImageBytes + 4096, 2 * MaxImageBytes} {
		_, err := enc.Encode(context.Background(), File{MIMEType: "image/png", Data: pngOfSize(size)})
		assert.ErrorIs(t, err, ErrTooLarge, "size=%d", size)
	}

	// Content does not matter
	_, err := enc.Encode(context.Background(), File{MIMEType: "image/jpeg", Data: bytes.Repeat([]byte{'a'}, MaxImageBytes+1)})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestInlineEncoder_UnsupportedType(t *testing.T) {
	enc := NewInlineEncoder()
	for _, mime := range []string{"text/plain", "application/pdf", "video/mp4", "application/octet-stream", "imagex/png"} {
		_, err := enc.Encode(context.Background(), File{MIMEType: mime, Data: pngOfSize(32)})
		assert.ErrorIs(t, err, ErrUnsupportedType, "mime=%s", mime)
	}
}

func TestInlineEncoder_SniffsMissingType(t *testing.T) {
	ref, err := NewInlineEncoder().Encode(context.Background(), File{Data: pngOfSize(32)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.URL, "data:image/png;base64,"))

	_, err = NewInlineEncoder().Encode(context.Background(), File{Data: []byte("just some text")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidate_NormalizesMIME(t *testing.T) {
	mime, err := Validate(File{MIMEType: " Image/PNG; charset=binary", Data: pngOfSize(8)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestValidate_EmptyData(t *testing.T) {
	_, err := Validate(File{MIMEType: "image/png"})
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestValidate_TypeCheckedBeforeSize(t *testing.T) {
	_, err := Validate(File{MIMEType: "application/zip", Data: make([]byte, MaxImageBytes+1)})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// =============================================================================
// READING
// =============================================================================

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, pngOfSize(128), 0o600))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pic.png", f.Name)
	assert.Equal(t, "image/png", f.MIMEType)
	assert.Len(t, f.Data, 128)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestReadFrom_ReadError(t *testing.T) {
	_, err := ReadFrom("x.png", iotest.ErrReader(errors.New("disk on fire")), "image/png")
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestReadFrom_Oversize(t *testing.T) {
	r := bytes.NewReader(pngOfSize(MaxImageBytes + 10))
	_, err := ReadFrom("big.png", r, "")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadFrom_DeclaredTypeKept(t *testing.T) {
	f, err := ReadFrom("x", bytes.NewReader(pngOfSize(16)), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", f.MIMEType)
}
