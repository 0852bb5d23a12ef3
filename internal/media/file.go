// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// ReadFile loads an image from disk and detects its MIME type.
func ReadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer f.Close()

	return ReadFrom(filepath.Base(path), f, "")
}

// ReadFrom reads an image from r.
//
// At most MaxImageBytes+1 bytes are read so oversize input is rejected
// without buffering all of it. When mime is empty it is sniffed from the
// content.
func ReadFrom(name string, r io.Reader, mime string) (File, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}

	f := File{Name: name, MIMEType: mime, Data: data}
	if len(data) > MaxImageBytes {
		// Validate reports the type error first, then the size error.
		_, err := Validate(f)
		return File{}, err
	}
	return f, nil
}
