// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// DefaultImageKitEndpoint is the ImageKit upload API.
const DefaultImageKitEndpoint = "https://upload.imagekit.io/api/v1/files/upload"

// maxUploadResponseSize caps the upload response body.
const maxUploadResponseSize = 1 << 20

// ImageKitUploader uploads images to ImageKit (or any store speaking the
// same multipart protocol).
type ImageKitUploader struct {
	endpoint   string
	privateKey string
	httpClient *http.Client
}

// NewImageKitUploader creates an uploader authenticating with privateKey.
func NewImageKitUploader(privateKey string) *ImageKitUploader {
	return &ImageKitUploader{
		endpoint:   DefaultImageKitEndpoint,
		privateKey: strings.TrimSpace(privateKey),
		httpClient: http.DefaultClient,
	}
}

// WithEndpoint sets a custom upload endpoint.
func (u *ImageKitUploader) WithEndpoint(endpoint string) *ImageKitUploader {
	if endpoint != "" {
		u.endpoint = endpoint
	}
	return u
}

// WithHTTPClient sets the HTTP client used for uploads.
func (u *ImageKitUploader) WithHTTPClient(c *http.Client) *ImageKitUploader {
	if c != nil {
		u.httpClient = c
	}
	return u
}

type imageKitResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Upload implements Uploader with a single multipart POST carrying the
// base64 payload, the file name and the uniqueness flag.
func (u *ImageKitUploader) Upload(ctx context.Context, up Upload) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := []struct{ name, value string }{
		{"file", base64.StdEncoding.EncodeToString(up.Data)},
		{"fileName", up.Name},
		{"useUniqueFileName", strconv.FormatBool(up.Unique)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("%w: failed to build form: %v", ErrUploadFailed, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to build form: %v", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(u.privateKey, "")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrUploadFailed, err)
	}

	var parsed imageKitResponse
	parseErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if parseErr == nil && parsed.Message != "" {
			msg = parsed.Message
		}
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUploadFailed, resp.StatusCode, msg)
	}
	if parseErr != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrUploadFailed, parseErr)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("%w: response has no url", ErrUploadFailed)
	}
	return parsed.URL, nil
}
