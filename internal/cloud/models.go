// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/orchat/internal/model"
)

// modelsResponse is the body of GET /models.
type modelsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"data"`
}

// ModelsEndpoint returns the model listing URL that sits next to the
// configured completions endpoint.
func (c *Client) ModelsEndpoint() string {
	if base, ok := strings.CutSuffix(c.endpoint, "/chat/completions"); ok {
		return base + "/models"
	}
	return strings.TrimSuffix(DefaultEndpoint, "/chat/completions") + "/models"
}

// ListModels retrieves the models OpenRouter currently routes.
//
// The endpoint does not require a key; none is sent.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ModelsEndpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := readResponse(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, readErr
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	models := make([]model.ModelDescriptor, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.ID == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, model.ModelDescriptor{ID: m.ID, Name: name, Description: m.Description})
	}
	return models, nil
}
