package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexart.backend/internal/usecases"
)

// HTTPExecutor forwards render specs to the render engine's HTTP API.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExecutor) Render(ctx context.Context, spec json.RawMessage) (*usecases.RenderResult, error) {
	body, err := json.Marshal(map[string]json.RawMessage{"spec": spec})
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render engine: %w", err)
	}
	defer resp.Body.Close()

	result := &usecases.RenderResult{StatusCode: resp.StatusCode}
	var payload struct {
		Output    json.RawMessage `json:"output"`
		ErrorCode string          `json:"errorCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		result.Output = payload.Output
		result.ErrorCode = payload.ErrorCode
	}
	return result, nil
}
