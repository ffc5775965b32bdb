// Package webapp is the browser form in front of the prediction API.
package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diagserve/metadata"
	"diagserve/predict"
)

// TransportError means the API could not be reached at all, timeouts included.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.URL, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer. Body is kept raw for display.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string { return fmt.Sprintf("API error (%d): %s", e.Status, e.Body) }

// maxResponseBytes bounds how much of an API answer is read.
const maxResponseBytes = 4 << 20

type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) BaseURL() string { return c.baseURL }

// Features fetches the schema. An empty list is an error: there is nothing to
// render a form from.
func (c *APIClient) Features(ctx context.Context) (metadata.Schema, error) {
	var payload struct {
		Features metadata.Schema `json:"features"`
	}
	if err := c.do(ctx, http.MethodGet, "/features", nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Features) == 0 {
		return nil, errors.New("API returned no features")
	}
	return payload.Features, nil
}

// Predict posts values in map form.
func (c *APIClient) Predict(ctx context.Context, values map[string]float64) (*predict.Result, error) {
	body, err := json.Marshal(map[string]any{"features": values})
	if err != nil {
		return nil, err
	}
	var result predict.Result
	if err := c.do(ctx, http.MethodPost, "/predict", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	url := c.baseURL + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
