package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.replicate.com"

// Client calls the hosted image-generation service (Replicate-style
// model predictions API).
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the service endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VendorError carries the provider's own error payload so the HTTP
// boundary can pass it through with the original status code.
type VendorError struct {
	StatusCode int
	Detail     string
	Raw        json.RawMessage
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("image generation service returned status %d: %s", e.StatusCode, e.Detail)
}

type predictionRequest struct {
	Input map[string]interface{} `json:"input"`
}

// Generate runs a synchronous prediction against the given model path
// and returns the provider's raw response. The Prefer: wait header asks
// the provider to block until generation finishes.
func (c *Client) Generate(ctx context.Context, modelPath string, input map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(predictionRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s/predictions", c.baseURL, modelPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		vendorErr := &VendorError{StatusCode: resp.StatusCode, Raw: raw}
		var payload struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
			vendorErr.Detail = payload.Detail
		} else {
			vendorErr.Detail = "error from image generation service"
		}
		return nil, vendorErr
	}

	return raw, nil
}
