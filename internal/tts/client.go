package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Client calls the hosted speech-synthesis service.
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

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize converts text into audio bytes with the given voice.
// outputFormat follows the provider's format identifiers (e.g.
// "mp3_44100_128"); empty uses the provider default.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, outputFormat string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	if voiceID == "" {
		return nil, fmt.Errorf("voice id must not be empty")
	}

	body, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	if outputFormat != "" {
		endpoint += "?output_format=" + outputFormat
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("speech synthesis returned status %d: %s", resp.StatusCode, string(raw))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}
