package speech

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"videosync/models"
)

const defaultBaseURL = "https://api.deepgram.com"

// cacheTTL bounds how long a raw transcription response is reused for the
// same media URL.
const cacheTTL = 24 * time.Hour

// Client calls the hosted speech-to-text service for pre-recorded media.
// An optional Redis cache avoids re-transcribing media that was already
// processed; cache failures are never fatal.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	cache   *redis.Client
	logger  *logrus.Logger
}

type Option func(*Client)

// WithBaseURL overrides the service endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCache attaches a Redis-backed response cache.
func WithCache(cache *redis.Client) Option {
	return func(c *Client) { c.cache = cache }
}

func NewClient(apiKey string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcribeRequest struct {
	URL string `json:"url"`
}

// Transcribe requests a word- and utterance-level transcription of the
// media at mediaURL.
func (c *Client) Transcribe(ctx context.Context, mediaURL string) (*models.Transcription, error) {
	if cached := c.fromCache(ctx, mediaURL); cached != nil {
		return cached, nil
	}

	body, err := json.Marshal(transcribeRequest{URL: mediaURL})
	if err != nil {
		return nil, fmt.Errorf("marshal transcription request: %w", err)
	}

	query := url.Values{}
	query.Set("model", "nova-3")
	query.Set("punctuate", "true")
	query.Set("utterances", "true")
	query.Set("paragraphs", "true")
	query.Set("smart_format", "true")

	endpoint := fmt.Sprintf("%s/v1/listen?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var transcription models.Transcription
	if err := json.Unmarshal(raw, &transcription); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	c.toCache(ctx, mediaURL, raw)
	return &transcription, nil
}

func cacheKey(mediaURL string) string {
	sum := sha256.Sum256([]byte(mediaURL))
	return "transcription:" + hex.EncodeToString(sum[:8])
}

func (c *Client) fromCache(ctx context.Context, mediaURL string) *models.Transcription {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, cacheKey(mediaURL)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithField("error", err.Error()).Warn("Transcription cache read failed")
		}
		return nil
	}
	var transcription models.Transcription
	if err := json.Unmarshal(raw, &transcription); err != nil {
		return nil
	}
	return &transcription
}

func (c *Client) toCache(ctx context.Context, mediaURL string, raw []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(mediaURL), raw, cacheTTL).Err(); err != nil {
		c.logger.WithField("error", err.Error()).Warn("Transcription cache write failed")
	}
}
