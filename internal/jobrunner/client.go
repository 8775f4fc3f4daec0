package jobrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// RenderEventType tags dispatches that trigger the rendering workflow.
const RenderEventType = "render-video"

// VideoArtifactName is the artifact the rendering workflow uploads.
const VideoArtifactName = "rendered-video"

// Client talks to the GitHub Actions API, which this system uses as an
// asynchronous render-job runner: dispatch an event, then correlate and
// poll the workflow run it triggered.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	httpc   *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(token, owner, repo string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		owner:   owner,
		repo:    repo,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WorkflowRun is the subset of a run's fields the pipeline reads.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Event      string `json:"event"`
	Status     string `json:"status"`     // queued, in_progress, completed
	Conclusion string `json:"conclusion"` // success, failure, cancelled, ...
}

// Artifact is one build artifact attached to a completed run.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ArchiveDownloadURL string `json:"archive_download_url"`
}

type dispatchRequest struct {
	EventType     string      `json:"event_type"`
	ClientPayload interface{} `json:"client_payload"`
}

// Dispatch submits a repository_dispatch event carrying the render
// payload. The API returns only an acknowledgement; the run id must be
// discovered separately via ListRuns.
func (c *Client) Dispatch(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(dispatchRequest{EventType: eventType, ClientPayload: payload})
	if err != nil {
		return fmt.Errorf("marshal dispatch payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/dispatches", c.baseURL, c.owner, c.repo)
	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dispatch returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

type listRunsResponse struct {
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// ListRuns returns the most recent workflow runs for the repository.
func (c *Client) ListRuns(ctx context.Context) ([]WorkflowRun, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs", c.baseURL, c.owner, c.repo)
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list runs returned status %d", resp.StatusCode)
	}

	var listed listRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("decode runs response: %w", err)
	}
	return listed.WorkflowRuns, nil
}

// GetRun returns the current status of a single workflow run.
func (c *Client) GetRun(ctx context.Context, runID int64) (*WorkflowRun, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d", c.baseURL, c.owner, c.repo, runID)
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get run %d returned status %d", runID, resp.StatusCode)
	}

	var run WorkflowRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	return &run, nil
}

type listArtifactsResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

// ListArtifacts returns the artifacts attached to a completed run.
func (c *Client) ListArtifacts(ctx context.Context, runID int64) ([]Artifact, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d/artifacts", c.baseURL, c.owner, c.repo, runID)
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list artifacts for run %d returned status %d", runID, resp.StatusCode)
	}

	var listed listArtifactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("decode artifacts response: %w", err)
	}
	return listed.Artifacts, nil
}

// DownloadArtifact fetches an artifact archive (a zip) by its download URL.
func (c *Client) DownloadArtifact(ctx context.Context, archiveURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	return resp, nil
}
