// Package syncdriver implements the remote synchronization protocol
// (component C6): job lifecycle (initiate, upload, finalize, abort) and
// the batch upload driver that drains the graph store into the remote
// endpoint. The HTTP shape is fixed by §6; retries follow the same
// exponential-backoff idiom the rest of the
// core uses (github.com/cenkalti/backoff/v5) rather than hand-rolled
// sleep loops.
package syncdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// Client is the narrow HTTP client for the sync API shape in §6. Every
// call is retried with exponential backoff, up to maxRetries attempts;
// 4xx responses (including 401/403) are not retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint
}

// New returns a Client against baseURL, authenticating with apiKey via a
// bearer token, as the teacher's own API clients do.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 5,
	}
}

type jobEnvelope struct {
	Job struct {
		ID string `json:"id"`
	} `json:"job"`
}

// InitiateJob creates a new synchronization job (POST
// /persister/synchronization/jobs) and returns the job handle with its
// derived URL.
func (c *Client) InitiateJob(ctx context.Context) (model.SynchronizationJob, error) {
	var env jobEnvelope
	if err := c.postWithRetry(ctx, "/persister/synchronization/jobs", nil, &env); err != nil {
		return model.SynchronizationJob{}, err
	}
	return model.SynchronizationJob{
		ID:  env.Job.ID,
		URL: fmt.Sprintf("%s/persister/synchronization/jobs/%s", c.baseURL, env.Job.ID),
	}, nil
}

// PostEntities uploads one batch (POST .../entities).
func (c *Client) PostEntities(ctx context.Context, job model.SynchronizationJob, entities []model.Entity) error {
	path := fmt.Sprintf("/persister/synchronization/jobs/%s/entities", job.ID)
	return c.postWithRetry(ctx, path, map[string]any{"entities": entities}, nil)
}

// PostRelationships uploads one batch (POST .../relationships).
func (c *Client) PostRelationships(ctx context.Context, job model.SynchronizationJob, relationships []model.Relationship) error {
	path := fmt.Sprintf("/persister/synchronization/jobs/%s/relationships", job.ID)
	return c.postWithRetry(ctx, path, map[string]any{"relationships": relationships}, nil)
}

// Finalize completes the job (POST .../finalize).
func (c *Client) Finalize(ctx context.Context, job model.SynchronizationJob, partialDatasets model.PartialDatasets) error {
	path := fmt.Sprintf("/persister/synchronization/jobs/%s/finalize", job.ID)
	return c.postWithRetry(ctx, path, map[string]any{"partialDatasets": partialDatasets}, nil)
}

// Abort terminates the job without finalizing (POST .../abort).
func (c *Client) Abort(ctx context.Context, job model.SynchronizationJob, reason string) error {
	path := fmt.Sprintf("/persister/synchronization/jobs/%s/abort", job.ID)
	return c.postWithRetry(ctx, path, map[string]any{"reason": reason}, nil)
}

// PostEvent implements eventqueue.Poster (POST .../events).
func (c *Client) PostEvent(ctx context.Context, job model.SynchronizationJob, name string, payload map[string]any) error {
	path := fmt.Sprintf("/persister/synchronization/jobs/%s/events", job.ID)
	body := map[string]any{"name": name}
	for k, v := range payload {
		body[k] = v
	}
	return c.postWithRetry(ctx, path, body, nil)
}

func (c *Client) postWithRetry(ctx context.Context, path string, body any, out any) error {
	operation := func() (struct{}, error) {
		err := c.doPost(ctx, path, body, out)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
	)
	if err != nil {
		return ierr.SynchronizationAPI(fmt.Sprintf("%s failed after retries", path), err)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("syncdriver: encode request: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("syncdriver: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("syncdriver: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return backoff.Permanent(ierr.ProviderAuth(resp.StatusCode == http.StatusForbidden, path, resp.StatusCode, resp.Status))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("syncdriver: %s: server error %s", path, resp.Status)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("syncdriver: %s: client error %s", path, resp.Status))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("syncdriver: %s: decode response: %w", path, err))
		}
	}
	return nil
}
