// Package midjourney implements generation.ImageGenerator over a
// Midjourney proxy: an imagine task is submitted, then polled until it
// succeeds or fails.
package midjourney

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/generation"
)

// ProviderName identifies the adapter in configuration and metadata.
const ProviderName = "midjourney"

const (
	costPerImage        = 0.05
	defaultPollInterval = 3 * time.Second
	maxResponseBytes    = 1 << 20
)

// Submit result codes returned by the proxy.
const (
	codeSubmitted = 1
	codeQueued    = 22
)

// Client talks to a Midjourney proxy.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	http         *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

var _ generation.ImageGenerator = (*Client)(nil)

// NewClient creates a Midjourney proxy client.
func NewClient(cfg config.MidjourneyConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: midjourney API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: midjourney base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		http:         httpClient,
		logger:       logger.With("provider", ProviderName),
		now:          time.Now,
	}, nil
}

// Name implements generation.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// GenerateImage submits an imagine task and waits for its result. The wait
// is bounded by ctx.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	start := c.now()

	var submit submitResponse
	err := c.do(ctx, http.MethodPost, "/mj/submit/imagine", submitRequest{Prompt: buildPrompt(req)}, &submit)
	if err != nil {
		return nil, err
	}
	if submit.Code != codeSubmitted && submit.Code != codeQueued {
		return nil, generation.NewProviderError(ProviderName, submitErrorKind(submit.Description),
			fmt.Errorf("submit rejected (code %d): %s", submit.Code, submit.Description))
	}
	if submit.Result == "" {
		return nil, fmt.Errorf("%w: midjourney returned no task id", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "midjourney task submitted", "task_id", submit.Result)

	task, err := c.wait(ctx, submit.Result)
	if err != nil {
		return nil, err
	}

	return &generation.ImageResult{
		URL: task.ImageURL,
		Metadata: generation.Metadata{
			Provider:       ProviderName,
			Model:          "midjourney",
			Cost:           costPerImage,
			GenerationTime: c.now().Sub(start),
		},
	}, nil
}

// wait polls the task until it reaches a terminal status.
func (c *Client) wait(ctx context.Context, taskID string) (*taskResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var task taskResponse
		if err := c.do(ctx, http.MethodGet, "/mj/task/"+taskID+"/fetch", nil, &task); err != nil {
			return nil, err
		}

		switch task.Status {
		case "SUCCESS":
			if task.ImageURL == "" {
				return nil, fmt.Errorf("%w: task %s succeeded without image", generation.ErrInvalidResponse, taskID)
			}
			return &task, nil
		case "FAILURE":
			kind := generation.KindUnknown
			if generation.MentionsContentPolicy(task.FailReason) || strings.Contains(strings.ToLower(task.FailReason), "banned") {
				kind = generation.KindContentPolicy
			}
			return nil, generation.NewProviderError(ProviderName, kind, errors.New(task.FailReason))
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, generation.NewProviderError(ProviderName, generation.KindTimeout,
					fmt.Errorf("task %s still %s: %w", taskID, task.Status, ctx.Err()))
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("midjourney marshal: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("midjourney request: %w", err)
	}
	req.Header.Set("mj-api-secret", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return generation.NewProviderError(ProviderName, generation.KindTimeout, err)
		}
		return generation.TransportError(ctx, ProviderName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return generation.TransportError(ctx, ProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return generation.StatusError(ProviderName, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: midjourney: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

// buildPrompt appends Midjourney parameters for the aspect ratio, seed and
// style to the prompt text.
func buildPrompt(req generation.ImageRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if req.Style != "" {
		b.WriteString(", " + req.Style + " style")
	}
	if req.Width > 0 && req.Height > 0 {
		w, h := req.Width, req.Height
		d := gcd(w, h)
		fmt.Fprintf(&b, " --ar %d:%d", w/d, h/d)
	}
	if req.Seed > 0 {
		fmt.Fprintf(&b, " --seed %d", req.Seed%4294967295)
	}
	return b.String()
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func submitErrorKind(description string) generation.ErrorKind {
	lower := strings.ToLower(description)
	switch {
	case generation.MentionsContentPolicy(description), strings.Contains(lower, "banned"):
		return generation.KindContentPolicy
	case strings.Contains(lower, "queue"), strings.Contains(lower, "busy"):
		return generation.KindRateLimited
	default:
		return generation.KindUnknown
	}
}

type submitRequest struct {
	Prompt string `json:"prompt"`
}

type submitResponse struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Result      string `json:"result"`
}

type taskResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Progress   string `json:"progress"`
	ImageURL   string `json:"imageUrl"`
	FailReason string `json:"failReason"`
}
