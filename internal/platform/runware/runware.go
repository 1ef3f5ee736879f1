// Package runware implements generation.ImageGenerator over the Runware
// task API.
package runware

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

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/generation"
)

// ProviderName identifies the adapter in configuration and metadata.
const ProviderName = "runware"

const (
	minDimension  = 128
	maxDimension  = 2048
	dimensionStep = 64

	maxResponseBytes = 1 << 20
)

// Client submits imageInference tasks to Runware.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

var _ generation.ImageGenerator = (*Client)(nil)

// NewClient creates a Runware client.
func NewClient(cfg config.RunwareConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: runware API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.runware.ai/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    httpClient,
		logger:  logger.With("provider", ProviderName),
		now:     time.Now,
	}, nil
}

// Name implements generation.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// GenerateImage runs one imageInference task and returns the image URL.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	prompt := req.Prompt
	if req.Style != "" {
		prompt += ", " + req.Style + " style"
	}

	task := inferenceTask{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: prompt,
		Model:          model,
		Width:          snapDimension(req.Width),
		Height:         snapDimension(req.Height),
		NumberResults:  1,
		OutputType:     "URL",
		IncludeCost:    true,
	}
	if req.Seed > 0 {
		task.Seed = req.Seed
	}

	payload, err := json.Marshal([]inferenceTask{task})
	if err != nil {
		return nil, fmt.Errorf("runware marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("runware request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "runware request failed", "error", err)
		return nil, generation.TransportError(ctx, ProviderName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, generation.TransportError(ctx, ProviderName, err)
	}

	var out taskResponse
	decodeErr := json.Unmarshal(body, &out)

	if len(out.Errors) > 0 {
		return nil, taskError(resp.StatusCode, out.Errors[0])
	}
	if resp.StatusCode != http.StatusOK {
		return nil, generation.StatusError(ProviderName, resp.StatusCode, body)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: runware: %v", generation.ErrInvalidResponse, decodeErr)
	}

	for _, d := range out.Data {
		if d.TaskUUID == task.TaskUUID && d.ImageURL != "" {
			return &generation.ImageResult{
				URL: d.ImageURL,
				Metadata: generation.Metadata{
					Provider:       ProviderName,
					Model:          model,
					Cost:           d.Cost,
					GenerationTime: c.now().Sub(start),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: runware returned no image for task %s", generation.ErrInvalidResponse, task.TaskUUID)
}

// snapDimension rounds v to the nearest multiple of 64 within the accepted
// range. Zero selects 1024.
func snapDimension(v int) int {
	if v <= 0 {
		return 1024
	}
	snapped := (v + dimensionStep/2) / dimensionStep * dimensionStep
	return min(max(snapped, minDimension), maxDimension)
}

func taskError(status int, e apiError) error {
	msg := e.Code + ": " + e.Message
	kind := generation.ClassifyHTTPStatus(status, msg)
	switch {
	case generation.MentionsContentPolicy(msg):
		kind = generation.KindContentPolicy
	case strings.Contains(strings.ToLower(e.Code), "apikey"), strings.Contains(strings.ToLower(e.Code), "auth"):
		kind = generation.KindConfiguration
	case strings.Contains(strings.ToLower(e.Code), "timeout"):
		kind = generation.KindTimeout
	}
	return generation.NewProviderError(ProviderName, kind, errors.New(msg))
}

type inferenceTask struct {
	TaskType       string `json:"taskType"`
	TaskUUID       string `json:"taskUUID"`
	PositivePrompt string `json:"positivePrompt"`
	Model          string `json:"model"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumberResults  int    `json:"numberResults"`
	OutputType     string `json:"outputType"`
	IncludeCost    bool   `json:"includeCost"`
	Seed           int64  `json:"seed,omitempty"`
}

type taskResponse struct {
	Data []struct {
		TaskType string  `json:"taskType"`
		TaskUUID string  `json:"taskUUID"`
		ImageURL string  `json:"imageURL"`
		Cost     float64 `json:"cost"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	TaskUUID string `json:"taskUUID"`
}
