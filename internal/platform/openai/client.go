package openai

import (
	"bytes"
	"context"
	"encoding/json"
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
const ProviderName = "openai"

const (
	// Approximate USD prices, used for cost accounting only.
	costPer1KTokens = 0.0006
	costPerImage    = 0.04

	maxResponseBytes = 8 << 20
)

// Client talks to the OpenAI REST API. It serves as both text and image
// provider.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	http       *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

var (
	_ generation.TextGenerator  = (*Client)(nil)
	_ generation.ImageGenerator = (*Client)(nil)
)

// NewClient creates an OpenAI client. The per-call deadline comes from the
// caller's context.
func NewClient(cfg config.OpenAIConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		http:       httpClient,
		logger:     logger.With("provider", ProviderName),
		now:        time.Now,
	}, nil
}

// Name implements generation.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// GenerateText sends a chat completion request and returns the assistant's
// message.
func (c *Client) GenerateText(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
	model := c.textModel
	if req.Model != "" {
		model = req.Model
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := c.now()
	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", generation.ErrInvalidResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, generation.NewProviderError(ProviderName, generation.KindContentPolicy,
			fmt.Errorf("completion stopped by content filter"))
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", generation.ErrInvalidResponse)
	}

	return &generation.TextResult{
		Content: choice.Message.Content,
		Metadata: generation.Metadata{
			Provider:       ProviderName,
			Model:          model,
			Cost:           float64(resp.Usage.TotalTokens) / 1000 * costPer1KTokens,
			GenerationTime: c.now().Sub(start),
			TokensUsed:     resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateImage requests a single image and returns its URL, or a data URL
// when the API answers with base64 content.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	model := c.imageModel
	if req.Model != "" {
		model = req.Model
	}

	prompt := req.Prompt
	if req.Style != "" {
		prompt += ", " + req.Style + " style"
	}

	body := imageRequest{
		Model:  model,
		Prompt: prompt,
		N:      1,
		Size:   imageSize(req.Width, req.Height),
	}

	start := c.now()
	var resp imageResponse
	if err := c.post(ctx, "/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no images returned", generation.ErrInvalidResponse)
	}

	url := resp.Data[0].URL
	if url == "" && resp.Data[0].B64JSON != "" {
		url = "data:image/png;base64," + resp.Data[0].B64JSON
	}
	if url == "" {
		return nil, fmt.Errorf("%w: image has no url", generation.ErrInvalidResponse)
	}

	return &generation.ImageResult{
		URL: url,
		Metadata: generation.Metadata{
			Provider:       ProviderName,
			Model:          model,
			Cost:           costPerImage,
			GenerationTime: c.now().Sub(start),
		},
	}, nil
}

// post sends body as JSON to path and decodes a 200 response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "openai request failed", "error", err, "path", path)
		return generation.TransportError(ctx, ProviderName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return generation.TransportError(ctx, ProviderName, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "openai returned error status",
			"status", resp.StatusCode,
			"path", path)
		return generation.StatusError(ProviderName, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: openai: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

func systemPrompt(req generation.TextRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert social media content writer.")
	if req.Platform != "" {
		fmt.Fprintf(&b, " You write for %s.", req.Platform)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, " Use a %s tone.", req.Tone)
	}
	if req.JSON {
		b.WriteString(" Respond only with a valid JSON object.")
	}
	return b.String()
}

// imageSize picks the supported size closest to the requested aspect ratio.
func imageSize(width, height int) string {
	switch {
	case width <= 0 || height <= 0:
		return "1024x1024"
	case float64(width)/float64(height) >= 1.3:
		return "1792x1024"
	case float64(height)/float64(width) >= 1.4:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}
