package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/generation"
	"google.golang.org/genai"
)

// ProviderName identifies the adapter in configuration and metadata.
const ProviderName = "gemini"

// Approximate USD price per 1k tokens, used for cost accounting only.
const costPer1KTokens = 0.000375

// contentGenerator is the subset of the genai client the adapter calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		cfg *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.TextGenerator using Gemini.
type Generator struct {
	models contentGenerator
	model  string
	logger *slog.Logger
	now    func() time.Time
}

var _ generation.TextGenerator = (*Generator)(nil)

// NewGenerator creates a Gemini text generator.
func NewGenerator(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: gemini model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, cfg.Model, logger), nil
}

func newGenerator(models contentGenerator, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		models: models,
		model:  model,
		logger: logger.With("provider", ProviderName),
		now:    time.Now,
	}
}

// Name implements generation.Provider.
func (g *Generator) Name() string {
	return ProviderName
}

// GenerateText implements generation.TextGenerator.
func (g *Generator) GenerateText(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := g.now()
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		g.logger.WarnContext(ctx, "gemini call failed", "error", err, "model", model)
		return nil, classifyError(ctx, err)
	}

	text, err := extractText(resp)
	if err != nil {
		g.logger.WarnContext(ctx, "gemini returned no usable content", "error", err, "model", model)
		return nil, err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	elapsed := g.now().Sub(start)
	g.logger.DebugContext(ctx, "gemini call succeeded",
		"model", model,
		"tokens", tokens,
		"duration", elapsed)

	return &generation.TextResult{
		Content: text,
		Metadata: generation.Metadata{
			Provider:       ProviderName,
			Model:          model,
			Cost:           float64(tokens) / 1000 * costPer1KTokens,
			GenerationTime: elapsed,
			TokensUsed:     tokens,
		},
	}, nil
}

// extractText returns the concatenated text of the first candidate, or a
// provider error when the response was blocked or empty.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", generation.NewProviderError(ProviderName, generation.KindContentPolicy,
			fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.NewProviderError(ProviderName, generation.KindContentPolicy,
			errors.New("response blocked by safety filters"))
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty text", generation.ErrInvalidResponse)
	}
	return b.String(), nil
}

// classifyError maps a genai client error to a ProviderError.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return generation.NewProviderError(ProviderName, generation.KindTimeout, err)
	}
	if ctx.Err() != nil {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return generation.NewProviderError(ProviderName, kindForAPIError(apiErr.Code, apiErr.Status, apiErr.Message), err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return generation.NewProviderError(ProviderName,
			kindForAPIError(apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message), err)
	}
	return generation.NewProviderError(ProviderName, generation.KindUnknown, err)
}

func kindForAPIError(code int, status, message string) generation.ErrorKind {
	switch status {
	case "RESOURCE_EXHAUSTED":
		return generation.KindRateLimited
	case "DEADLINE_EXCEEDED":
		return generation.KindTimeout
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		return generation.KindConfiguration
	}
	if code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key") {
		return generation.KindConfiguration
	}
	return generation.ClassifyHTTPStatus(code, message)
}
