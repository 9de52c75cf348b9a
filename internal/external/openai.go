package external

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Defaults mirror the production reply-engine settings.
const (
	defaultCompletionModel       = "gpt-4o"
	defaultCompletionTemperature = 0.7
	defaultCompletionMaxTokens   = 500
)

// OpenAIGeneratorConfig holds the configuration for creating an OpenAIGenerator.
type OpenAIGeneratorConfig struct {
	APIKey      string
	BaseURL     string // Override for testing; defaults to the public API
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// OpenAIGenerator implements TextGenerator over the Chat Completions API.
// The SDK handles transport concerns; this layer binds the production
// parameters and maps failures into the domain error taxonomy.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewOpenAIGenerator creates a generator bound to one model and one set of
// sampling parameters. Zero-valued fields fall back to production defaults.
func NewOpenAIGenerator(cfg OpenAIGeneratorConfig) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = defaultCompletionModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultCompletionTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultCompletionMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   int64(maxTokens),
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Generate requests a chat completion and returns the trimmed text of the
// first choice. An empty result is an error: callers must be able to rely on
// a nil error meaning usable text.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		g.logger.Warn("completion request failed",
			"model", g.model,
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err,
		)
		return "", types.NewAppError(
			types.ErrCodeUpstreamCompletion,
			"completion request failed",
			err,
		)
	}

	if len(completion.Choices) == 0 {
		return "", types.NewAppError(
			types.ErrCodeUpstreamCompletion,
			"completion returned no choices",
			nil,
		)
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", types.NewAppError(
			types.ErrCodeUpstreamCompletion,
			"completion returned no text",
			nil,
		)
	}

	g.logger.Debug("completion request completed",
		"model", g.model,
		"duration_ms", time.Since(started).Milliseconds(),
		"response_length", len(text),
	)

	return text, nil
}

// Backend reports the model name recorded on drafts this generator produced.
func (g *OpenAIGenerator) Backend() string { return g.model }

// ---------------------------------------------------------------------------
// Health Probe
// ---------------------------------------------------------------------------

// Name identifies the generator on the health endpoint.
func (g *OpenAIGenerator) Name() string { return "completion" }

// Check verifies the API accepts the configured credential by listing models.
func (g *OpenAIGenerator) Check(ctx context.Context) error {
	if _, err := g.client.Models.List(ctx); err != nil {
		return fmt.Errorf("completion health check failed: %w", err)
	}
	return nil
}

// Compile-time assertion that OpenAIGenerator satisfies TextGenerator.
var _ TextGenerator = (*OpenAIGenerator)(nil)
