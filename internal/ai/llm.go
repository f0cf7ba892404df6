package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	gapi "google.golang.org/api/option"

	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/utils"
)

// LLMClient answers prompts with the configured language model. Calls go
// through a circuit breaker and a request-rate limiter so a degraded backend
// sheds load instead of piling up requests.
type LLMClient struct {
	provider    string
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter

	googleClient *genai.Client
	openaiClient openai.Client
}

type rateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) rateLimits {
	switch tier {
	case "tier1":
		return rateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return rateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default: // free
		return rateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func NewLLMClient(ctx context.Context, cfg *config.Config) (*LLMClient, error) {
	c := &LLMClient{
		provider: cfg.LLMProvider,
		model:    cfg.LLMModel,
	}

	switch cfg.LLMProvider {
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for LLM provider")
		}
		client, err := genai.NewClient(ctx, gapi.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		c.googleClient = client

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for LLM provider")
		}
		c.openaiClient = openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "LLMBackend",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	limits := getRateLimits("free")
	c.rateLimiter = rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	logger.Info("LLM client initialized", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return c, nil
}

// Generate answers a prompt. Any backend fault, including an open breaker,
// surfaces as a generation failure.
func (c *LLMClient) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	tracer := otel.Tracer("llm-client")
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.provider),
		attribute.String("llm.model", c.model),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", utils.NewGenerationError("rate limiter wait: %v", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		switch c.provider {
		case "google":
			return c.generateGoogle(ctx, prompt, temperature, maxTokens)
		case "openai":
			return c.generateOpenAI(ctx, prompt, temperature, maxTokens)
		default:
			return "", fmt.Errorf("unknown LLM provider: %s", c.provider)
		}
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("llm.failed", true))
		return "", utils.NewGenerationError("%s generate: %v", c.provider, err)
	}

	return result.(string), nil
}

func (c *LLMClient) generateGoogle(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	model := c.googleClient.GenerativeModel(c.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return sb.String(), nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.openaiClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(float64(temperature)),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close releases provider resources. Only the google client holds a connection.
func (c *LLMClient) Close() {
	if c.googleClient != nil {
		c.googleClient.Close()
	}
}
