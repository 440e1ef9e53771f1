// Package llm implements translation and clinical note generation on top of an
// OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/config"
	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/observability"
	"github.com/curalingo/session-gateway/internal/resilience"
)

// ErrEmptyCompletion is returned when the model answers with no choices or no text
var ErrEmptyCompletion = errors.New("empty completion")

// Client is a chat completions client guarded by a circuit breaker and retries
type Client struct {
	client         oai.Client
	model          string
	languages      *language.Directory
	retry          *resilience.RetryConfig
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewClient creates a client from service configuration
func NewClient(cfg *config.Config, languages *language.Directory) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if languages == nil {
		languages = language.Default()
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		// Retries are handled by resilience.RetryValue
		option.WithMaxRetries(0),
	}
	if cfg.OpenAIBaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond

	return &Client{
		client:    oai.NewClient(reqOpts...),
		model:     cfg.OpenAIModel,
		languages: languages,
		retry:     retry,
		circuitBreaker: resilience.NewCircuitBreaker(
			"openai",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.WithComponent("openai"),
	}, nil
}

// complete sends a system and user message and returns the trimmed reply
func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: param.NewOpt(temperature),
	}

	attempts := 0
	content, err := resilience.RetryValue(ctx, c.retry, func(ctx context.Context) (string, error) {
		attempts++
		return resilience.Guard(ctx, c.circuitBreaker, func(ctx context.Context) (string, error) {
			resp, err := c.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return "", fmt.Errorf("chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return "", ErrEmptyCompletion
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		})
	}, resilience.IsRetryableNetworkError)
	if err != nil {
		stats := c.circuitBreaker.GetStats()
		c.logger.Warn().
			Err(err).
			Int("attempts", attempts).
			Str("model", c.model).
			Str("circuit", stats.State.String()).
			Float64("failure_rate", stats.FailureRate).
			Msg("Completion failed")
		return "", err
	}
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// HealthCheck reports the client's circuit state
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	return c.circuitBreaker.HealthCheck(ctx)
}
