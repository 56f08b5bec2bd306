package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Model tiers used by the script engine. Cheap calls go to the fast tier,
// creative rewrites and reports to the premium one.
const (
	ModelFast     = openai.ChatModelGPT4oMini
	ModelStandard = openai.ChatModelGPT4oMini
	ModelPremium  = openai.ChatModelGPT4o
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

// ChatClient is the LLM surface the engine depends on.
type ChatClient interface {
	Complete(ctx context.Context, model openai.ChatModel, system, user string, temperature float64) (string, error)
}

// OpenAIChat implements ChatClient on the OpenAI chat completions API with
// bounded retries: transient failures (rate limits, server errors, network
// trouble) are retried up to three times with a fixed delay, while
// authentication and malformed-request errors fail immediately.
type OpenAIChat struct {
	client openai.Client
	sleep  func(time.Duration)
}

// NewOpenAIChat constructs the chat client.
func NewOpenAIChat(apiKey string) (*OpenAIChat, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: missing OpenAI API key")
	}
	// The SDK's own retry layer is disabled; the loop in Complete is the
	// single place retry policy lives.
	return &OpenAIChat{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		sleep:  time.Sleep,
	}, nil
}

// Complete sends one prompt and returns the model's reply text.
func (c *OpenAIChat) Complete(ctx context.Context, model openai.ChatModel, system, user string, temperature float64) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(retryDelay)
		}

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if !isTransient(err) {
				return "", fmt.Errorf("chat completion: %w", err)
			}
			lastErr = err
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", errors.New("chat completion: empty response")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("chat completion after %d attempts: %w", maxAttempts, lastErr)
}

// isTransient reports whether the failure is worth retrying.
func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}
