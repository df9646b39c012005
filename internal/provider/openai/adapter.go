// Package openai provides an adapter for OpenAI-compatible chat APIs
// (OpenRouter and friends) using the official SDK. It implements the
// domain.ChatProvider interface and passes upstream bodies through verbatim.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

const providerName = "openai"

// Provider implements the domain.ChatProvider interface for OpenAI-compatible APIs.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new OpenAI-compatible provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	opts = append(opts, option.WithMaxRetries(max(config.MaxRetries, 0)))

	return &Provider{
		client: openai.NewClient(opts...),
		name:   providerName,
	}, nil
}

// Complete sends a completion request and returns the upstream body verbatim.
func (p *Provider) Complete(ctx context.Context, req *domain.ChatRequest) (domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	resp, err := p.client.Chat.Completions.New(ctx, p.toSDKParams(ctx, req))
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, toDomainError(err)
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return domain.ChatResponse(resp.RawJSON()), nil
}

// Stream sends a completion request and returns a stream of chunks.
func (p *Provider) Stream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API")

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.toSDKParams(ctx, req))

	domainChunks := make(chan domain.StreamChunk)

	go func() {
		defer close(domainChunks)
		defer stream.Close()
		defer logger.Debug("OpenAI stream completed")

		emit := func(chunk domain.StreamChunk) bool {
			select {
			case domainChunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			done := chunk.Choices[0].FinishReason != ""
			if !emit(domain.StreamChunk{Delta: chunk.Choices[0].Delta.Content, Done: done, Error: nil}) {
				return
			}
			if done {
				return
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			emit(domain.StreamChunk{Delta: "", Done: false, Error: fmt.Errorf("OpenAI stream error: %w", toDomainError(err))})
			return
		}

		emit(domain.StreamChunk{Delta: "", Done: true, Error: nil})
	}()

	return domainChunks, nil
}

// Models returns the upstream model listing verbatim.
func (p *Provider) Models(ctx context.Context) (domain.ChatResponse, error) {
	var raw json.RawMessage
	if err := p.client.Get(ctx, "models", nil, &raw); err != nil {
		return nil, toDomainError(err)
	}
	return domain.ChatResponse(raw), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported claims every named model that is not served locally:
// hosted catalogs use vendor/model names without a ":tag" suffix.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	if model == "" {
		return false
	}
	return !strings.Contains(model, ":") && !strings.Contains(strings.ToLower(model), "llama")
}

// toSDKParams converts a domain request to SDK ChatCompletionNewParams.
// Options the chat completions API has no field for are dropped.
func (p *Provider) toSDKParams(ctx context.Context, req *domain.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	var dropped []string
	for key, value := range req.Options {
		number, ok := toFloat(value)
		if !ok {
			dropped = append(dropped, key)
			continue
		}

		switch key {
		case "temperature":
			params.Temperature = openai.Float(number)
		case "top_p":
			params.TopP = openai.Float(number)
		case "max_tokens", "num_predict":
			params.MaxTokens = openai.Int(int64(number))
		case "seed":
			params.Seed = openai.Int(int64(number))
		default:
			dropped = append(dropped, key)
		}
	}

	if len(dropped) > 0 {
		observability.FromContext(ctx).Debug("dropping unsupported options",
			observability.Strings("options", dropped))
	}

	return params
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toDomainError maps SDK status errors to *domain.UpstreamError.
func toDomainError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			StatusCode: apiErr.StatusCode,
			Body:       strings.TrimSpace(apiErr.RawJSON()),
		}
	}
	return err
}
