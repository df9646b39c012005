// Package echo provides an offline provider that echoes the conversation back.
// It implements the domain.ChatProvider interface without network calls and
// answers in the same shape as the Ollama chat API.
package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo"
	chunkDelay   = 10 * time.Millisecond
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   message `json:"message"`
	Done      bool    `json:"done"`
	EvalCount int     `json:"eval_count"`
}

type model struct {
	Name string `json:"name"`
}

type modelsResponse struct {
	Models []model `json:"models"`
}

// Provider implements the domain.ChatProvider interface for offline use.
type Provider struct {
	name            string
	supportedModels map[string]bool
}

// NewProvider creates a new echo provider.
func NewProvider() *Provider {
	return &Provider{
		name: providerName,
		supportedModels: map[string]bool{
			modelName: true,
		},
	}
}

// Complete returns the echoed conversation as a chat response body.
func (p *Provider) Complete(ctx context.Context, req *domain.ChatRequest) (domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request")

	content := buildEchoContent(req.Messages)

	body, err := json.Marshal(chatResponse{
		Model:     req.Model,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Message:   message{Role: domain.RoleAssistant, Content: content},
		Done:      true,
		EvalCount: countTokens(content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode echo response: %w", err)
	}

	return domain.ChatResponse(body), nil
}

// Stream returns the echoed conversation word by word.
func (p *Provider) Stream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request")

	echoContent := buildEchoContent(req.Messages)

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)

		words := strings.Fields(echoContent)

		for i, word := range words {
			delta := word
			if i < len(words)-1 {
				delta += " "
			}

			select {
			case <-ctx.Done():
				return
			case chunks <- domain.StreamChunk{Delta: delta, Done: false, Error: nil}:
				time.Sleep(chunkDelay)
			}
		}

		select {
		case chunks <- domain.StreamChunk{Delta: "", Done: true, Error: nil}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Models lists the echo model in the Ollama tags shape.
func (p *Provider) Models(_ context.Context) (domain.ChatResponse, error) {
	listing := modelsResponse{Models: make([]model, 0, len(p.supportedModels))}
	for name := range p.supportedModels {
		listing.Models = append(listing.Models, model{Name: name})
	}

	body, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model list: %w", err)
	}

	return domain.ChatResponse(body), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.supportedModels[model]
}

// buildEchoContent constructs the echo response from request messages.
func buildEchoContent(messages []domain.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
