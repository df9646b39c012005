// Package ollama relays chat requests to an Ollama server over its native
// /api/chat protocol. Streaming responses are newline-delimited JSON records.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

const providerName = "ollama"

// Provider implements the domain.ChatProvider interface for Ollama.
type Provider struct {
	client *Client
	name   string
}

// NewProvider creates a new Ollama provider.
func NewProvider(config Config) (*Provider, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, errors.New("Ollama base URL is required")
	}

	return &Provider{
		client: NewClient(config),
		name:   providerName,
	}, nil
}

// Complete sends a non-streaming chat request and returns the body verbatim.
func (p *Provider) Complete(ctx context.Context, req *domain.ChatRequest) (domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Ollama chat API")

	body, err := p.client.Do(ctx, http.MethodPost, chatPath, toChatRequest(req, false))
	if err != nil {
		logger.Error("Ollama chat call failed", observability.Error(err))
		return nil, err
	}
	defer body.Close()

	return readJSON(body)
}

// Stream sends a streaming chat request and returns a stream of chunks.
func (p *Provider) Stream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Ollama streaming chat API")

	body, err := p.client.Do(ctx, http.MethodPost, chatPath, toChatRequest(req, true))
	if err != nil {
		logger.Error("Ollama stream call failed", observability.Error(err))
		return nil, err
	}

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)
		defer body.Close()

		decodeStream(ctx, body, chunks)
	}()

	return chunks, nil
}

// Models returns the /api/tags listing verbatim.
func (p *Provider) Models(ctx context.Context) (domain.ChatResponse, error) {
	body, err := p.client.Do(ctx, http.MethodGet, tagsPath, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return readJSON(body)
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported reports whether model looks like a locally served model:
// tagged names ("gemma3:4b") and the llama family.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return strings.Contains(model, ":") || strings.Contains(strings.ToLower(model), "llama")
}

// decodeStream reads NDJSON records into chunks. Lines have no length cap.
// Blank and malformed lines are skipped; a record with done set ends the stream.
func decodeStream(ctx context.Context, body io.Reader, chunks chan<- domain.StreamChunk) {
	logger := observability.FromContext(ctx)

	emit := func(chunk domain.StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := bufio.NewReaderSize(body, 64<<10)

	skipped := 0
	for {
		raw, readErr := reader.ReadBytes('\n')

		if line := bytes.TrimSpace(raw); len(line) > 0 {
			var record chatRecord
			if err := json.Unmarshal(line, &record); err != nil {
				skipped++
			} else if !relayRecord(record, emit) {
				return
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return
			}
			emit(domain.StreamChunk{Delta: "", Done: false, Error: fmt.Errorf("stream read failed: %w", readErr)})
			return
		}
	}

	if skipped > 0 {
		logger.Warn("skipped malformed stream lines", observability.Int("lines", skipped))
	}

	emit(domain.StreamChunk{Delta: "", Done: true, Error: nil})
}

// relayRecord emits one decoded record and reports whether to keep reading.
func relayRecord(record chatRecord, emit func(domain.StreamChunk) bool) bool {
	if record.Error != "" {
		emit(domain.StreamChunk{Delta: "", Done: false, Error: fmt.Errorf("ollama: %s", record.Error)})
		return false
	}

	if !emit(domain.StreamChunk{Delta: record.fragment(), Done: record.Done, Error: nil}) {
		return false
	}

	return !record.Done
}

func readJSON(body io.Reader) (domain.ChatResponse, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !json.Valid(raw) {
		return nil, errors.New("upstream returned invalid JSON")
	}

	return domain.ChatResponse(raw), nil
}

func toChatRequest(req *domain.ChatRequest, stream bool) chatRequest {
	messages := req.Messages
	if messages == nil {
		messages = []domain.Message{}
	}

	return chatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
		Options:  req.Options,
	}
}
