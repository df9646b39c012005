package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/voxrelay/internal/observability"
)

// ServerErrorMarker prefixes the in-band error fragment written once a
// token stream has already committed its response headers.
const ServerErrorMarker = "[SERVER ERROR]"

// RelayConfig holds the defaults applied to incoming chat requests.
type RelayConfig struct {
	DefaultModel   string
	DefaultOptions ChatOptions
}

// ChatRelay forwards conversations to an upstream provider.
type ChatRelay struct {
	registry       ProviderRegistry
	defaultModel   string
	defaultOptions ChatOptions
}

// NewChatRelay creates a new chat relay (DI constructor).
func NewChatRelay(registry ProviderRegistry, cfg RelayConfig) *ChatRelay {
	return &ChatRelay{
		registry:       registry,
		defaultModel:   cfg.DefaultModel,
		defaultOptions: cfg.DefaultOptions,
	}
}

// DefaultModel returns the model used when a request names none.
func (r *ChatRelay) DefaultModel() string {
	return r.defaultModel
}

// Prepare returns a copy of req with the model and options defaulted.
// Message order is preserved exactly.
func (r *ChatRelay) Prepare(req *ChatRequest) *ChatRequest {
	prepared := &ChatRequest{
		Messages: make([]Message, len(req.Messages)),
		Model:    req.Model,
		Options:  req.Options,
	}
	copy(prepared.Messages, req.Messages)

	if prepared.Model == "" {
		prepared.Model = r.defaultModel
	}

	if len(prepared.Options) == 0 {
		prepared.Options = make(ChatOptions, len(r.defaultOptions))
		for k, v := range r.defaultOptions {
			prepared.Options[k] = v
		}
	}

	return prepared
}

// Complete performs one blocking upstream call and returns its body verbatim.
func (r *ChatRelay) Complete(
	ctx context.Context,
	providerName string,
	req *ChatRequest,
) (ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	prepared := r.Prepare(req)

	provider, err := r.resolve(ctx, providerName, prepared.Model)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	ctx = observability.WithModel(ctx, prepared.Model)
	observability.FromContext(ctx).Debug("relaying chat request",
		observability.Int("messages", len(prepared.Messages)))

	response, err := provider.Complete(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return response, nil
}

// Stream relays a conversation and returns its raw text fragments in upstream
// order. Empty fragments are suppressed. Any failure ends the stream with a
// single "\n[SERVER ERROR] ..." fragment. The channel is always closed.
func (r *ChatRelay) Stream(ctx context.Context, providerName string, req *ChatRequest) <-chan []byte {
	out := make(chan []byte)

	go func() {
		defer close(out)

		// Releases the provider goroutine when we stop reading early.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logger := observability.FromContext(ctx)

		fail := func(err error) {
			logger.Warn("chat stream failed", observability.Error(err))
			send(ctx, out, []byte(ErrorFragment(err)))
		}

		if req == nil {
			fail(errors.New("request cannot be nil"))
			return
		}

		prepared := r.Prepare(req)

		provider, err := r.resolve(ctx, providerName, prepared.Model)
		if err != nil {
			fail(err)
			return
		}

		ctx = observability.WithProvider(ctx, provider.Name())
		ctx = observability.WithModel(ctx, prepared.Model)
		logger = observability.FromContext(ctx)

		chunks, err := provider.Stream(ctx, prepared)
		if err != nil {
			fail(err)
			return
		}

		fragments := 0
		for chunk := range chunks {
			if chunk.Error != nil {
				fail(chunk.Error)
				return
			}

			if chunk.Delta != "" {
				if !send(ctx, out, []byte(chunk.Delta)) {
					logger.Info("chat stream abandoned by client", observability.Int("fragments", fragments))
					return
				}
				fragments++
			}

			if chunk.Done {
				break
			}
		}

		logger.Debug("chat stream completed", observability.Int("fragments", fragments))
	}()

	return out
}

// Models returns the upstream model listing of the named provider, or of the
// provider serving the default model.
func (r *ChatRelay) Models(ctx context.Context, providerName string) (ChatResponse, error) {
	provider, err := r.resolve(ctx, providerName, r.defaultModel)
	if err != nil {
		return nil, err
	}

	models, err := provider.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models failed: %w", err)
	}

	return models, nil
}

// ErrorFragment renders err as the in-band stream error marker.
func ErrorFragment(err error) string {
	return fmt.Sprintf("\n%s %s", ServerErrorMarker, err.Error())
}

func (r *ChatRelay) resolve(ctx context.Context, providerName, model string) (ChatProvider, error) {
	if providerName != "" {
		provider, err := r.registry.Get(ctx, providerName)
		if err != nil {
			return nil, fmt.Errorf("provider routing failed: %w", err)
		}
		return provider, nil
	}

	provider, err := r.registry.GetByModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("provider routing failed: %w", err)
	}
	return provider, nil
}

func send(ctx context.Context, out chan<- []byte, fragment []byte) bool {
	select {
	case out <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}
