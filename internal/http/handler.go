package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

const providerHeader = "X-Provider"

// Detail prefixes of speech failures, as clients match on them.
const (
	ttsErrorPrefix     = "TTS Error: "
	voicesErrorPrefix  = "Error getting voices: "
	ttsTestErrorPrefix = "TTS Test Error: "
)

// Handler handles HTTP requests.
type Handler struct {
	relay  *domain.ChatRelay
	speech *domain.SpeechService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(relay *domain.ChatRelay, speech *domain.SpeechService) *Handler {
	return &Handler{
		relay:  relay,
		speech: speech,
	}
}

// HandleHealth reports liveness and the default model.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  h.relay.DefaultModel(),
	})
}

// HandleModels passes the upstream model listing through.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	models, err := h.relay.Models(ctx, r.Header.Get(providerHeader))
	if err != nil {
		observability.FromContext(ctx).Error("listing models failed", observability.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeRaw(w, models)
}

// HandleChat relays a conversation without streaming and passes the upstream body through.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeChatRequest(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.String("model", req.Model),
		observability.Int("messages", len(req.Messages)),
	)

	response, err := h.relay.Complete(ctx, r.Header.Get(providerHeader), req)
	if err != nil {
		logger.Error("chat failed", observability.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeRaw(w, response)
}

// HandleChatStream relays a conversation and writes raw text fragments as they
// arrive. Status 200 is committed before the upstream is contacted, so later
// failures are reported in-band by the relay.
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeChatRequest(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("stream request started",
		observability.String("model", req.Model),
		observability.Int("messages", len(req.Messages)),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	written := 0
	for fragment := range h.relay.Stream(ctx, r.Header.Get(providerHeader), req) {
		n, err := w.Write(fragment)
		written += n
		if err != nil {
			logger.Info("client went away", observability.Error(err))
			// Keep draining so the relay goroutine can finish.
			continue
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logger.Debug("flush failed", observability.Error(err))
		}
	}

	logger.Info("stream request completed", observability.Int("bytes", written))
}

// HandleTTS renders the requested text and returns the WAV file.
func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	audio, err := h.speech.Synthesize(ctx, &req)
	if err != nil {
		observability.FromContext(ctx).Error("speech synthesis failed", observability.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyText) {
			status = http.StatusBadRequest
		}
		writeDetail(w, status, ttsErrorPrefix+err.Error())
		return
	}

	writeAudio(w, audio)
}

// HandleVoices lists the voices installed on the host.
func (h *Handler) HandleVoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	voices, err := h.speech.Voices(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("listing voices failed", observability.Error(err))
		writeDetail(w, http.StatusInternalServerError, voicesErrorPrefix+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string][]domain.VoiceDescriptor{"voices": voices})
}

// HandleTTSTest renders the canned self-test phrase.
func (h *Handler) HandleTTSTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	audio, err := h.speech.SelfTest(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("speech self-test failed", observability.Error(err))
		writeDetail(w, http.StatusInternalServerError, ttsTestErrorPrefix+err.Error())
		return
	}

	writeAudio(w, audio)
}

func decodeChatRequest(r *http.Request) (*domain.ChatRequest, error) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return &req, nil
}

func writeAudio(w http.ResponseWriter, audio *domain.Audio) {
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": audio.Filename,
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already written; nothing left to report on failure.
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body of the form {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
