package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/voxrelay/internal/audio"
	"github.com/davidbz/voxrelay/internal/config"
	"github.com/davidbz/voxrelay/internal/domain"
	httpapi "github.com/davidbz/voxrelay/internal/http"
	"github.com/davidbz/voxrelay/internal/http/middleware"
	"github.com/davidbz/voxrelay/internal/provider/echo"
	"github.com/davidbz/voxrelay/internal/provider/ollama"
	"github.com/davidbz/voxrelay/internal/provider/registry"
	"github.com/davidbz/voxrelay/internal/speech"
	"github.com/davidbz/voxrelay/internal/speech/tone"
)

var dispositionPattern = regexp.MustCompile(`^attachment; filename=(tts(?:_test)?_[0-9a-f]{32}\.wav)$`)

type fixture struct {
	routes   http.Handler
	audioDir string
}

type fixtureOptions struct {
	upstream http.HandlerFunc // nil leaves the upstream unreachable
	factory  domain.EngineFactory
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	ctx := context.Background()

	var upstreamURL string
	if opts.upstream != nil {
		upstream := httptest.NewServer(opts.upstream)
		t.Cleanup(upstream.Close)
		upstreamURL = upstream.URL
	} else {
		closed := httptest.NewServer(http.NotFoundHandler())
		closed.Close()
		upstreamURL = closed.URL
	}

	ollamaProvider, err := ollama.NewProvider(ollama.Config{BaseURL: upstreamURL, Model: "gemma3:4b", Timeout: 2})
	require.NoError(t, err)

	reg := registry.NewRegistry("ollama")
	require.NoError(t, reg.Register(ctx, ollamaProvider))
	require.NoError(t, reg.Register(ctx, echo.NewProvider()))

	relay := domain.NewChatRelay(reg, domain.RelayConfig{
		DefaultModel:   "gemma3:4b",
		DefaultOptions: domain.ChatOptions{"temperature": 0.7},
	})

	factory := opts.factory
	if factory == nil {
		factory = tone.NewFactory()
	}
	worker := speech.NewWorker(factory, 4)
	t.Cleanup(worker.Stop)

	audioDir := t.TempDir()
	store, err := audio.NewStore(audioDir, 0, audio.NewMemoryLedger(), nil)
	require.NoError(t, err)

	speechService := domain.NewSpeechService(worker, store, nil, domain.SpeechDefaults{
		Language: "en",
		Rate:     150,
		Volume:   0.9,
	})

	server := httpapi.NewServer(
		&config.ServerConfig{Port: 0},
		httpapi.NewHandler(relay, speechService),
		middleware.BuildMiddlewareChain(&config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         600,
		}),
	)

	return &fixture{routes: server.Routes(), audioDir: audioDir}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["detail"]
}

func requireWAV(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "audio/wav", w.Header().Get("Content-Type"))

	match := dispositionPattern.FindStringSubmatch(w.Header().Get("Content-Disposition"))
	require.NotNil(t, match, "unexpected disposition %q", w.Header().Get("Content-Disposition"))

	data := w.Body.Bytes()
	require.Greater(t, len(data), 44)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	return match[1]
}

const chatBody = `{"messages":[{"role":"user","content":"hi"}]}`

func TestHandleHealth(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","model":"gemma3:4b"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
	require.NotEmpty(t, w.Header().Get("X-Trace-Id"))
}

func TestHandleChatStream(t *testing.T) {
	t.Run("should write decoded fragments as raw text", func(t *testing.T) {
		var upstreamReq map[string]any
		f := newFixture(t, fixtureOptions{upstream: func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upstreamReq))
			_, _ = io.WriteString(w, "{\"message\":{\"content\":\"Hel\"}}\n"+
				"{\"message\":{\"content\":\"lo\"}}\n"+
				"{bad json}\n"+
				"{\"message\":{\"content\":\"\"}}\n")
		}})

		w := f.do(t, http.MethodPost, "/api/chat/stream", chatBody)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		require.Equal(t, "Hello", w.Body.String())
		require.Equal(t, "gemma3:4b", upstreamReq["model"])
		require.Equal(t, map[string]any{"temperature": 0.7}, upstreamReq["options"])
	})

	t.Run("should report unreachable upstream in-band", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/chat/stream", chatBody)

		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, strings.HasPrefix(w.Body.String(), "\n[SERVER ERROR]"), w.Body.String())
	})

	t.Run("should report upstream status failures in-band", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{upstream: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}})

		w := f.do(t, http.MethodPost, "/api/chat/stream", chatBody)

		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, strings.HasPrefix(w.Body.String(), "\n[SERVER ERROR] "))
		require.Contains(t, w.Body.String(), "404")
	})

	t.Run("should route by explicit provider header", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/chat/stream", chatBody, "X-Provider", "echo")

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "[user]: hi", w.Body.String())
	})

	t.Run("should reject undecodable bodies", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/chat/stream", "{")

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, detail(t, w), "invalid request body")
	})

	t.Run("should reject unknown roles before streaming", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/chat/stream",
			`{"messages":[{"role":"tool","content":"hi"}]}`, "X-Provider", "echo")

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, detail(t, w), "invalid message role")
	})
}

func TestHandleChat(t *testing.T) {
	t.Run("should pass the upstream body through", func(t *testing.T) {
		body := `{"model":"gemma3:4b","message":{"role":"assistant","content":"Hi"},"done":true}`
		f := newFixture(t, fixtureOptions{upstream: func(w http.ResponseWriter, r *http.Request) {
			var got map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			require.Equal(t, false, got["stream"])
			_, _ = io.WriteString(w, body)
		}})

		w := f.do(t, http.MethodPost, "/api/chat", chatBody)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.Equal(t, body, w.Body.String())
	})

	t.Run("should fail with detail on upstream error", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{upstream: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}})

		w := f.do(t, http.MethodPost, "/api/chat", chatBody)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Contains(t, detail(t, w), "upstream returned status 503")
	})

	t.Run("should fail with detail when upstream is unreachable", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/chat", chatBody)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotEmpty(t, detail(t, w))
	})

	t.Run("should reject unknown roles without contacting upstream", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{upstream: func(http.ResponseWriter, *http.Request) {
			t.Error("upstream must not be called")
		}})

		w := f.do(t, http.MethodPost, "/api/chat", `{"messages":[{"role":"developer","content":"hi"}]}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, detail(t, w), `invalid message role "developer"`)
	})
}

func TestHandleModels(t *testing.T) {
	t.Run("should pass the model list through", func(t *testing.T) {
		body := `{"models":[{"name":"gemma3:4b"}]}`
		f := newFixture(t, fixtureOptions{upstream: func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			_, _ = io.WriteString(w, body)
		}})

		w := f.do(t, http.MethodGet, "/api/models", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, body, w.Body.String())
	})

	t.Run("should fail with detail when upstream is unreachable", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodGet, "/api/models", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotEmpty(t, detail(t, w))
	})
}

func TestHandleTTS(t *testing.T) {
	t.Run("should return a wav attachment", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/tts", `{"text":"Hello there","language":"en","rate":200,"volume":1.5}`)

		filename := requireWAV(t, w)
		require.True(t, strings.HasPrefix(filename, "tts_"))
		require.FileExists(t, filepath.Join(f.audioDir, filename))
	})

	t.Run("should reject empty text", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodPost, "/api/tts", `{"text":"  "}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "TTS Error: text cannot be empty", detail(t, w))
	})

	t.Run("should prefix engine failures", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{factory: func(context.Context) (domain.SpeechEngine, error) {
			return nil, errors.New("espeak-ng not found")
		}})

		w := f.do(t, http.MethodPost, "/api/tts", `{"text":"hello"}`)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.True(t, strings.HasPrefix(detail(t, w), "TTS Error: "))
		require.Contains(t, detail(t, w), "espeak-ng not found")
	})
}

func TestHandleTTSTest(t *testing.T) {
	t.Run("should produce distinct playable files on every call", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		first := requireWAV(t, f.do(t, http.MethodPost, "/api/tts/test", ""))
		second := requireWAV(t, f.do(t, http.MethodPost, "/api/tts/test", ""))

		require.NotEqual(t, first, second)
		for _, name := range []string{first, second} {
			require.True(t, strings.HasPrefix(name, "tts_test_"))
			info, err := os.Stat(filepath.Join(f.audioDir, name))
			require.NoError(t, err)
			require.Positive(t, info.Size())
		}
	})

	t.Run("should prefix failures", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{factory: func(context.Context) (domain.SpeechEngine, error) {
			return nil, errors.New("no audio device")
		}})

		w := f.do(t, http.MethodPost, "/api/tts/test", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.True(t, strings.HasPrefix(detail(t, w), "TTS Test Error: "))
	})
}

func TestHandleVoices(t *testing.T) {
	t.Run("should list host voices", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})

		w := f.do(t, http.MethodGet, "/api/tts/voices", "")

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Voices []domain.VoiceDescriptor `json:"voices"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, tone.DefaultVoices(), body.Voices)
	})

	t.Run("should return an empty list when the host has none", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{factory: func(context.Context) (domain.SpeechEngine, error) {
			return tone.New([]domain.VoiceDescriptor{}), nil
		}})

		w := f.do(t, http.MethodGet, "/api/tts/voices", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"voices":[]}`, w.Body.String())
	})

	t.Run("should prefix failures", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{factory: func(context.Context) (domain.SpeechEngine, error) {
			return nil, errors.New("espeak-ng not found")
		}})

		w := f.do(t, http.MethodGet, "/api/tts/voices", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.True(t, strings.HasPrefix(detail(t, w), "Error getting voices: "))
	})
}

func TestRoutes_CORS(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodOptions, "/api/tts", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPost,
	)

	require.Contains(t, []int{http.StatusOK, http.StatusNoContent}, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_MethodMismatch(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/api/chat", "")

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
