package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/voxrelay/internal/provider/ollama"
	"github.com/davidbz/voxrelay/internal/provider/openai"
)

// Config represents the relay configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Chat   ChatConfig
	Ollama ollama.Config
	OpenAI openai.Config
	Speech SpeechConfig
	Audio  AudioConfig
	Redis  RedisConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8000"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"0"` // 0 keeps token streams open
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"*"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// ChatConfig contains chat relay defaults.
type ChatConfig struct {
	DefaultProvider    string  `env:"CHAT_DEFAULT_PROVIDER"    envDefault:"ollama"`
	DefaultTemperature float64 `env:"CHAT_DEFAULT_TEMPERATURE" envDefault:"0.7"`
	EchoEnabled        bool    `env:"ECHO_PROVIDER_ENABLED"    envDefault:"false"`
}

// SpeechConfig contains host speech engine settings.
type SpeechConfig struct {
	Binary          string  `env:"TTS_BINARY"`
	DefaultRate     int     `env:"TTS_DEFAULT_RATE"     envDefault:"150"`
	DefaultVolume   float64 `env:"TTS_DEFAULT_VOLUME"   envDefault:"0.9"`
	DefaultLanguage string  `env:"TTS_DEFAULT_LANGUAGE" envDefault:"en"`
	QueueSize       int     `env:"TTS_QUEUE_SIZE"       envDefault:"16"`
	Engine          string  `env:"TTS_ENGINE"           envDefault:"espeak"` // espeak | tone
}

// AudioConfig controls where rendered audio lands and how long it is kept.
type AudioConfig struct {
	Dir           string        `env:"AUDIO_DIR"`
	Retention     time.Duration `env:"AUDIO_RETENTION"      envDefault:"15m"`
	SweepInterval time.Duration `env:"AUDIO_SWEEP_INTERVAL" envDefault:"1m"`
}

// RedisConfig enables the shared audio retention ledger when Addr is set.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"         envDefault:"0"`
	LedgerKey string `env:"REDIS_LEDGER_KEY" envDefault:"voxrelay:audio"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*ChatConfig
	Ollama *ollama.Config
	OpenAI *openai.Config
	*SpeechConfig
	*AudioConfig
	*RedisConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	cfg.Ollama.BaseURL = NormalizeBaseURL(cfg.Ollama.BaseURL)
	cfg.Chat.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.Chat.DefaultProvider))
	cfg.Speech.Engine = strings.ToLower(strings.TrimSpace(cfg.Speech.Engine))

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Chat,
		&cfg.Ollama,
		&cfg.OpenAI,
		&cfg.Speech,
		&cfg.Audio,
		&cfg.Redis,
	}
}
