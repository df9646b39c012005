package openai

// Config contains OpenAI-compatible provider configuration.
// All fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey(); the provider is disabled when empty
//   - BaseURL: Maps to option.WithBaseURL() (OpenRouter by default)
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://openrouter.ai/api/v1"`
	Timeout    int    `env:"OPENAI_TIMEOUT"     envDefault:"30"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"0"`
}
