package ollama

// Config contains Ollama provider configuration.
//   - BaseURL: upstream root, normalized by the config loader
//   - Model: default model for requests that name none
//   - Timeout: connect, response-header and between-lines idle bound (in seconds)
type Config struct {
	BaseURL string `env:"OLLAMA_HOST"    envDefault:"http://127.0.0.1:11434"`
	Model   string `env:"OLLAMA_MODEL"   envDefault:"gemma3:4b"`
	Timeout int    `env:"OLLAMA_TIMEOUT" envDefault:"30"`
}
