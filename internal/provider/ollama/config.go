package ollama

// Config contains local Ollama server configuration.
type Config struct {
	BaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
}
