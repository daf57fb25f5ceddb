package anthropic

// Config contains Anthropic provider configuration.
type Config struct {
	APIKey           string `env:"ANTHROPIC_API_KEY"`
	BaseURL          string `env:"ANTHROPIC_BASE_URL"`
	MaxRetries       int    `env:"ANTHROPIC_MAX_RETRIES"        envDefault:"0"`
	DefaultMaxTokens int    `env:"ANTHROPIC_DEFAULT_MAX_TOKENS" envDefault:"1024"`
}
