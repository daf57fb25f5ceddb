package openai

// Config contains OpenAI provider configuration.
// All fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//   - MaxRetries: Maps to option.WithMaxRetries()
//
// Retries default to zero: the fallback chain is the retry mechanism.
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://api.openai.com/v1"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"0"`
}
