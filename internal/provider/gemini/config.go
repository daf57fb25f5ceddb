package gemini

// Config contains Google Gemini provider configuration.
type Config struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	BaseURL string `env:"GEMINI_BASE_URL"`
}
