package generateanswer

import "time"

type Config struct {
	GenAIBaseURL string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	MaxTokens    int
	Temperature  float64
	// ExtensionService is named in the prompt for locally-specific advice.
	ExtensionService string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          60 * time.Second,
		MaxRetries:       2,
		MaxTokens:        1024,
		Temperature:      0.2,
		ExtensionService: "AGRITEX",
	}
}
