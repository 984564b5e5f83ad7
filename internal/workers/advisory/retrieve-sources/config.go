package retrievesources

import "time"

type Config struct {
	Timeout        time.Duration
	Index          string
	TopK           int
	ScoreThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		Index:          "agri_documents",
		TopK:           5,
		ScoreThreshold: 0.5,
	}
}
