package recordevidence

import "time"

type Config struct {
	Timeout       time.Duration
	AlertsEnabled bool
	TopicARN      string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
