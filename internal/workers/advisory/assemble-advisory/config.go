package assembleadvisory

import "time"

type Config struct {
	Timeout    time.Duration
	AppVersion string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
