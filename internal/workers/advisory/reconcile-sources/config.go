package reconcilesources

import "time"

type Config struct {
	Timeout    time.Duration
	MinSources int
	CacheTTL   time.Duration
	// CachePrefix namespaces keys so a trust-table change can start cold.
	CachePrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     5 * time.Second,
		MinSources:  2,
		CacheTTL:    time.Hour,
		CachePrefix: "evidence:reconcile:v1:",
	}
}
