package evidence

import (
	"fmt"
	"time"
)

// ConfidenceWeights splits the 100 confidence points across the scoring factors.
type ConfidenceWeights struct {
	Tier1        float64 `mapstructure:"tier1" yaml:"tier1"`
	Tier2        float64 `mapstructure:"tier2" yaml:"tier2"`
	Tier3        float64 `mapstructure:"tier3" yaml:"tier3"`
	PerSource    float64 `mapstructure:"per_source" yaml:"per_source"`
	QuantityCap  float64 `mapstructure:"quantity_cap" yaml:"quantity_cap"`
	Recency      float64 `mapstructure:"recency" yaml:"recency"`
	AgreementMax float64 `mapstructure:"agreement_max" yaml:"agreement_max"`
}

type Config struct {
	ConflictThreshold     float64           `mapstructure:"conflict_threshold"`
	HighSeverityThreshold float64           `mapstructure:"high_severity_threshold"`
	Confidence            ConfidenceWeights `mapstructure:"confidence"`
	HighConfidenceAt      float64           `mapstructure:"high_confidence_at"`
	ModerateConfidenceAt  float64           `mapstructure:"moderate_confidence_at"`
	// DefaultAgreement is nil when unset, so an explicit zero survives
	// WithDefaults.
	DefaultAgreement      *float64          `mapstructure:"default_agreement"`
	ExtensionService      string            `mapstructure:"extension_service"`
	// CurrentYear pins the recency reference year; zero uses the clock.
	CurrentYear           int               `mapstructure:"current_year"`
}

func DefaultConfig() Config {
	return Config{
		ConflictThreshold:     0.6,
		HighSeverityThreshold: 0.8,
		Confidence: ConfidenceWeights{
			Tier1:        40,
			Tier2:        30,
			Tier3:        20,
			PerSource:    5,
			QuantityCap:  20,
			Recency:      15,
			AgreementMax: 20,
		},
		HighConfidenceAt:     80,
		ModerateConfidenceAt: 60,
		DefaultAgreement:     Agreement(0.8),
		ExtensionService:     "AGRITEX",
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConflictThreshold == 0 {
		c.ConflictThreshold = d.ConflictThreshold
	}
	if c.HighSeverityThreshold == 0 {
		c.HighSeverityThreshold = d.HighSeverityThreshold
	}
	if c.Confidence == (ConfidenceWeights{}) {
		c.Confidence = d.Confidence
	}
	if c.HighConfidenceAt == 0 {
		c.HighConfidenceAt = d.HighConfidenceAt
	}
	if c.ModerateConfidenceAt == 0 {
		c.ModerateConfidenceAt = d.ModerateConfidenceAt
	}
	if c.DefaultAgreement == nil {
		c.DefaultAgreement = d.DefaultAgreement
	}
	if c.ExtensionService == "" {
		c.ExtensionService = d.ExtensionService
	}
	return c
}

func (c Config) Validate() error {
	if c.ConflictThreshold <= 0 || c.ConflictThreshold > 1 {
		return fmt.Errorf("conflict_threshold must be in (0,1], got %v", c.ConflictThreshold)
	}
	if c.HighSeverityThreshold < c.ConflictThreshold || c.HighSeverityThreshold > 1 {
		return fmt.Errorf("high_severity_threshold must be in [conflict_threshold,1], got %v", c.HighSeverityThreshold)
	}
	if c.ModerateConfidenceAt > c.HighConfidenceAt {
		return fmt.Errorf("moderate_confidence_at (%v) exceeds high_confidence_at (%v)", c.ModerateConfidenceAt, c.HighConfidenceAt)
	}
	if a := c.DefaultAgreement; a != nil && (*a < 0 || *a > 1) {
		return fmt.Errorf("default_agreement must be in [0,1], got %v", *a)
	}
	return nil
}

// Agreement returns a pointer to v for Config.DefaultAgreement.
func Agreement(v float64) *float64 { return &v }

func (c Config) agreement() float64 {
	if c.DefaultAgreement == nil {
		return *DefaultConfig().DefaultAgreement
	}
	return *c.DefaultAgreement
}

func (c Config) year() int {
	if c.CurrentYear > 0 {
		return c.CurrentYear
	}
	return time.Now().Year()
}
