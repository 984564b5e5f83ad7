package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(topic Topic, text, sentence, org string, authority int) ExtractedRecommendation {
	return ExtractedRecommendation{
		Text:           text,
		Topic:          topic,
		FullSentence:   sentence,
		Source:         org + ".pdf",
		Organization:   org,
		AuthorityScore: authority,
	}
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 6.0/9.0, jaccard(
		"plant maize from October to early November",
		"plant maize from mid November to early December",
	), 1e-9)
	assert.Equal(t, 1.0, jaccard("Spray Weekly", "spray weekly"))
	assert.Equal(t, 0.0, jaccard("", ""))
	assert.Equal(t, 0.0, jaccard("store grain", "plant early"))
}

func TestClassifyConflict(t *testing.T) {
	tests := []struct {
		name     string
		s1, s2   string
		expected ConflictType
		ok       bool
	}{
		{"timing in both", "Plant in October", "Plant after the first rains", ConflictTiming, true},
		{"timing outranks negation", "Do not plant before November", "Plant in October", ConflictTiming, true},
		{"one side negated", "Spray weekly", "Do not spray weekly", ConflictRecommendationVsWarning, true},
		{"both negated", "Never burn residues", "Avoid burning residues", "", false},
		{"opposite quantities", "Increase the nitrogen rate", "Reduce the nitrogen rate", ConflictQuantity, true},
		{"opposite quantities reversed", "Use less seed", "Use more seed", ConflictQuantity, true},
		{"method in either", "Use drip lines", "Use furrows", ConflictMethod, true},
		{"no indicator", "Use certified seed", "Use certified seed", "", false},
		{"may is not a month", "Farmers may plant now", "Farmers may plant later", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := classifyConflict(tt.s1, tt.s2)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestConflictDetector_Detect(t *testing.T) {
	detector := NewConflictDetector(testConfig())

	t.Run("single recommendation per topic never conflicts", func(t *testing.T) {
		recs := []ExtractedRecommendation{
			rec(TopicPlantingTime, "plant maize in October", "Plant maize in October", "FAO", 90),
			rec(TopicHarvest, "plant maize in October", "Plant maize in October", "AGRITEX", 85),
		}
		assert.Empty(t, detector.Detect(recs))
	})

	t.Run("similarity at threshold is not a conflict", func(t *testing.T) {
		recs := []ExtractedRecommendation{
			rec(TopicPestControl, "spray maize with dimethoate", "Spray maize with dimethoate", "FAO", 90),
			rec(TopicPestControl, "spray maize with carbaryl", "Spray maize with carbaryl", "AGRITEX", 85),
		}
		assert.Empty(t, detector.Detect(recs))
	})

	t.Run("severity follows similarity", func(t *testing.T) {
		recs := []ExtractedRecommendation{
			rec(TopicPestControl, "spray maize with dimethoate to control aphids", "Farmers should spray maize with dimethoate to control aphids", "Commercial", 40),
			rec(TopicPestControl, "spray maize with dimethoate to control", "Do not spray maize with dimethoate to control aphids", "AGRITEX", 100),
			rec(TopicPlantingTime, "plant maize from October to early November", "Farmers should plant maize from October to early November", "AGRITEX", 100),
			rec(TopicPlantingTime, "plant maize from mid November to early December", "Farmers should plant maize from mid November to early December", "USAID", 80),
		}

		conflicts := detector.Detect(recs)
		require.Len(t, conflicts, 2)

		assert.Equal(t, TopicPestControl, conflicts[0].Topic)
		assert.Equal(t, ConflictRecommendationVsWarning, conflicts[0].ConflictType)
		assert.Equal(t, SeverityHigh, conflicts[0].Severity)

		assert.Equal(t, TopicPlantingTime, conflicts[1].Topic)
		assert.Equal(t, ConflictTiming, conflicts[1].ConflictType)
		assert.Equal(t, SeverityModerate, conflicts[1].Severity)

		for _, c := range conflicts {
			assert.Equal(t, c.Recommendation1.Topic, c.Recommendation2.Topic)
		}
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		cfg := testConfig()
		cfg.ConflictThreshold = 0.5
		cfg.HighSeverityThreshold = 0.9
		loose := NewConflictDetector(cfg)

		recs := []ExtractedRecommendation{
			rec(TopicPestControl, "spray maize with dimethoate", "Spray maize with dimethoate", "FAO", 90),
			rec(TopicPestControl, "spray maize with carbaryl", "Spray maize with carbaryl", "AGRITEX", 85),
		}
		conflicts := loose.Detect(recs)
		require.Len(t, conflicts, 1)
		assert.Equal(t, ConflictMethod, conflicts[0].ConflictType)
		assert.Equal(t, SeverityModerate, conflicts[0].Severity)
	})
}

func TestConflictDetector_Display(t *testing.T) {
	detector := NewConflictDetector(testConfig())

	higher := detector.display(Conflict{
		Topic:           TopicPlantingTime,
		Recommendation1: rec(TopicPlantingTime, "a", "Plant in October", "AGRITEX", 100),
		Recommendation2: rec(TopicPlantingTime, "b", "Plant in December", "USAID", 80),
	})
	assert.Contains(t, higher, "**Source Disagreement on Planting Time**")
	assert.Contains(t, higher, "Prioritize AGRITEX guidance")
	assert.Contains(t, higher, "Consult local AGRITEX for your specific conditions.")

	equal := detector.display(Conflict{
		Topic:           TopicHarvest,
		Recommendation1: rec(TopicHarvest, "a", "Harvest early", "FAO", 90),
		Recommendation2: rec(TopicHarvest, "b", "Harvest late", "IFPRI", 90),
	})
	assert.Contains(t, equal, "Both sources have equal authority")
}
