package evidence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Scenario fixtures
// ==========================

func plantingDisagreement() []Source {
	return []Source{
		source("Farmers should plant maize from October to early November.", "agritex_maize_guide.pdf", "AGRITEX", "Zimbabwe", 2025),
		source("Farmers should plant maize from mid November to early December.", "usaid_maize_brief.pdf", "USAID", "Africa", 2019),
		source("Farmers should wait for 50mm of rainfall before planting maize.", "icrisat_rainfall.pdf", "ICRISAT", "Global", 2019),
	}
}

func harvestAgreement() []Source {
	text := "Maize should be harvested at physiological maturity with 12 to 13 percent moisture content."
	return []Source{
		source(text, "icrisat_harvest.pdf", "ICRISAT", "", 0),
		source(text, "agritex_postharvest.pdf", "AGRITEX", "", 0),
	}
}

func pesticideWarning() []Source {
	return []Source{
		source("Farmers should spray maize with dimethoate to control aphids.", "agrodealer_leaflet.pdf", "Commercial agro-dealer", "", 0),
		source("Do not spray maize with dimethoate to control aphids.", "agritex_ipm_notice.pdf", "AGRITEX", "Zimbabwe", 0),
	}
}

// ==========================
// Reconcile
// ==========================

func TestReconciler_TimingDisagreement(t *testing.T) {
	reconciler := NewReconciler(DefaultTrustTables(), testConfig())

	report := reconciler.Reconcile(plantingDisagreement(), "When should I plant maize?")

	assert.True(t, report.HasConflicts)
	assert.Equal(t, 3, report.TotalSources)
	assert.Equal(t, 3, report.TotalRecommendations)
	assert.GreaterOrEqual(t, report.ConflictsFound, 1)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, ConflictTiming, report.Conflicts[0].ConflictType)
	assert.Equal(t, SeverityModerate, report.Conflicts[0].Severity)
	assert.Equal(t, "agritex_maize_guide.pdf", report.Conflicts[0].Recommendation1.Source)
	assert.Equal(t, "usaid_maize_brief.pdf", report.Conflicts[0].Recommendation2.Source)

	require.Len(t, report.ConsensusRecommendations, 1)
	entry := report.ConsensusRecommendations[0]
	assert.Equal(t, TopicPlantingTime, entry.Topic)
	assert.Equal(t, ConsensusModerate, entry.Confidence)
	assert.Equal(t, 3, entry.SupportingSources)
	assert.NotEmpty(t, entry.Note)
	// only the two most authoritative positions are synthesized
	assert.Equal(t, "Synthesized from 2 sources", entry.Source)
	// AGRITEX 100 and ICRISAT 95 are the two most authoritative
	assert.Equal(t, 97.5, entry.AuthorityScore)
	assert.Contains(t, entry.Recommendation, "agritex_maize_guide.pdf (authority: 100) recommends: plant maize from October to early November.")
	assert.Contains(t, entry.Recommendation, "However, icrisat_rainfall.pdf suggests: wait for 50mm of rainfall before planting maize.")
	assert.Contains(t, entry.Recommendation, "Consider local conditions")

	assert.Equal(t, "Found 1 disagreement(s) across sources (0 high severity, 1 moderate). Balanced recommendations provided based on source authority and local relevance.", report.Summary)
}

func TestReconciler_Agreement(t *testing.T) {
	reconciler := NewReconciler(DefaultTrustTables(), testConfig())

	report := reconciler.Reconcile(harvestAgreement(), "When is maize ready to harvest?")

	assert.False(t, report.HasConflicts)
	assert.Equal(t, 0, report.ConflictsFound)
	assert.Empty(t, report.Conflicts)
	require.Len(t, report.ConsensusRecommendations, 1)

	entry := report.ConsensusRecommendations[0]
	assert.Equal(t, TopicHarvest, entry.Topic)
	assert.Equal(t, ConsensusHigh, entry.Confidence)
	assert.Equal(t, 2, entry.SupportingSources)
	assert.Equal(t, "icrisat_harvest.pdf", entry.Source)
	assert.Equal(t, 95.0, entry.AuthorityScore)
	assert.Empty(t, entry.Note)
	assert.Equal(t, "Maize should be harvested at physiological maturity with 12 to 13 percent moisture content", entry.Recommendation)
	assert.Equal(t, "All 2 sources are in agreement. Recommendations are consistent and reliable.", report.Summary)
}

func TestReconciler_RecommendationVsWarning(t *testing.T) {
	reconciler := NewReconciler(DefaultTrustTables(), testConfig())

	report := reconciler.Reconcile(pesticideWarning(), "Can I spray dimethoate on maize?")

	require.Len(t, report.Conflicts, 1)
	conflict := report.Conflicts[0]
	assert.Equal(t, ConflictRecommendationVsWarning, conflict.ConflictType)
	assert.Equal(t, SeverityHigh, conflict.Severity)
	assert.InDelta(t, 6.0/7.0, conflict.Similarity, 1e-9)
	assert.Equal(t, TopicPestControl, conflict.Topic)
	assert.Contains(t, conflict.Display, "Prioritize AGRITEX guidance")

	require.Len(t, report.ConsensusRecommendations, 1)
	entry := report.ConsensusRecommendations[0]
	assert.Equal(t, 70.0, entry.AuthorityScore)
	assert.Contains(t, entry.Recommendation, "agritex_ipm_notice.pdf (authority: 100) recommends: spray maize with dimethoate to control.")
	assert.Contains(t, report.Summary, "(1 high severity, 0 moderate)")
}

func TestReconciler_NoRecommendations(t *testing.T) {
	reconciler := NewReconciler(DefaultTrustTables(), testConfig())

	sources := []Source{source("Maize is a staple crop in Zimbabwe.", "overview.pdf", "FAO", "", 0)}
	report := reconciler.Reconcile(sources, "maize")

	assert.False(t, report.HasConflicts)
	assert.Empty(t, report.ConsensusRecommendations)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, "No specific recommendations extracted from sources", report.Message)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"consensus_recommendations":[]`)
	assert.Contains(t, string(raw), `"conflicts":[]`)
}

func TestReconciler_EmptyInput(t *testing.T) {
	reconciler := NewReconciler(nil, testConfig())

	report := reconciler.Reconcile(nil, "")
	assert.Equal(t, 0, report.TotalSources)
	assert.Equal(t, noRecommendationsMessage, report.Message)
}

func TestReconciler_Invariants(t *testing.T) {
	reconciler := NewReconciler(DefaultTrustTables(), testConfig())

	var mixed []Source
	mixed = append(mixed, plantingDisagreement()...)
	mixed = append(mixed, harvestAgreement()...)
	mixed = append(mixed, pesticideWarning()...)

	report := reconciler.Reconcile(mixed, "maize advice")

	topics := map[Topic]int{}
	for _, rec := range reconciler.extractor.ExtractFromSources(mixed, reconciler.Authority()) {
		topics[rec.Topic]++
	}
	assert.Len(t, report.ConsensusRecommendations, len(topics))

	for _, entry := range report.ConsensusRecommendations {
		assert.Equal(t, topics[entry.Topic], entry.SupportingSources, "topic %s", entry.Topic)
	}
	for _, c := range report.Conflicts {
		assert.Equal(t, c.Recommendation1.Topic, c.Recommendation2.Topic)
	}
	for i := 1; i < len(report.ConsensusRecommendations); i++ {
		assert.GreaterOrEqual(t,
			report.ConsensusRecommendations[i-1].AuthorityScore,
			report.ConsensusRecommendations[i].AuthorityScore)
	}
	assert.Equal(t, len(report.Conflicts), report.ConflictsFound)
}
