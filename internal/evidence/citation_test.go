package evidence

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitationFormatter_Cite(t *testing.T) {
	formatter := NewCitationFormatter(DefaultTrustTables(), testConfig())

	var src Source
	require.NoError(t, json.Unmarshal([]byte(`{
		"content": "Integrated pest management for smallholders.",
		"metadata": {"filename": "FAO_crop_protection_guide.pdf", "page": 42},
		"similarity_score": 0.91
	}`), &src))

	c := formatter.Cite(1, src)
	assert.Equal(t, 1, c.Number)
	assert.Equal(t, "FAO", c.Organization)
	assert.Equal(t, "Fao Crop Protection Guide", c.Title)
	assert.Equal(t, "FAO_crop_protection_guide.pdf", c.Filename)
	assert.Equal(t, "42", c.Page)
	assert.Equal(t, Tier1, c.QualityTier)
	assert.Equal(t, 0.91, c.RelevanceScore)
	assert.Equal(t, "[1] FAO – Fao Crop Protection Guide (p. 42)", c.Display)
	assert.Contains(t, c.Display, "(p. 42)")
}

func TestCitationFormatter_Locator(t *testing.T) {
	formatter := NewCitationFormatter(DefaultTrustTables(), testConfig())

	tests := []struct {
		name     string
		meta     SourceMetadata
		expected string
		display  string
	}{
		{
			name:     "url wins",
			meta:     SourceMetadata{Filename: "agritex-maize-guide.pdf", URL: "https://example.org/maize.pdf", SourcePath: "/data/maize.pdf"},
			expected: "https://example.org/maize.pdf",
			display:  "[2] AGRITEX – Agritex Maize Guide [PDF: https://example.org/maize.pdf]",
		},
		{
			name:     "source path becomes file link",
			meta:     SourceMetadata{Filename: "usaid_seed_systems.pdf", SourcePath: "/data/usaid_seed_systems.pdf", Page: "3"},
			expected: "file:///data/usaid_seed_systems.pdf",
			display:  "[2] USAID – Usaid Seed Systems (p. 3) [PDF: file:///data/usaid_seed_systems.pdf]",
		},
		{
			name:     "no locator",
			meta:     SourceMetadata{Filename: "wfp_food_security.pdf"},
			expected: "",
			display:  "[2] WFP – Wfp Food Security",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := formatter.Cite(2, Source{Metadata: tt.meta})
			assert.Equal(t, tt.expected, c.Link)
			assert.Equal(t, tt.display, c.Display)
		})
	}
}

func TestCitationFormatter_Organization(t *testing.T) {
	formatter := NewCitationFormatter(DefaultTrustTables(), testConfig())

	tests := []struct {
		name     string
		src      Source
		expected string
		tier     QualityTier
	}{
		{"alias in content", Source{Content: "Published by the International Crops Research Institute."}, "ICRISAT", Tier1},
		{"first alias in table order", Source{Content: "A joint FAO and WFP report."}, "FAO", Tier1},
		{"marketing authority", Source{Metadata: SourceMetadata{Filename: "ama_grain_prices.pdf"}}, "AMA", Tier2},
		{"ministry", Source{Content: "Issued by the Government of Zimbabwe."}, "Zimbabwe Ministry", Tier3},
		{"filename with a year suffix", Source{Metadata: SourceMetadata{Filename: "FAO2021_maize_guide.pdf"}}, "FAO", Tier1},
		{"alias inside word is ignored", Source{Content: "Stalk borer damage is common in Panama disease trials."}, "Unknown Organization", Tier3},
		{"nothing known", Source{Content: "Mulch keeps soil moist."}, "Unknown Organization", Tier3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := formatter.Organization(tt.src)
			assert.Equal(t, tt.expected, org)
			assert.Equal(t, tt.tier, formatter.Tier(org))
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Unknown Document", titleFromFilename(unknownDocument))
	assert.Equal(t, "Maize Production Manual", titleFromFilename("docs/MAIZE-production_manual.pdf"))

	long := strings.Repeat("drought_tolerant_", 8) + "maize.pdf"
	title := titleFromFilename(long)
	assert.Len(t, []rune(title), maxTitleLength)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestCitationFormatter_Format(t *testing.T) {
	formatter := NewCitationFormatter(DefaultTrustTables(), testConfig())
	sources := harvestAgreement()

	report := formatter.Format(sources, true)
	require.Len(t, report.Sources, 2)
	assert.Equal(t, 2, report.TotalSources)
	assert.Equal(t, 1, report.Sources[0].Number)
	assert.Equal(t, 2, report.Sources[1].Number)
	require.NotNil(t, report.Confidence)

	withoutConfidence := formatter.Format(sources, false)
	assert.Nil(t, withoutConfidence.Confidence)

	empty := formatter.Format(nil, true)
	assert.Empty(t, empty.Sources)
	assert.Equal(t, RatingNoSources, empty.Confidence.Rating)

	raw, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sources":[]`)
}

func TestInlineCitations(t *testing.T) {
	assert.Equal(t, "Plant early. [1] [2] [3]", InlineCitations("Plant early.", 3))
	assert.Equal(t, "Plant early.", InlineCitations("Plant early.", 0))
}
