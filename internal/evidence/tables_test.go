package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustTables_OverridesKeepOrder(t *testing.T) {
	tables, err := ParseTrustTables([]byte(`
geographic:
  - term: kenya
    score: 20
  - term: east africa
    score: 15
  - term: africa
    score: 10
recency: [10, 5]
`))
	require.NoError(t, err)

	require.Len(t, tables.Geographic, 3)
	assert.Equal(t, "kenya", tables.Geographic[0].Term)
	// untouched sections fall back to defaults
	assert.Equal(t, DefaultTrustTables().Authority, tables.Authority)
	assert.Equal(t, "Unknown Organization", tables.DefaultOrganization)

	model := NewAuthorityModel(tables, testConfig())
	assert.Equal(t, 50+20+10, model.Calculate("Farmers NGO", "Kenya", 2026))
	assert.Equal(t, 50+15+5, model.Calculate("Farmers NGO", "East Africa", 2025))
	assert.Equal(t, 50, model.Calculate("Farmers NGO", "Zimbabwe", 2024))
}

func TestParseTrustTables_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "authority: [unterminated"},
		{"score out of range", "authority:\n  - term: fao\n    score: 140\n"},
		{"unknown tier", "quality_tiers:\n  - tier: gold\n    terms: [fao]\n"},
		{"topic without keywords", "topics:\n  - topic: harvest\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrustTables([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTrustTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust_tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_authority: 30\n"), 0o600))

	tables, err := LoadTrustTables(path)
	require.NoError(t, err)
	assert.Equal(t, 30, tables.DefaultAuthority)

	_, err = LoadTrustTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTrustTables_ShippedFile(t *testing.T) {
	tables, err := LoadTrustTables(filepath.Join("..", "..", "configs", "trust_tables.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTrustTables(), tables)
}

func TestDefaultTrustTables_Valid(t *testing.T) {
	assert.NoError(t, DefaultTrustTables().Validate())
}

func TestSourceMetadata_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected SourceMetadata
	}{
		{
			name:     "mixed value types",
			raw:      `{"filename": "x.pdf", "year": "2021", "page": 7, "organization": null, "geographic_scope": "Zimbabwe"}`,
			expected: SourceMetadata{Filename: "x.pdf", Year: 2021, Page: "7", GeographicScope: "Zimbabwe"},
		},
		{
			name:     "numeric year",
			raw:      `{"year": 2019, "url": "https://example.org/a.pdf"}`,
			expected: SourceMetadata{Year: 2019, URL: "https://example.org/a.pdf"},
		},
		{
			name:     "unparseable year is absent",
			raw:      `{"year": "circa 2010", "category": "crops"}`,
			expected: SourceMetadata{Category: "crops"},
		},
		{
			name:     "not an object",
			raw:      `"just a string"`,
			expected: SourceMetadata{},
		},
		{
			name:     "null",
			raw:      `null`,
			expected: SourceMetadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var meta SourceMetadata
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &meta))
			assert.Equal(t, tt.expected, meta)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.ConflictThreshold = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.HighSeverityThreshold = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.ModerateConfidenceAt = 90
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.DefaultAgreement = Agreement(1.5)
	assert.Error(t, bad.Validate())

	partial := Config{ConflictThreshold: 0.7}.WithDefaults()
	assert.Equal(t, 0.7, partial.ConflictThreshold)
	assert.Equal(t, 0.8, partial.HighSeverityThreshold)
	assert.Equal(t, "AGRITEX", partial.ExtensionService)
	require.NotNil(t, partial.DefaultAgreement)
	assert.Equal(t, 0.8, *partial.DefaultAgreement)
}

func TestConfig_ExplicitZeroAgreement(t *testing.T) {
	cfg := Config{ConflictThreshold: 0.7, DefaultAgreement: Agreement(0)}.WithDefaults()
	require.NoError(t, cfg.Validate())

	formatter := NewCitationFormatter(DefaultTrustTables(), cfg)
	assert.Equal(t, 0.0, formatter.DefaultAgreement())

	out := formatter.Format([]Source{{Metadata: SourceMetadata{Filename: "fao_maize.pdf"}}}, true)
	require.NotNil(t, out.Confidence)
	// tier1 40 + one source 5 + recency 15, no agreement points
	assert.Equal(t, 60.0, out.Confidence.Score)
}
