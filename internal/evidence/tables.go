package evidence

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Every table below is ordered: the first matching entry wins, and topic
// score ties go to the earlier topic.

type WeightedTerm struct {
	Term  string `yaml:"term"`
	Score int    `yaml:"score"`
}

type TopicKeywords struct {
	Topic    Topic    `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
}

type OrganizationAlias struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type TierTerms struct {
	Tier  QualityTier `yaml:"tier"`
	Terms []string    `yaml:"terms"`
}

type TrustTables struct {
	Authority           []WeightedTerm      `yaml:"authority"`
	DefaultAuthority    int                 `yaml:"default_authority"`
	Geographic          []WeightedTerm      `yaml:"geographic"`
	Recency             []int               `yaml:"recency"`
	Topics              []TopicKeywords     `yaml:"topics"`
	Organizations       []OrganizationAlias `yaml:"organizations"`
	DefaultOrganization string              `yaml:"default_organization"`
	QualityTiers        []TierTerms         `yaml:"quality_tiers"`
	DefaultTier         QualityTier         `yaml:"default_tier"`
}

func DefaultTrustTables() *TrustTables {
	return &TrustTables{
		Authority: []WeightedTerm{
			{"icrisat", 95},
			{"cgiar", 95},
			{"fao", 90},
			{"ifpri", 90},
			{"world bank", 85},
			{"agritex", 85},
			{"ama", 80},
			{"agricultural marketing authority", 80},
			{"timb", 80},
			{"university", 75},
			{"research station", 75},
			{"usaid", 70},
			{"ifad", 70},
			{"wfp", 65},
			{"ngo", 50},
			{"farmer group", 45},
			{"commercial", 40},
		},
		DefaultAuthority: 40,
		Geographic: []WeightedTerm{
			{"zimbabwe", 20},
			{"southern africa", 15},
			{"sadc", 15},
			{"africa", 10},
			{"sub-saharan africa", 10},
			{"global", 0},
		},
		Recency: []int{15, 12, 8, 5, 2},
		Topics: []TopicKeywords{
			{TopicPlantingTime, []string{"plant", "sow", "seeding", "planting time", "planting window", "planting season"}},
			{TopicFertilizer, []string{"fertilizer", "fertiliser", "nutrient", "npk", "manure", "compost"}},
			{TopicPestControl, []string{"pest", "disease", "insect", "fungus", "spray", "pesticide"}},
			{TopicIrrigation, []string{"water", "irrigation", "rainfall", "moisture", "drip"}},
			{TopicVariety, []string{"variety", "cultivar", "breed", "hybrid", "strain"}},
			{TopicSpacing, []string{"spacing", "density", "population", "plant per"}},
			{TopicHarvest, []string{"harvest", "reap", "mature", "maturity"}},
			{TopicStorage, []string{"storage", "store", "preserve", "keep"}},
		},
		Organizations: []OrganizationAlias{
			{"ICRISAT", []string{"icrisat", "international crops research"}},
			{"FAO", []string{"fao", "food and agriculture organization"}},
			{"World Bank", []string{"world bank", "wb"}},
			{"USAID", []string{"usaid", "us agency"}},
			{"IFAD", []string{"ifad", "international fund"}},
			{"WFP", []string{"wfp", "world food programme"}},
			{"CGIAR", []string{"cgiar", "consultative group"}},
			{"AGRITEX", []string{"agritex", "agricultural technical"}},
			{"AMA", []string{"ama", "agricultural marketing authority"}},
			{"Zimbabwe Ministry", []string{"ministry", "government of zimbabwe", "govt"}},
		},
		DefaultOrganization: "Unknown Organization",
		QualityTiers: []TierTerms{
			{Tier1, []string{"icrisat", "fao", "world bank", "cgiar", "ifpri"}},
			{Tier2, []string{"usaid", "ifad", "wfp", "agritex", "ama"}},
			{Tier3, []string{"ministry", "local", "farmer"}},
		},
		DefaultTier: Tier3,
	}
}

// LoadTrustTables reads a YAML override file. Sections missing from the file
// keep their built-in defaults.
func LoadTrustTables(path string) (*TrustTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust tables %s: %w", path, err)
	}
	return ParseTrustTables(data)
}

func ParseTrustTables(data []byte) (*TrustTables, error) {
	var override TrustTables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse trust tables: %w", err)
	}

	tables := DefaultTrustTables()
	if len(override.Authority) > 0 {
		tables.Authority = override.Authority
	}
	if override.DefaultAuthority > 0 {
		tables.DefaultAuthority = override.DefaultAuthority
	}
	if len(override.Geographic) > 0 {
		tables.Geographic = override.Geographic
	}
	if len(override.Recency) > 0 {
		tables.Recency = override.Recency
	}
	if len(override.Topics) > 0 {
		tables.Topics = override.Topics
	}
	if len(override.Organizations) > 0 {
		tables.Organizations = override.Organizations
	}
	if override.DefaultOrganization != "" {
		tables.DefaultOrganization = override.DefaultOrganization
	}
	if len(override.QualityTiers) > 0 {
		tables.QualityTiers = override.QualityTiers
	}
	if override.DefaultTier != "" {
		tables.DefaultTier = override.DefaultTier
	}

	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (t *TrustTables) Validate() error {
	for _, w := range append(append([]WeightedTerm{}, t.Authority...), t.Geographic...) {
		if strings.TrimSpace(w.Term) == "" {
			return fmt.Errorf("trust tables: empty term")
		}
		if w.Score < 0 || w.Score > 100 {
			return fmt.Errorf("trust tables: score %d for %q out of range", w.Score, w.Term)
		}
	}
	if t.DefaultAuthority < 0 || t.DefaultAuthority > 100 {
		return fmt.Errorf("trust tables: default_authority %d out of range", t.DefaultAuthority)
	}
	for _, tk := range t.Topics {
		if tk.Topic == "" || len(tk.Keywords) == 0 {
			return fmt.Errorf("trust tables: topic entries need a name and keywords")
		}
	}
	for _, tt := range append(append([]TierTerms{}, t.QualityTiers...), TierTerms{Tier: t.DefaultTier}) {
		switch tt.Tier {
		case Tier1, Tier2, Tier3:
		default:
			return fmt.Errorf("trust tables: unknown quality tier %q", tt.Tier)
		}
	}
	return nil
}

// normalize lowercases s and reduces every run of non-alphanumerics to one
// space, so "FAO_crop-guide.pdf" becomes "fao crop guide pdf".
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// termText is normalized text with a leading space. A term matches as a
// substring that starts a word, so "ngo" finds "NGOs" and "fao" finds
// "FAO2021_guide.pdf", but "ama" does not match inside "damage".
type termText string

func newTermText(parts ...string) termText {
	return termText(" " + normalize(strings.Join(parts, " ")))
}

func (t termText) has(term string) bool {
	n := normalize(term)
	if n == "" {
		return false
	}
	return strings.Contains(string(t), " "+n)
}

func firstWeighted(text termText, table []WeightedTerm) (int, bool) {
	for _, w := range table {
		if text.has(w.Term) {
			return w.Score, true
		}
	}
	return 0, false
}
