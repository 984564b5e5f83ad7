package evidence

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTitleLength  = 80
	unknownDocument = "Unknown Document"
)

// CitationFormatter renders display citations and the overall confidence
// rating for an answer. Its quality tiers are a coarse badge, kept apart
// from the AuthorityModel on purpose.
type CitationFormatter struct {
	tables *TrustTables
	cfg    Config
}

func NewCitationFormatter(tables *TrustTables, cfg Config) *CitationFormatter {
	if tables == nil {
		tables = DefaultTrustTables()
	}
	return &CitationFormatter{tables: tables, cfg: cfg.WithDefaults()}
}

// DefaultAgreement is the agreement assumed when callers have no measure.
func (f *CitationFormatter) DefaultAgreement() float64 { return f.cfg.agreement() }

func (f *CitationFormatter) Format(sources []Source, includeConfidence bool) *CitationReport {
	citations := make([]Citation, 0, len(sources))
	for i, src := range sources {
		citations = append(citations, f.Cite(i+1, src))
	}

	report := &CitationReport{
		Sources:      citations,
		TotalSources: len(sources),
	}
	if includeConfidence {
		confidence := f.ConfidenceScore(sources, f.cfg.agreement())
		report.Confidence = &confidence
	}
	return report
}

// Cite builds the citation for one source; number is 1-based.
func (f *CitationFormatter) Cite(number int, src Source) Citation {
	meta := src.Metadata
	filename := meta.Filename
	if filename == "" {
		filename = unknownDocument
	}

	organization := f.Organization(src)
	c := Citation{
		Number:         number,
		Organization:   organization,
		Title:          titleFromFilename(filename),
		Filename:       filename,
		Link:           locator(meta),
		Page:           meta.Page,
		RelevanceScore: src.SimilarityScore,
		QualityTier:    f.Tier(organization),
	}

	var b strings.Builder
	b.WriteString("[" + strconv.Itoa(number) + "] " + c.Organization + " – " + c.Title)
	if c.Page != "" {
		b.WriteString(" (p. " + c.Page + ")")
	}
	if c.Link != "" {
		b.WriteString(" [PDF: " + c.Link + "]")
	}
	c.Display = b.String()
	return c
}

// Organization resolves the publisher from the filename and content.
func (f *CitationFormatter) Organization(src Source) string {
	text := newTermText(src.Metadata.Filename, src.Content)
	for _, org := range f.tables.Organizations {
		for _, alias := range org.Aliases {
			if text.has(alias) {
				return org.Name
			}
		}
	}
	return f.tables.DefaultOrganization
}

func (f *CitationFormatter) Tier(organization string) QualityTier {
	text := newTermText(organization)
	for _, tier := range f.tables.QualityTiers {
		for _, term := range tier.Terms {
			if text.has(term) {
				return tier.Tier
			}
		}
	}
	return f.tables.DefaultTier
}

// InlineCitations appends " [1] [2] ..." markers for n sources.
func InlineCitations(text string, n int) string {
	if n <= 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	for i := 1; i <= n; i++ {
		b.WriteString(" [" + strconv.Itoa(i) + "]")
	}
	return b.String()
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)

	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	title := strings.Join(words, " ")

	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}

func locator(meta SourceMetadata) string {
	if meta.URL != "" {
		return meta.URL
	}
	if meta.SourcePath != "" {
		return "file://" + meta.SourcePath
	}
	return ""
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
