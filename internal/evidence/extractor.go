package evidence

import (
	"regexp"
	"strings"
)

const sentenceTerminators = ".!?"

// recommendationPatterns capture the words following a verb of advice,
// obligation or prohibition. Group 1 is the recommendation body.
var recommendationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bshould\s+(\w+(?:\s+\w+){1,8})`),
	regexp.MustCompile(`(?i)\brecommended?\s+to\s+(\w+(?:\s+\w+){1,8})`),
	regexp.MustCompile(`(?i)\badvise[ds]?\s+to\s+(\w+(?:\s+\w+){1,8})`),
	regexp.MustCompile(`(?i)\bsuggests?\s+(\w+(?:\s+\w+){1,8})`),
	regexp.MustCompile(`(?i)\bplant(?:ing)?\s+(\w+(?:\s+\w+){1,5})\s+(?:in|during|between)\b`),
	regexp.MustCompile(`(?i)\bapply\s+(\w+(?:\s+\w+){1,5})`),
	regexp.MustCompile(`(?i)\buse\s+(\w+(?:\s+\w+){1,5})`),
	regexp.MustCompile(`(?i)\bavoid\s+(\w+(?:\s+\w+){1,5})`),
	regexp.MustCompile(`(?i)\b(?:do not|don't)\s+(\w+(?:\s+\w+){1,5})`),
}

// Extractor pulls recommendation phrases out of free text and tags each
// with a topic.
type Extractor struct {
	topics []TopicKeywords
}

func NewExtractor(tables *TrustTables) *Extractor {
	if tables == nil {
		tables = DefaultTrustTables()
	}
	return &Extractor{topics: tables.Topics}
}

// Extract returns recommendations in pattern order, then text order. Only
// Text, Topic, Context and FullSentence are set.
func (e *Extractor) Extract(text string) []ExtractedRecommendation {
	var recs []ExtractedRecommendation
	for _, re := range recommendationPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			body := strings.TrimSpace(text[m[2]:m[3]])
			recs = append(recs, ExtractedRecommendation{
				Text:         body,
				Topic:        e.Classify(text + " " + body),
				Context:      text[m[0]:m[1]],
				FullSentence: sentenceAt(text, m[0]),
			})
		}
	}
	return recs
}

// ExtractFromSources runs Extract over every source and attaches source
// provenance and authority.
func (e *Extractor) ExtractFromSources(sources []Source, authority *AuthorityModel) []ExtractedRecommendation {
	all := make([]ExtractedRecommendation, 0)
	for i, src := range sources {
		filename := src.Metadata.Filename
		if filename == "" {
			filename = "Unknown"
		}
		organization := src.Metadata.Organization
		if organization == "" {
			organization = "Unknown"
		}
		score := authority.ForSource(src.Metadata)

		for _, rec := range e.Extract(src.Content) {
			rec.Source = filename
			rec.Organization = organization
			rec.SourceIndex = i
			rec.AuthorityScore = score
			all = append(all, rec)
		}
	}
	return all
}

// Classify picks the topic whose keyword set has the most distinct hits in
// text. Ties go to the earlier topic; no hits yields TopicGeneral.
func (e *Extractor) Classify(text string) Topic {
	lower := strings.ToLower(text)
	best, bestHits := TopicGeneral, 0
	for _, tk := range e.topics {
		hits := 0
		for _, kw := range tk.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = tk.Topic, hits
		}
	}
	return best
}

func sentenceAt(text string, pos int) string {
	start := strings.LastIndexAny(text[:pos], sentenceTerminators) + 1
	end := len(text)
	if i := strings.IndexAny(text[pos:], sentenceTerminators); i >= 0 {
		end = pos + i
	}
	return strings.Join(strings.Fields(text[start:end]), " ")
}
