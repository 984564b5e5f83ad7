package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

// Indicator vocabularies. "may" is left out of the months because it is
// far more often the modal verb.
var (
	timingIndicator   = wordSet("january", "february", "march", "april", "june", "july", "august", "september", "october", "november", "december", "before", "after", "early", "late")
	negationIndicator = wordSet("avoid", "avoids", "avoiding", "do not", "don't", "don’t", "never", "not recommended")
	increaseIndicator = wordSet("more", "increase", "increases", "increased", "increasing")
	decreaseIndicator = wordSet("less", "reduce", "reduces", "reduced", "reducing", "decrease", "decreases", "decreased", "decreasing")
	methodIndicator   = wordSet("spray", "sprays", "spraying", "broadcast", "broadcasting", "band", "banding", "foliar", "drip", "flood", "flooding")
)

func wordSet(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// ConflictDetector flags recommendation pairs on the same topic whose
// phrasing overlaps strongly but whose sentences pull in different
// directions.
type ConflictDetector struct {
	threshold     float64
	highThreshold float64
	extension     string
}

func NewConflictDetector(cfg Config) *ConflictDetector {
	cfg = cfg.WithDefaults()
	return &ConflictDetector{
		threshold:     cfg.ConflictThreshold,
		highThreshold: cfg.HighSeverityThreshold,
		extension:     cfg.ExtensionService,
	}
}

// Detect compares every unordered pair inside each topic group. Topics are
// visited in order of first appearance.
func (d *ConflictDetector) Detect(recs []ExtractedRecommendation) []Conflict {
	conflicts := make([]Conflict, 0)
	topics, groups := groupByTopic(recs)

	for _, topic := range topics {
		group := groups[topic]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				r1, r2 := group[i], group[j]
				similarity := jaccard(r1.Text, r2.Text)
				if similarity <= d.threshold {
					continue
				}
				kind, ok := classifyConflict(r1.FullSentence, r2.FullSentence)
				if !ok {
					continue
				}

				severity := SeverityModerate
				if similarity > d.highThreshold {
					severity = SeverityHigh
				}
				c := Conflict{
					Topic:           topic,
					Recommendation1: r1,
					Recommendation2: r2,
					ConflictType:    kind,
					Severity:        severity,
					Similarity:      similarity,
				}
				c.Display = d.display(c)
				conflicts = append(conflicts, c)
			}
		}
	}
	return conflicts
}

// classifyConflict applies the indicator rules in priority order.
func classifyConflict(s1, s2 string) (ConflictType, bool) {
	if timingIndicator.MatchString(s1) && timingIndicator.MatchString(s2) {
		return ConflictTiming, true
	}
	if negationIndicator.MatchString(s1) != negationIndicator.MatchString(s2) {
		return ConflictRecommendationVsWarning, true
	}
	if (increaseIndicator.MatchString(s1) && decreaseIndicator.MatchString(s2)) ||
		(decreaseIndicator.MatchString(s1) && increaseIndicator.MatchString(s2)) {
		return ConflictQuantity, true
	}
	if methodIndicator.MatchString(s1) || methodIndicator.MatchString(s2) {
		return ConflictMethod, true
	}
	return "", false
}

// jaccard is the word-set overlap of two phrases, case-insensitive.
func jaccard(a, b string) float64 {
	setA := wordsOf(a)
	setB := wordsOf(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

func wordsOf(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func groupByTopic(recs []ExtractedRecommendation) ([]Topic, map[Topic][]ExtractedRecommendation) {
	var order []Topic
	groups := make(map[Topic][]ExtractedRecommendation)
	for _, r := range recs {
		if _, seen := groups[r.Topic]; !seen {
			order = append(order, r.Topic)
		}
		groups[r.Topic] = append(groups[r.Topic], r)
	}
	return order, groups
}

func (d *ConflictDetector) display(c Conflict) string {
	r1, r2 := c.Recommendation1, c.Recommendation2

	var b strings.Builder
	b.WriteString("**Source Disagreement on " + topicLabel(c.Topic) + "**\n\n")
	b.WriteString("**" + r1.Organization + "** (Authority: " + strconv.Itoa(r1.AuthorityScore) + "/100):\n")
	b.WriteString("  \"" + r1.FullSentence + "\"\n\n")
	b.WriteString("**" + r2.Organization + "** (Authority: " + strconv.Itoa(r2.AuthorityScore) + "/100):\n")
	b.WriteString("  \"" + r2.FullSentence + "\"\n\n")

	switch {
	case r1.AuthorityScore > r2.AuthorityScore:
		b.WriteString("**Recommendation:** Prioritize " + r1.Organization + " guidance (higher authority).")
	case r2.AuthorityScore > r1.AuthorityScore:
		b.WriteString("**Recommendation:** Prioritize " + r2.Organization + " guidance (higher authority).")
	default:
		b.WriteString("**Recommendation:** Both sources have equal authority.")
	}
	b.WriteString(" Consult local " + d.extension + " for your specific conditions.")
	return b.String()
}

// topicLabel turns "planting_time" into "Planting Time".
func topicLabel(t Topic) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
