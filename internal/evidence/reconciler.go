package evidence

import (
	"fmt"
	"sort"
	"strconv"
)

const noRecommendationsMessage = "No specific recommendations extracted from sources"

// Reconciler turns a set of retrieved sources into a per-topic consensus
// and a list of disagreements between them. It holds no per-request state
// and is safe for concurrent use.
type Reconciler struct {
	extractor *Extractor
	detector  *ConflictDetector
	authority *AuthorityModel
}

func NewReconciler(tables *TrustTables, cfg Config) *Reconciler {
	if tables == nil {
		tables = DefaultTrustTables()
	}
	cfg = cfg.WithDefaults()
	return &Reconciler{
		extractor: NewExtractor(tables),
		detector:  NewConflictDetector(cfg),
		authority: NewAuthorityModel(tables, cfg),
	}
}

func (r *Reconciler) Authority() *AuthorityModel { return r.authority }

// Reconcile builds the reconciliation report. The query is accepted for
// callers that key or log reports by it; it does not affect the result.
func (r *Reconciler) Reconcile(sources []Source, query string) *ReconciliationReport {
	recs := r.extractor.ExtractFromSources(sources, r.authority)

	if len(recs) == 0 {
		return &ReconciliationReport{
			TotalSources:             len(sources),
			ConsensusRecommendations: []ConsensusEntry{},
			Conflicts:                []Conflict{},
			Message:                  noRecommendationsMessage,
		}
	}

	conflicts := r.detector.Detect(recs)
	consensus := buildConsensus(recs, conflicts)

	return &ReconciliationReport{
		HasConflicts:             len(conflicts) > 0,
		TotalSources:             len(sources),
		TotalRecommendations:     len(recs),
		ConflictsFound:           len(conflicts),
		ConsensusRecommendations: consensus,
		Conflicts:                conflicts,
		Summary:                  summarize(len(sources), conflicts),
	}
}

func buildConsensus(recs []ExtractedRecommendation, conflicts []Conflict) []ConsensusEntry {
	conflicted := make(map[Topic]bool, len(conflicts))
	for _, c := range conflicts {
		conflicted[c.Topic] = true
	}

	topics, groups := groupByTopic(recs)
	entries := make([]ConsensusEntry, 0, len(topics))
	for _, topic := range topics {
		group := groups[topic]
		if conflicted[topic] {
			entries = append(entries, balancedEntry(topic, group))
		} else {
			entries = append(entries, agreedEntry(topic, group))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AuthorityScore > entries[j].AuthorityScore
	})
	return entries
}

func agreedEntry(topic Topic, group []ExtractedRecommendation) ConsensusEntry {
	best := group[0]
	for _, rec := range group[1:] {
		if rec.AuthorityScore > best.AuthorityScore {
			best = rec
		}
	}
	return ConsensusEntry{
		Topic:             topic,
		Recommendation:    best.FullSentence,
		Source:            best.Source,
		AuthorityScore:    float64(best.AuthorityScore),
		Confidence:        ConsensusHigh,
		SupportingSources: len(group),
	}
}

// balancedEntry presents the two most authoritative positions side by side.
// A conflicted topic always has at least two recommendations.
func balancedEntry(topic Topic, group []ExtractedRecommendation) ConsensusEntry {
	ranked := append([]ExtractedRecommendation(nil), group...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AuthorityScore > ranked[j].AuthorityScore
	})
	top := ranked[:2]
	primary, secondary := top[0], top[1]

	text := fmt.Sprintf(
		"%s (authority: %d) recommends: %s. However, %s suggests: %s. Consider local conditions and consult extension services for your specific situation.",
		primary.Source, primary.AuthorityScore, primary.Text,
		secondary.Source, secondary.Text,
	)

	return ConsensusEntry{
		Topic:             topic,
		Recommendation:    text,
		Source:            "Synthesized from " + strconv.Itoa(len(top)) + " sources",
		AuthorityScore:    float64(primary.AuthorityScore+secondary.AuthorityScore) / 2,
		Confidence:        ConsensusModerate,
		SupportingSources: len(group),
		Note:              fmt.Sprintf("Sources disagree on %s. Recommendation based on highest authority sources.", topic),
	}
}

func summarize(totalSources int, conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return fmt.Sprintf("All %d sources are in agreement. Recommendations are consistent and reliable.", totalSources)
	}

	high := 0
	for _, c := range conflicts {
		if c.Severity == SeverityHigh {
			high++
		}
	}
	return fmt.Sprintf(
		"Found %d disagreement(s) across sources (%d high severity, %d moderate). Balanced recommendations provided based on source authority and local relevance.",
		len(conflicts), high, len(conflicts)-high,
	)
}
