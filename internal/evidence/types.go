package evidence

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Topic string

const (
	TopicPlantingTime Topic = "planting_time"
	TopicFertilizer   Topic = "fertilizer"
	TopicPestControl  Topic = "pest_control"
	TopicIrrigation   Topic = "irrigation"
	TopicVariety      Topic = "variety"
	TopicSpacing      Topic = "spacing"
	TopicHarvest      Topic = "harvest"
	TopicStorage      Topic = "storage"
	TopicGeneral      Topic = "general"
)

type ConflictType string

const (
	ConflictTiming                  ConflictType = "timing"
	ConflictQuantity                ConflictType = "quantity"
	ConflictMethod                  ConflictType = "method"
	ConflictRecommendationVsWarning ConflictType = "recommendation_vs_warning"
	ConflictGeneral                 ConflictType = "general"
)

type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
)

type ConsensusConfidence string

const (
	ConsensusHigh     ConsensusConfidence = "high"
	ConsensusModerate ConsensusConfidence = "moderate"
)

type QualityTier string

const (
	Tier1 QualityTier = "tier1"
	Tier2 QualityTier = "tier2"
	Tier3 QualityTier = "tier3"
)

type ConfidenceRating string

const (
	RatingNoSources ConfidenceRating = "No Sources"
	RatingLow       ConfidenceRating = "Low Confidence"
	RatingModerate  ConfidenceRating = "Moderate Confidence"
	RatingHigh      ConfidenceRating = "High Confidence"
)

// Source is one retrieved passage handed in by the retrieval step.
type Source struct {
	Content         string         `json:"content"`
	Metadata        SourceMetadata `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// SourceMetadata holds the optional document attributes the core reads.
// Zero values mean the key was absent or unusable.
type SourceMetadata struct {
	Filename        string `json:"filename,omitempty"`
	Organization    string `json:"organization,omitempty"`
	GeographicScope string `json:"geographic_scope,omitempty"`
	Year            int    `json:"year,omitempty"`
	Page            string `json:"page,omitempty"`
	URL             string `json:"url,omitempty"`
	SourcePath      string `json:"source_path,omitempty"`
	Category        string `json:"category,omitempty"`
}

// UnmarshalJSON accepts string, number or null for every key. Values that
// cannot be interpreted are dropped instead of failing the whole source.
func (m *SourceMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// metadata that is not an object is treated as empty
		*m = SourceMetadata{}
		return nil
	}

	*m = SourceMetadata{
		Filename:        textValue(raw["filename"]),
		Organization:    textValue(raw["organization"]),
		GeographicScope: textValue(raw["geographic_scope"]),
		Year:            intValue(raw["year"]),
		Page:            textValue(raw["page"]),
		URL:             textValue(raw["url"]),
		SourcePath:      textValue(raw["source_path"]),
		Category:        textValue(raw["category"]),
	}
	return nil
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func intValue(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ExtractedRecommendation is one actionable phrase found in a source.
// SourceIndex points back into the slice handed to the reconciler.
type ExtractedRecommendation struct {
	Text           string `json:"text"`
	Topic          Topic  `json:"topic"`
	Context        string `json:"context"`
	FullSentence   string `json:"full_sentence"`
	Source         string `json:"source"`
	Organization   string `json:"organization"`
	SourceIndex    int    `json:"source_index"`
	AuthorityScore int    `json:"authority_score"`
}

type Conflict struct {
	Topic           Topic                   `json:"topic"`
	Recommendation1 ExtractedRecommendation `json:"recommendation_1"`
	Recommendation2 ExtractedRecommendation `json:"recommendation_2"`
	ConflictType    ConflictType            `json:"conflict_type"`
	Severity        Severity                `json:"severity"`
	Similarity      float64                 `json:"similarity"`
	Display         string                  `json:"display"`
}

type ConsensusEntry struct {
	Topic             Topic               `json:"topic"`
	Recommendation    string              `json:"recommendation"`
	Source            string              `json:"source"`
	AuthorityScore    float64             `json:"authority_score"`
	Confidence        ConsensusConfidence `json:"confidence"`
	SupportingSources int                 `json:"supporting_sources"`
	Note              string              `json:"note,omitempty"`
}

type ReconciliationReport struct {
	HasConflicts             bool             `json:"has_conflicts"`
	TotalSources             int              `json:"total_sources"`
	TotalRecommendations     int              `json:"total_recommendations"`
	ConflictsFound           int              `json:"conflicts_found"`
	ConsensusRecommendations []ConsensusEntry `json:"consensus_recommendations"`
	Conflicts                []Conflict       `json:"conflicts"`
	Summary                  string           `json:"summary,omitempty"`
	Message                  string           `json:"message,omitempty"`
}

// HighSeverityConflicts counts conflicts flagged as high severity.
func (r *ReconciliationReport) HighSeverityConflicts() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

type Citation struct {
	Number         int         `json:"number"`
	Organization   string      `json:"organization"`
	Title          string      `json:"title"`
	Filename       string      `json:"filename"`
	Link           string      `json:"pdf_link,omitempty"`
	Page           string      `json:"page,omitempty"`
	Display        string      `json:"display"`
	RelevanceScore float64     `json:"relevance_score"`
	QualityTier    QualityTier `json:"quality_tier"`
}

type ConfidenceBreakdown struct {
	SourceQuality   float64 `json:"source_quality"`
	NumberOfSources float64 `json:"number_of_sources"`
	Recency         float64 `json:"recency"`
	Agreement       float64 `json:"agreement"`
}

type ConfidenceResult struct {
	Score       float64              `json:"score"`
	Rating      ConfidenceRating     `json:"rating"`
	Color       string               `json:"color"`
	Explanation string               `json:"explanation"`
	Breakdown   *ConfidenceBreakdown `json:"breakdown,omitempty"`
}

type CitationReport struct {
	Sources      []Citation        `json:"sources"`
	TotalSources int               `json:"total_sources"`
	Confidence   *ConfidenceResult `json:"confidence,omitempty"`
}
