package assembleadvisory

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Query          string                         `json:"query"`
	Answer         string                         `json:"answer"`
	Citations      []evidence.Citation            `json:"citations"`
	Confidence     *evidence.ConfidenceResult     `json:"confidence,omitempty"`
	Reconciliation *evidence.ReconciliationReport `json:"reconciliation,omitempty"`
}

type Output struct {
	Advisory *Advisory `json:"advisory"`
}

// Advisory is the payload returned to the farmer-facing channel.
type Advisory struct {
	Query          string                         `json:"query"`
	Response       string                         `json:"response"`
	Sources        []evidence.Citation            `json:"sources"`
	Confidence     *evidence.ConfidenceResult     `json:"confidence"`
	Reconciliation *evidence.ReconciliationReport `json:"reconciliation"`
	Notices        []string                       `json:"notices"`
	Metadata       Metadata                       `json:"metadata"`
}

type Metadata struct {
	GeneratedAt      string `json:"generated_at"`
	SourceCount      int    `json:"source_count"`
	HasConflicts     bool   `json:"has_conflicts"`
	ConfidenceRating string `json:"confidence_rating,omitempty"`
	ServiceVersion   string `json:"service_version,omitempty"`
}

const advisorySchema = `{
	"type": "object",
	"required": ["query", "response", "sources", "notices", "metadata"],
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"response": {"type": "string", "minLength": 1},
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["number", "organization", "display"],
				"properties": {
					"number": {"type": "integer", "minimum": 1},
					"display": {"type": "string", "minLength": 1}
				}
			}
		},
		"confidence": {
			"type": ["object", "null"],
			"properties": {
				"score": {"type": "number", "minimum": 0, "maximum": 100}
			}
		},
		"notices": {"type": "array", "items": {"type": "string"}},
		"metadata": {
			"type": "object",
			"required": ["generated_at", "source_count", "has_conflicts"]
		}
	}
}`
