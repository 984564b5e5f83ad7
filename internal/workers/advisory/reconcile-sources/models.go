package reconcilesources

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Query   string            `json:"query"`
	Sources []evidence.Source `json:"sources"`
}

type Output struct {
	Reconciled            bool                           `json:"reconciled"`
	SkippedReason         string                         `json:"skippedReason,omitempty"`
	Reconciliation        *evidence.ReconciliationReport `json:"reconciliation"`
	HasConflicts          bool                           `json:"hasConflicts"`
	HighSeverityConflicts int                            `json:"highSeverityConflicts"`
	CacheHit              bool                           `json:"cacheHit"`
}

const inputSchema = `{
	"type": "object",
	"required": ["query", "sources"],
	"properties": {
		"query": {"type": "string"},
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["content"],
				"properties": {
					"content": {"type": "string"},
					"metadata": {"type": ["object", "null"]},
					"similarity_score": {"type": "number"}
				}
			}
		}
	}
}`
