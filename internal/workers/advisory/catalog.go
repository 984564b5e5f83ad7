// Package advisory lists the service tasks of the evidence-backed advisory flow.
package advisory

import (
	"agri-evidence-workers/pkg/registry"

	aa "agri-evidence-workers/internal/workers/advisory/assemble-advisory"
	fc "agri-evidence-workers/internal/workers/advisory/format-citations"
	ga "agri-evidence-workers/internal/workers/advisory/generate-answer"
	rc "agri-evidence-workers/internal/workers/advisory/reconcile-sources"
	re "agri-evidence-workers/internal/workers/advisory/record-evidence"
	rs "agri-evidence-workers/internal/workers/advisory/retrieve-sources"
)

// Activities describes every advisory task type. enabled reports whether a
// task type is switched on in the running configuration.
func Activities(enabled func(taskType string) bool) []registry.Activity {
	activities := []registry.Activity{
		{
			TaskType:    rs.TaskType,
			DisplayName: "Retrieve Sources",
			Description: "Full-text search of the agricultural document index",
			Inputs:      []string{"query", "topK", "category"},
			Outputs:     []string{"sources", "sourceCount", "totalHits"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "SOURCE_RETRIEVAL_FAILED", "SEARCH_TIMEOUT", "INDEX_NOT_FOUND"},
		},
		{
			TaskType:    rc.TaskType,
			DisplayName: "Reconcile Sources",
			Description: "Extract recommendations, detect disagreements and build consensus",
			Inputs:      []string{"query", "sources"},
			Outputs:     []string{"reconciled", "skippedReason", "reconciliation", "hasConflicts", "highSeverityConflicts", "cacheHit"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "RECONCILIATION_FAILED"},
		},
		{
			TaskType:    fc.TaskType,
			DisplayName: "Format Citations",
			Description: "Number citations and score answer confidence",
			Inputs:      []string{"sources", "includeConfidence", "agreement"},
			Outputs:     []string{"citations", "totalSources", "confidence"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "CITATION_FORMATTING_FAILED"},
		},
		{
			TaskType:    ga.TaskType,
			DisplayName: "Generate Answer",
			Description: "Ask the language model for an answer grounded in the retrieved sources",
			Inputs:      []string{"query", "district", "sources", "reconciliation"},
			Outputs:     []string{"answer", "model", "grounded"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "LLM_TIMEOUT", "LLM_SYNTHESIS_FAILED"},
		},
		{
			TaskType:    aa.TaskType,
			DisplayName: "Assemble Advisory",
			Description: "Combine answer, citations, confidence and conflict notices",
			Inputs:      []string{"query", "answer", "citations", "confidence", "reconciliation"},
			Outputs:     []string{"advisory"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "RESPONSE_ASSEMBLY_FAILED"},
		},
		{
			TaskType:    re.TaskType,
			DisplayName: "Record Evidence",
			Description: "Persist the reconciliation audit record and alert on high-severity conflicts",
			Inputs:      []string{"query", "reconciliation", "confidence"},
			Outputs:     []string{"evidenceRecordId", "highSeverityConflicts", "alertSent"},
			ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "EVIDENCE_RECORD_FAILED", "ALERT_PUBLISH_FAILED"},
		},
	}

	for i := range activities {
		activities[i].Enabled = enabled == nil || enabled(activities[i].TaskType)
	}
	return activities
}
