package recordevidence

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Query          string                         `json:"query"`
	Reconciliation *evidence.ReconciliationReport `json:"reconciliation"`
	Confidence     *evidence.ConfidenceResult     `json:"confidence,omitempty"`
}

type Output struct {
	EvidenceRecordID      string `json:"evidenceRecordId"`
	HighSeverityConflicts int    `json:"highSeverityConflicts"`
	AlertSent             bool   `json:"alertSent"`
}

// JobRef identifies the job being recorded. Retries of the same job share it.
type JobRef struct {
	JobKey     int64
	ProcessKey int64
}

type alertMessage struct {
	EvidenceRecordID string   `json:"evidence_record_id"`
	ProcessKey       int64    `json:"process_key"`
	Query            string   `json:"query"`
	HighSeverity     int      `json:"high_severity"`
	Conflicts        []string `json:"conflicts"`
}
