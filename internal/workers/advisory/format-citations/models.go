package formatcitations

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Sources           []evidence.Source `json:"sources"`
	IncludeConfidence *bool             `json:"includeConfidence,omitempty"`
	// Agreement overrides the default agreement score in [0,1].
	Agreement *float64 `json:"agreement,omitempty"`
}

type Output struct {
	Citations    []evidence.Citation        `json:"citations"`
	TotalSources int                        `json:"totalSources"`
	Confidence   *evidence.ConfidenceResult `json:"confidence,omitempty"`
}
