package generateanswer

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Query          string                         `json:"query"`
	District       string                         `json:"district,omitempty"`
	Sources        []evidence.Source              `json:"sources"`
	Reconciliation *evidence.ReconciliationReport `json:"reconciliation,omitempty"`
}

type Output struct {
	Answer   string `json:"answer"`
	Model    string `json:"model,omitempty"`
	Grounded bool   `json:"grounded"`
}

type generateRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}
