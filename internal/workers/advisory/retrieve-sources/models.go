package retrievesources

import "agri-evidence-workers/internal/evidence"

type Input struct {
	Query    string `json:"query"`
	TopK     int    `json:"topK,omitempty"`
	Category string `json:"category,omitempty"`
}

type Output struct {
	Sources     []evidence.Source `json:"sources"`
	SourceCount int               `json:"sourceCount"`
	TotalHits   int               `json:"totalHits"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		Content  string                  `json:"content"`
		Metadata evidence.SourceMetadata `json:"metadata"`
	} `json:"_source"`
}
