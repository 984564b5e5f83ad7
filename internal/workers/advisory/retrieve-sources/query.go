package retrievesources

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"agri-evidence-workers/internal/evidence"
)

// buildSearchRequest matches the query against chunk content, boosting
// filename and organization hits.
func buildSearchRequest(index string, input *Input, size int) (*esapi.SearchRequest, error) {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  input.Query,
				"fields": []string{"content^2", "metadata.filename", "metadata.organization"},
				"type":   "best_fields",
			},
		},
	}

	boolQuery := map[string]interface{}{"must": must}
	if input.Category != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"metadata.category": input.Category},
			},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":   map[string]interface{}{"bool": boolQuery},
		"_source": []string{"content", "metadata"},
	})
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

// toSources normalises scores against the best hit, drops hits under
// threshold and keeps at most topK, best first.
func toSources(hits []searchHit, threshold float64, topK int) []evidence.Source {
	maxScore := 0.0
	for _, hit := range hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	sources := make([]evidence.Source, 0, len(hits))
	if maxScore <= 0 {
		return sources
	}

	for _, hit := range hits {
		normalized := hit.Score / maxScore
		if normalized < threshold {
			continue
		}
		sources = append(sources, evidence.Source{
			Content:         hit.Source.Content,
			Metadata:        hit.Source.Metadata,
			SimilarityScore: normalized,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].SimilarityScore > sources[j].SimilarityScore
	})
	if topK > 0 && len(sources) > topK {
		sources = sources[:topK]
	}
	return sources
}
