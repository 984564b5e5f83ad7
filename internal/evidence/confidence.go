package evidence

import (
	"fmt"
	"math"
)

// ConfidenceScore rates how well the whole source set supports an answer.
// agreement is in [0,1]; out-of-range values are clamped.
func (f *CitationFormatter) ConfidenceScore(sources []Source, agreement float64) ConfidenceResult {
	if len(sources) == 0 {
		return ConfidenceResult{
			Score:       0,
			Rating:      RatingNoSources,
			Color:       "gray",
			Explanation: "No sources found to support this answer.",
		}
	}

	w := f.cfg.Confidence
	agreement = math.Max(0, math.Min(1, agreement))

	// the best single source sets the quality ceiling
	quality := 0.0
	for _, src := range sources {
		if s := f.tierWeight(f.Tier(f.Organization(src))); s > quality {
			quality = s
		}
	}
	quantity := math.Min(float64(len(sources))*w.PerSource, w.QuantityCap)
	recency := w.Recency
	agreementPoints := agreement * w.AgreementMax

	total := math.Min(quality+quantity+recency+agreementPoints, 100)
	total = math.Max(total, 0)
	total = math.Round(total*10) / 10

	rating, color := f.rate(total)
	return ConfidenceResult{
		Score:       total,
		Rating:      rating,
		Color:       color,
		Explanation: f.explain(len(sources), quality, agreement),
		Breakdown: &ConfidenceBreakdown{
			SourceQuality:   quality,
			NumberOfSources: quantity,
			Recency:         recency,
			Agreement:       math.Round(agreementPoints*10) / 10,
		},
	}
}

func (f *CitationFormatter) tierWeight(t QualityTier) float64 {
	switch t {
	case Tier1:
		return f.cfg.Confidence.Tier1
	case Tier2:
		return f.cfg.Confidence.Tier2
	default:
		return f.cfg.Confidence.Tier3
	}
}

func (f *CitationFormatter) rate(score float64) (ConfidenceRating, string) {
	switch {
	case score >= f.cfg.HighConfidenceAt:
		return RatingHigh, "green"
	case score >= f.cfg.ModerateConfidenceAt:
		return RatingModerate, "orange"
	default:
		return RatingLow, "red"
	}
}

func (f *CitationFormatter) explain(n int, quality, agreement float64) string {
	count := fmt.Sprintf("%d source", n)
	if n != 1 {
		count += "s"
	}

	// phrase cut-offs sit between the tier weights
	w := f.cfg.Confidence
	var origin string
	switch {
	case quality >= (w.Tier1+w.Tier2)/2:
		origin = "high-quality international research organizations"
	case quality >= (w.Tier2+w.Tier3)/2:
		origin = "reputable development agencies"
	default:
		origin = "local sources"
	}

	var accord string
	switch {
	case agreement >= 0.8:
		accord = "with strong agreement"
	case agreement >= 0.6:
		accord = "with moderate agreement"
	default:
		accord = "with some variation"
	}

	return fmt.Sprintf("Based on %s from %s %s.", count, origin, accord)
}
