// Package scoring derives the confidence reported with an answer.
package scoring

import (
	"math"

	"github.com/upb/grounded-qa/models"
)

// DefaultBoost is added to the average similarity of the evidence
const DefaultBoost = 0.2

// ConfidenceScorer computes min(1, average similarity + boost).
// Grounding does not enter the formula; the same rule applies to every query mode.
type ConfidenceScorer struct {
	boost float64
}

// NewConfidenceScorer creates a scorer. A negative boost is treated as zero.
func NewConfidenceScorer(boost float64) *ConfidenceScorer {
	return &ConfidenceScorer{boost: math.Max(0, boost)}
}

// Score returns a value in [0,1]. Empty evidence scores 0.
func (s *ConfidenceScorer) Score(evidence models.Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	avg := evidence.AverageSimilarity()
	if math.IsNaN(avg) {
		return 0
	}
	return math.Min(1, math.Max(0, avg+s.boost))
}
