// Package validation decides whether evidence is good enough to answer from
// and whether a generated answer stays within that evidence.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/models"
	"go.uber.org/zap"
)

// Thresholds configures both checks
type Thresholds struct {
	MinSimilarity       float64
	MinContextChars     int
	MinSelectionChars   int
	MinOverlap          float64
	MinGroundingScore   float64
	ExternalFlagPenalty float64
}

// DefaultThresholds returns the production thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSimilarity:       0.35,
		MinContextChars:     50,
		MinSelectionChars:   5,
		MinOverlap:          0.3,
		MinGroundingScore:   0.7,
		ExternalFlagPenalty: 0.3,
	}
}

// ThresholdsFromConfig reads the pipeline thresholds
func ThresholdsFromConfig(cfg config.PipelineConfig) Thresholds {
	t := DefaultThresholds()
	t.MinSimilarity = cfg.MinSimilarity
	t.MinContextChars = cfg.MinContextChars
	t.MinOverlap = cfg.MinOverlap
	t.MinGroundingScore = cfg.MinGroundingScore
	t.ExternalFlagPenalty = cfg.ExternalFlagPenalty
	return t
}

// ContextValidator runs the sufficiency and grounding checks.
// It is stateless apart from its thresholds; every call returns a fresh report.
type ContextValidator struct {
	thresholds Thresholds
	logger     *zap.Logger
}

// NewContextValidator creates a validator
func NewContextValidator(thresholds Thresholds, logger *zap.Logger) *ContextValidator {
	return &ContextValidator{thresholds: thresholds, logger: logger}
}

// CheckSufficiency gates generation on retrieved evidence. The first failing rule wins.
func (v *ContextValidator) CheckSufficiency(evidence models.Evidence) models.ValidationReport {
	report := models.NewValidationReport()

	if len(evidence) == 0 {
		report.Fail("no context retrieved")
		report.Reason = "no context retrieved"
		return report
	}

	if maxScore := evidence.MaxSimilarity(); maxScore < v.thresholds.MinSimilarity {
		report.Reason = fmt.Sprintf("no high-similarity content found (highest score: %.2f)", maxScore)
		report.Fail(report.Reason)
		return report
	}

	if length := evidence.TotalContentLength(); length < v.thresholds.MinContextChars {
		report.Reason = fmt.Sprintf("insufficient context length: %d characters", length)
		report.Fail(report.Reason)
		return report
	}

	report.Reason = "context is sufficient"
	return report
}

// CheckSelection gates selection-based queries. Only a missing or too short
// selection fails; the query/selection token overlap is reported but never
// blocks, so paraphrased questions still reach generation.
func (v *ContextValidator) CheckSelection(query, selection string) models.ValidationReport {
	report := models.NewValidationReport()

	if len([]rune(strings.TrimSpace(selection))) < v.thresholds.MinSelectionChars {
		report.Reason = "selected text is too short or empty"
		report.Fail(report.Reason)
		return report
	}

	queryTokens := TokenSet(query)
	overlap := intersectionSize(queryTokens, TokenSet(selection))
	report.OverlapRatio = float64(overlap) / float64(max(len(queryTokens), 1))

	switch {
	case report.OverlapRatio >= 0.1:
		report.Reason = "selection context is sufficient"
	case overlap > 0:
		report.Reason = "selection context is sufficient (low, non-zero overlap)"
		report.Issues = append(report.Issues, fmt.Sprintf("low query/selection overlap: %.2f", report.OverlapRatio))
	default:
		report.Reason = "selection context admitted without token overlap"
		report.Issues = append(report.Issues, "query shares no tokens with the selection")
	}

	v.logger.Debug("selection overlap",
		zap.Float64("overlap_ratio", report.OverlapRatio),
		zap.Int("query_tokens", len(queryTokens)))
	return report
}

// CheckGrounding measures how much of the response is traceable to the evidence
func (v *ContextValidator) CheckGrounding(response string, evidence models.Evidence) models.ValidationReport {
	report := models.NewValidationReport()

	if len(evidence) == 0 {
		report.Reason = "no retrieved content to validate against"
		report.Fail(report.Reason)
		return report
	}

	for _, d := range DetectExternalKnowledge(response) {
		report.ExternalKnowledgeFlags = append(report.ExternalKnowledgeFlags, d.Flag())
		report.Fail(d.Flag())
	}

	report.OverlapRatio = overlapRatio(response, evidence)
	if report.OverlapRatio < v.thresholds.MinOverlap {
		report.Fail(fmt.Sprintf("content overlap too low: %.2f", report.OverlapRatio))
	}

	penalty := v.thresholds.ExternalFlagPenalty * float64(len(report.ExternalKnowledgeFlags))
	report.GroundingScore = clamp(report.OverlapRatio - penalty)
	if report.GroundingScore < v.thresholds.MinGroundingScore {
		report.Fail(fmt.Sprintf("grounding score too low: %.2f", report.GroundingScore))
	}

	if report.Passed {
		report.Reason = "response is grounded in the evidence"
	} else {
		report.Reason = report.Issues[0]
	}
	return report
}

// overlapRatio is |response ∩ evidence| / |response| over normalized tokens
func overlapRatio(response string, evidence models.Evidence) float64 {
	responseTokens := TokenSet(response)
	if len(responseTokens) == 0 {
		return 0
	}
	evidenceTokens := TokenSet(strings.Join(evidence.Contents(), " "))
	return float64(intersectionSize(responseTokens, evidenceTokens)) / float64(len(responseTokens))
}

func clamp(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
