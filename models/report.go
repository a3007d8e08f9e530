package models

// ValidationReport is the derived result of one sufficiency or grounding check
type ValidationReport struct {
	Passed                 bool     `json:"passed"`
	OverlapRatio           float64  `json:"overlap_ratio"`
	GroundingScore         float64  `json:"grounding_score"`
	ExternalKnowledgeFlags []string `json:"external_knowledge_flags"`
	Issues                 []string `json:"issues"`
	Reason                 string   `json:"reason,omitempty"`
}

// NewValidationReport returns a passing report with empty, non-nil lists
func NewValidationReport() ValidationReport {
	return ValidationReport{
		Passed:                 true,
		ExternalKnowledgeFlags: []string{},
		Issues:                 []string{},
	}
}

// Fail marks the report as failed and records the issue
func (r *ValidationReport) Fail(issue string) {
	r.Passed = false
	r.Issues = append(r.Issues, issue)
}
