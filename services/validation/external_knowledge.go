package validation

import (
	"fmt"
	"regexp"
)

// ExternalKnowledgeKind groups markers by the kind of outside knowledge they signal
type ExternalKnowledgeKind string

const (
	KindPersonalKnowledge ExternalKnowledgeKind = "personal_knowledge"
	KindGeneralKnowledge  ExternalKnowledgeKind = "general_knowledge"
	KindTimeSensitive     ExternalKnowledgeKind = "time_sensitive"
	KindRecentInformation ExternalKnowledgeKind = "recent_information"
)

// ExternalKnowledgeDetection is one marker found in a response
type ExternalKnowledgeDetection struct {
	Kind        ExternalKnowledgeKind
	Marker      string
	StartPos    int
	EndPos      int
	Description string
}

// Flag renders the detection as a report entry
func (d ExternalKnowledgeDetection) Flag() string {
	return fmt.Sprintf("%s: '%s'", d.Description, d.Marker)
}

type knowledgeMarker struct {
	phrase      string
	kind        ExternalKnowledgeKind
	description string
	pattern     *regexp.Regexp
}

func marker(phrase string, kind ExternalKnowledgeKind, description string) knowledgeMarker {
	return knowledgeMarker{
		phrase:      phrase,
		kind:        kind,
		description: description,
		pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
	}
}

var knowledgeMarkers = []knowledgeMarker{
	marker("according to my knowledge", KindGeneralKnowledge, "External knowledge claim"),
	marker("i know that", KindPersonalKnowledge, "Personal knowledge claim"),
	marker("from general knowledge", KindGeneralKnowledge, "General knowledge claim"),
	marker("in my experience", KindPersonalKnowledge, "Personal experience claim"),
	marker("recently", KindTimeSensitive, "Time-sensitive external info"),
	marker("currently", KindTimeSensitive, "Current events claim"),
	marker("today", KindTimeSensitive, "Current events claim"),
	marker("this year", KindTimeSensitive, "Current events claim"),
	marker("latest", KindRecentInformation, "Recent information claim"),
	marker("new developments", KindRecentInformation, "Recent information claim"),
}

// DetectExternalKnowledge reports each marker present in text once, at its
// first occurrence, in marker order. Matching is case-insensitive on word
// boundaries.
func DetectExternalKnowledge(text string) []ExternalKnowledgeDetection {
	var detections []ExternalKnowledgeDetection
	for _, m := range knowledgeMarkers {
		loc := m.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		detections = append(detections, ExternalKnowledgeDetection{
			Kind:        m.kind,
			Marker:      m.phrase,
			StartPos:    loc[0],
			EndPos:      loc[1],
			Description: m.description,
		})
	}
	return detections
}
