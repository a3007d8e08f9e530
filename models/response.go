package models

import (
	"github.com/google/uuid"
)

// ResponseStatus is the terminal outcome of a pipeline run
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusRefused ResponseStatus = "refused"
	StatusError   ResponseStatus = "error"
)

// Response is the immutable result returned to the caller
type Response struct {
	Text       string         `json:"response" yaml:"response"`
	Status     ResponseStatus `json:"status" yaml:"status"`
	Sources    []string       `json:"sources" yaml:"sources"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	QueryID    uuid.UUID      `json:"query_id" yaml:"query_id"`
}

// NewSuccessResponse builds a success response
func NewSuccessResponse(queryID uuid.UUID, text string, sources []string, confidence float64) Response {
	if sources == nil {
		sources = []string{}
	}
	return Response{
		Text:       text,
		Status:     StatusSuccess,
		Sources:    sources,
		Confidence: confidence,
		QueryID:    queryID,
	}
}

// NewRefusedResponse builds a refusal with zero confidence and no sources
func NewRefusedResponse(queryID uuid.UUID, text string) Response {
	return Response{
		Text:       text,
		Status:     StatusRefused,
		Sources:    []string{},
		Confidence: 0,
		QueryID:    queryID,
	}
}

// NewErrorResponse builds an error outcome with zero confidence and no sources
func NewErrorResponse(queryID uuid.UUID, text string) Response {
	return Response{
		Text:       text,
		Status:     StatusError,
		Sources:    []string{},
		Confidence: 0,
		QueryID:    queryID,
	}
}
