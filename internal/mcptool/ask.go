package mcptool

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/upb/grounded-qa/models"
)

// QueryProcessor runs questions through the answering pipeline
type QueryProcessor interface {
	ValidateQuery(q models.Query) error
	Process(ctx context.Context, q models.Query) models.Response
}

// MetadataAskBook describes the ask_book tool.
var MetadataAskBook = &mcp.Tool{
	Name: "ask_book",
	Description: "Answer a question using only the indexed book, or only a passage the caller supplies. " +
		"The answer is refused when the book holds no sufficiently similar content. " +
		"Status is one of success, refused or error. Confidence is 0 unless status is success.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"query"},
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The question to answer",
			},
			"query_type": map[string]interface{}{
				"type":        "string",
				"description": "full_book searches the indexed corpus. selection_based answers from selected_text only. Defaults to full_book.",
				"enum":        []string{string(models.QueryModeFullBook), string(models.QueryModeSelection)},
			},
			"selected_text": map[string]interface{}{
				"type":        "string",
				"description": "The passage to answer from. Required when query_type is selection_based.",
			},
		},
	},
}

// InputAskBook is the input for the ask_book tool.
type InputAskBook struct {
	Query        string `json:"query"`
	QueryType    string `json:"query_type"`
	SelectedText string `json:"selected_text"`
}

// OutputAskBook is the output for the ask_book tool.
type OutputAskBook struct {
	Response   string   `json:"response"`
	Status     string   `json:"status"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	QueryID    string   `json:"query_id"`
}

// AskBook binds the ask_book tool to a pipeline
type AskBook struct {
	processor QueryProcessor
}

// NewAskBook creates the ask_book tool handler
func NewAskBook(processor QueryProcessor) *AskBook {
	return &AskBook{processor: processor}
}

// Handle validates the input and runs one query. Input errors become tool
// errors; pipeline refusals are ordinary results.
func (a *AskBook) Handle(ctx context.Context, _ *mcp.CallToolRequest, input InputAskBook) (*mcp.CallToolResult, OutputAskBook, error) {
	mode := models.QueryMode(strings.TrimSpace(input.QueryType))
	if mode == "" {
		mode = models.QueryModeFullBook
	}

	q := models.Query{
		Text:      input.Query,
		Mode:      mode,
		Selection: input.SelectedText,
	}
	if err := a.processor.ValidateQuery(q); err != nil {
		return nil, OutputAskBook{}, err
	}

	resp := a.processor.Process(ctx, q)
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, OutputAskBook{
		Response:   resp.Text,
		Status:     string(resp.Status),
		Sources:    sources,
		Confidence: resp.Confidence,
		QueryID:    resp.QueryID.String(),
	}, nil
}
