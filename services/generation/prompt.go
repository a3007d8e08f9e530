package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/upb/grounded-qa/models"
)

const promptTemplate = `You are a helpful assistant that answers questions based only on the provided {{.Material}}.

{{.Label}}:
{{.Content}}

INSTRUCTIONS:
- Answer the question using ONLY information from the provided {{.Label}}
- Do not use any external knowledge or make assumptions
- If the answer is not in the provided {{.Label}}, clearly state that you cannot answer
- Keep responses concise and accurate

QUESTION: {{.Question}}
ANSWER:`

var prompt = template.Must(template.New("prompt").Parse(promptTemplate))

type promptData struct {
	Material string
	Label    string
	Content  string
	Question string
}

// BuildPrompt renders the answer-only-from-material prompt for a query mode.
// Chunk source paths are never included.
func BuildPrompt(mode models.QueryMode, question string, evidence models.Evidence) (string, error) {
	data := promptData{
		Content:  strings.Join(evidence.Contents(), "\n\n"),
		Question: question,
	}

	switch mode {
	case models.QueryModeFullBook:
		data.Material, data.Label = "book content", "BOOK CONTENT"
	case models.QueryModeSelection:
		data.Material, data.Label = "selected text", "SELECTED TEXT"
	default:
		return "", fmt.Errorf("no prompt for query type %q", mode)
	}

	var buf bytes.Buffer
	if err := prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
