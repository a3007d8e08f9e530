package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/grounded-qa/models"
)

func TestBuildPrompt(t *testing.T) {
	evidence := models.Evidence{
		{Content: "First chunk.", SourcePath: "docs/secret-file-name.md"},
		{Content: "Second chunk.", SourcePath: "docs/other.md"},
	}

	tests := []struct {
		name      string
		mode      models.QueryMode
		wantLabel string
	}{
		{"full book", models.QueryModeFullBook, "BOOK CONTENT"},
		{"selection", models.QueryModeSelection, "SELECTED TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildPrompt(tt.mode, "What is ROS 2?", evidence)
			require.NoError(t, err)

			assert.Contains(t, p, tt.wantLabel+":\nFirst chunk.\n\nSecond chunk.")
			assert.Contains(t, p, "using ONLY information from the provided "+tt.wantLabel)
			assert.True(t, strings.HasSuffix(p, "QUESTION: What is ROS 2?\nANSWER:"))
			assert.NotContains(t, p, "secret-file-name")
			assert.NotContains(t, p, "docs/")
		})
	}
}

func TestBuildPrompt_UnknownMode(t *testing.T) {
	_, err := BuildPrompt(models.QueryMode("chapter"), "q", nil)
	assert.Error(t, err)
}

func TestBuildPrompt_NoTemplateEscaping(t *testing.T) {
	p, err := BuildPrompt(models.QueryModeFullBook, "Is x < y & z?", models.Evidence{{Content: "<b>bold</b>"}})
	require.NoError(t, err)
	assert.Contains(t, p, "Is x < y & z?")
	assert.Contains(t, p, "<b>bold</b>")
}
