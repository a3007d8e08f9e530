package mcptool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/upb/grounded-qa/internal/observability"
)

// PipelineCounters exposes the pipeline outcome counters
type PipelineCounters interface {
	Snapshot() observability.MetricsSnapshot
}

// MetadataPipelineMetrics describes the pipeline_metrics tool.
var MetadataPipelineMetrics = &mcp.Tool{
	Name:        "pipeline_metrics",
	Description: "Report how many questions this server answered, refused or failed since it started, with average latency.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputPipelineMetrics is the (empty) input for the pipeline_metrics tool.
type InputPipelineMetrics struct{}

// PipelineMetrics reads counters for the pipeline_metrics tool
type PipelineMetrics struct {
	counters PipelineCounters
}

// NewPipelineMetrics creates the pipeline_metrics tool handler
func NewPipelineMetrics(counters PipelineCounters) *PipelineMetrics {
	return &PipelineMetrics{counters: counters}
}

// Handle returns the current counter snapshot
func (p *PipelineMetrics) Handle(_ context.Context, _ *mcp.CallToolRequest, _ InputPipelineMetrics) (*mcp.CallToolResult, observability.MetricsSnapshot, error) {
	return nil, p.counters.Snapshot(), nil
}
