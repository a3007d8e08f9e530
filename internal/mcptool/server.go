package mcptool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ServerName is the implementation name reported to MCP clients
const ServerName = "grounded-qa"

// NewServer builds an MCP server exposing the book tools. counters may be
// nil, in which case pipeline_metrics is not offered.
func NewServer(processor QueryProcessor, counters PipelineCounters, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	mcp.AddTool(server, MetadataAskBook, NewAskBook(processor).Handle)
	if counters != nil {
		mcp.AddTool(server, MetadataPipelineMetrics, NewPipelineMetrics(counters).Handle)
	}
	return server
}

// ServeStdio runs the server over stdin/stdout until ctx is cancelled or the
// client disconnects. Logs must not go to stdout while this runs.
func ServeStdio(ctx context.Context, server *mcp.Server, logger *zap.Logger) error {
	logger.Info("mcp server listening on stdio", zap.String("name", ServerName))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
