package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/guillermoBallester/estuary/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with tools and logging hooks. statements
// may be nil when no database is configured; the database_lineage tool is
// then simply not registered.
func NewServer(version string, lineage *service.LineageService, statements *service.StatementService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, lineage, statements)

	return s
}
