package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"github.com/guillermoBallester/estuary/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "estuary"

// Tool descriptions
const (
	descParseQuery = "Extract the data lineage graph of a single SQL statement without executing it. " +
		"Returns tables, columns, aliases, and the query itself as nodes, connected by typed edges: " +
		"which tables the query reads (sources), which columns flow into its output (flows_to), " +
		"which columns filter it (constrains), which columns pair up as join keys (uses), " +
		"and which table a mutation writes (modifies). " +
		"Works on SELECT, INSERT, UPDATE, DELETE, and CREATE/DROP/ALTER TABLE statements. " +
		"The extraction is pattern-based and never fails on unusual SQL: " +
		"what it cannot recognize it simply leaves out of the graph."

	descParseQueryParam = "The SQL statement to analyze (exactly one statement)"

	descDatabaseLineage = "Derive a merged lineage graph from the most frequently executed statements " +
		"of the connected database, read from pg_stat_statements. " +
		"Use this to map which tables and columns the real workload actually touches, " +
		"without access to the application's source code. " +
		"Returns the merged graph plus the statements it was derived from with their call counts."

	descDatabaseLineageParam = "Maximum number of statements to analyze, by call count descending (default 25)"
)

func RegisterTools(s *server.MCPServer, lineage *service.LineageService, statements *service.StatementService) {
	s.AddTool(
		mcp.NewTool("parse_query",
			mcp.WithDescription(descParseQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descParseQueryParam),
			),
		),
		parseQueryHandler(lineage),
	)

	if statements != nil {
		s.AddTool(
			mcp.NewTool("database_lineage",
				mcp.WithDescription(descDatabaseLineage),
				mcp.WithNumber("limit",
					mcp.Description(descDatabaseLineageParam),
				),
			),
			databaseLineageHandler(statements),
		)
	}
}

func parseQueryHandler(lineage *service.LineageService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithToolName(ctx, "parse_query")
		graph, err := lineage.Parse(ctx, sql)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
		}

		data, err := json.Marshal(graph)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func databaseLineageHandler(statements *service.StatementService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 0
		if v, ok := request.GetArguments()["limit"].(float64); ok {
			limit = int(v)
		}

		ctx = service.WithToolName(ctx, "database_lineage")
		result, err := statements.Lineage(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("database lineage failed: %v", err)), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}
