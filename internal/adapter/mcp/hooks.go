package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// inflight tracks one tool call between the before hook and whichever of the
// after/error hooks fires for it.
type inflight struct {
	start time.Time
	span  trace.Span
}

// ToolCallHooks wires logging, the tool-duration metric, and span lifecycle
// around every tool call the server handles.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	var calls sync.Map // request id -> *inflight

	settle := func(id any) (time.Duration, trace.Span) {
		v, ok := calls.LoadAndDelete(id)
		if !ok {
			return 0, nil
		}
		c := v.(*inflight)
		return time.Since(c.start), c.span
	}

	logCall := func(ctx context.Context, tool string, d time.Duration, failed bool, callErr error) {
		attrs := []slog.Attr{
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", tool),
			slog.Duration("duration", d),
			slog.Bool("error", failed),
		}
		if callErr != nil {
			attrs = append(attrs, slog.String("error.message", callErr.Error()))
		}
		level := slog.LevelInfo
		if failed {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "tool call", attrs...)
	}

	hooks := &server.Hooks{}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		c := &inflight{start: time.Now()}
		if tracer != nil {
			_, c.span = tracer.Start(ctx, "mcp.tool.call",
				trace.WithAttributes(
					attribute.String("mcp.tool", req.Params.Name),
				),
			)
		}
		calls.Store(id, c)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		d, span := settle(id)

		failed := false
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			failed = true
		}
		logCall(ctx, req.Params.Name, d, failed, nil)

		if inst != nil {
			inst.RecordToolDuration(ctx, float64(d.Milliseconds()))
		}
		if span != nil {
			if failed {
				span.SetStatus(codes.Error, "tool returned error")
				span.RecordError(fmt.Errorf("tool %s returned error", req.Params.Name))
			}
			span.End()
		}
	})

	// Protocol-level failures (bad arguments, unknown tool) never reach the
	// after hook, so the span is closed here.
	hooks.AddOnError(func(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
		d, span := settle(id)

		if req, ok := message.(*mcp.CallToolRequest); ok {
			logCall(ctx, req.Params.Name, d, true, err)
		}
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		}
	})

	return hooks
}
