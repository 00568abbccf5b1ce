package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermoBallester/estuary/internal/adapter/catalog"
	"github.com/guillermoBallester/estuary/internal/adapter/httpapi"
	"github.com/guillermoBallester/estuary/internal/adapter/mcp"
	"github.com/guillermoBallester/estuary/internal/adapter/postgres"
	"github.com/guillermoBallester/estuary/internal/adapter/remote"
	"github.com/guillermoBallester/estuary/internal/audit"
	"github.com/guillermoBallester/estuary/internal/config"
	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/guillermoBallester/estuary/internal/core/service"
	"github.com/guillermoBallester/estuary/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags builds config overrides from CLI arguments. Pointer fields are
// set only for flags that were actually passed.
func parseFlags(args []string) (config.Overrides, error) {
	var o config.Overrides

	fs := flag.NewFlagSet("estuary", flag.ContinueOnError)
	remoteURL := fs.String("remote-parser-url", "", "base URL of a remote lineage parser (empty = local extraction only)")
	remoteTimeout := fs.Duration("remote-timeout", 0, "timeout for remote parser calls")
	databaseURL := fs.String("database-url", "", "PostgreSQL connection URL for the database_lineage tool")
	statementLimit := fs.Int("statement-limit", 0, "max statements fetched from pg_stat_statements")
	catalogFile := fs.String("catalog-file", "", "path to a YAML table catalog")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	transport := fs.String("transport", "", "MCP transport: stdio or http")
	httpAddr := fs.String("http-addr", "", "listen address for HTTP transport")
	httpBearerToken := fs.String("http-bearer-token", "", "bearer token required by the HTTP transport")
	otelEnabled := fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	auditLog := fs.String("audit-log", "", "path to an NDJSON audit log file")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "remote-parser-url":
			o.RemoteParserURL = remoteURL
		case "remote-timeout":
			o.RemoteTimeout = remoteTimeout
		case "database-url":
			o.DatabaseURL = databaseURL
		case "statement-limit":
			o.StatementLimit = statementLimit
		case "catalog-file":
			o.CatalogFile = catalogFile
		case "log-level":
			o.LogLevel = logLevel
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "http-bearer-token":
			o.HTTPBearerToken = httpBearerToken
		case "otel":
			o.OTelEnabled = otelEnabled
		case "audit-log":
			o.AuditLog = auditLog
		}
	})

	return o, nil
}

func run() error {
	overrides, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting estuary",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("transport", cfg.Transport),
		slog.Bool("remote_parser", cfg.RemoteParserURL != ""),
		slog.Bool("database", cfg.DatabaseURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracer := telemetry.NoopTracer()
	var inst port.Instrumentation = port.NoopInstrumentation{}
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "estuary", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", slog.String("error", err.Error()))
			}
		}()
		tracer = otel.Tracer("estuary")
		inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	var auditor port.ParseAuditor = audit.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		auditor = fa
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			logger.Error("closing audit log", slog.String("error", err.Error()))
		}
	}()

	var annotator port.GraphAnnotator = port.NoopAnnotator{}
	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFromFile(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		annotator = cat
		logger.Info("catalog loaded", slog.String("file", cfg.CatalogFile))
	}

	var remoteParser port.LineageParser
	if cfg.RemoteParserURL != "" {
		remoteParser = remote.NewClient(cfg.RemoteParserURL, cfg.RemoteTimeout)
		logger.Info("remote parser configured", slog.String("url", cfg.RemoteParserURL))
	}

	lineageSvc := service.NewLineageService(remoteParser, auditor, annotator, logger, tracer, inst)

	var statementSvc *service.StatementService
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		logger.Info("database pool connected", slog.String("db.system", "postgresql"))

		statementSvc = service.NewStatementService(postgres.NewStatementSource(pool), annotator, logger, tracer, cfg.StatementLimit)
	}

	mcpServer := mcp.NewServer(version, lineageSvc, statementSvc, logger, tracer, inst)

	if cfg.Transport == "http" {
		return serveHTTP(ctx, cfg, mcpServer, lineageSvc, logger)
	}

	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// serveHTTP runs the MCP streamable transport and the parse API on one
// listener. Everything except /health requires the bearer token.
func serveHTTP(ctx context.Context, cfg *config.Config, mcpServer *mcpserver.MCPServer, lineage *service.LineageService, logger *slog.Logger) error {
	mux := http.NewServeMux()
	httpapi.NewHandler(lineage, logger).Register(mux)
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpServer))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           recoveryMiddleware(bearerAuthMiddleware(mux, cfg.HTTPBearerToken), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("serving MCP and parse API over HTTP", slog.String("addr", cfg.HTTPAddr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
