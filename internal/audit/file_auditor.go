package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/estuary/internal/core/port"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// fileEntry is the NDJSON-serializable form of an audit record. SQL is
// normalized (literals replaced by placeholders) so the log never retains
// query parameter values; the fingerprint gives equivalent statements a
// stable identity across entries.
type fileEntry struct {
	Timestamp   string  `json:"ts"`
	Tool        string  `json:"tool"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	SQL         string  `json:"sql"`
	Nodes       int     `json:"nodes"`
	Edges       int     `json:"edges"`
	DurationMS  int64   `json:"duration_ms"`
	Remote      bool    `json:"remote"`
	Error       *string `json:"error"`
}

// FileAuditor writes audit entries as NDJSON (one JSON object per line) to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.ParseEntry) {
	fe := fileEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Tool:       entry.Tool,
		SQL:        safeSQL(entry.SQL),
		Nodes:      entry.Nodes,
		Edges:      entry.Edges,
		DurationMS: entry.DurationMS,
		Remote:     entry.Remote,
	}
	if fp, err := pg_query.Fingerprint(entry.SQL); err == nil {
		fe.Fingerprint = fp
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; don't fail the request for audit I/O
}

// safeSQL replaces literals with placeholders. Statements pg_query cannot
// parse are logged verbatim; the extraction engine accepts text a full
// parser would reject.
func safeSQL(sql string) string {
	normalized, err := pg_query.Normalize(sql)
	if err != nil {
		return sql
	}
	return normalized
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.ParseEntry) {}
func (NoopAuditor) Close() error                            { return nil }
