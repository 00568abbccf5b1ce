package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guillermoBallester/estuary/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Client talks to a remote lineage parser over HTTP. Implements
// port.LineageParser; callers treat any error as a cue to fall back to
// local extraction.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Query string `json:"query"`
}

type parseError struct {
	Detail string `json:"detail"`
}

// Parse posts the statement to the remote /parse endpoint and decodes the
// graph from the response.
func (c *Client) Parse(ctx context.Context, sql string) (*domain.LineageGraph, error) {
	body, err := json.Marshal(parseRequest{Query: sql})
	if err != nil {
		return nil, fmt.Errorf("encoding parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling remote parser: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var pe parseError
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&pe); decodeErr == nil && pe.Detail != "" {
			return nil, fmt.Errorf("remote parser: %s (status %d)", pe.Detail, resp.StatusCode)
		}
		return nil, fmt.Errorf("remote parser: unexpected status %d", resp.StatusCode)
	}

	var graph domain.LineageGraph
	if err := json.NewDecoder(resp.Body).Decode(&graph); err != nil {
		return nil, fmt.Errorf("decoding parse response: %w", err)
	}
	return &graph, nil
}
