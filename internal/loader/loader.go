// Package loader supplies raw collection documents from file, URL, or the
// configured default source. It only parses; deciding what to do with the
// loaded map (bulk replace, re-enrichment) belongs to the caller.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/matsen/shelf/internal/paper"
)

// ErrNoSource indicates no default source is configured.
var ErrNoSource = errors.New("no collection source configured")

// httpTimeout bounds URL loads.
const httpTimeout = 30 * time.Second

// Parse decodes a collection document (full or light format) into a raw
// map. Light documents simply leave the bibliographic fields absent.
func Parse(data []byte) (map[string]paper.Paper, error) {
	var doc map[string]paper.Paper
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing collection document: %w", err)
	}
	return doc, nil
}

// LoadFile reads and parses a collection document from disk.
func LoadFile(path string) (map[string]paper.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collection file: %w", err)
	}
	return Parse(data)
}

// LoadURL fetches and parses a collection document over HTTP.
func LoadURL(ctx context.Context, rawURL string) (map[string]paper.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching collection: HTTP %d from %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading collection body: %w", err)
	}
	return Parse(data)
}

// LoadDefault loads from the configured default source URL.
func LoadDefault(ctx context.Context, sourceURL string) (map[string]paper.Paper, error) {
	if sourceURL == "" {
		return nil, ErrNoSource
	}
	return LoadURL(ctx, sourceURL)
}
