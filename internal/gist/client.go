// Package gist is the document-store collaborator: a rate-limited client
// for the GitHub Gists API that lists, reads, creates, and updates one
// named JSON blob, plus the session check the authentication collaborator
// exposes. Storage semantics beyond that are owned by GitHub.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the GitHub API base URL.
	BaseURL = "https://api.github.com"

	// DefaultTimeout bounds every API request.
	DefaultTimeout = 15 * time.Second

	// RateLimit stays well under GitHub's authenticated budget.
	RateLimit = 2.0
)

// Errors returned by the gist client.
var (
	ErrNoToken      = errors.New("no GitHub token (set GITHUB_TOKEN)")
	ErrUnauthorized = errors.New("GitHub authentication failed")
	ErrNotFound     = errors.New("gist not found")
	ErrRateLimited  = errors.New("GitHub API rate limit exceeded")
	ErrAPIError     = errors.New("GitHub API error")
	ErrNetworkError = errors.New("network error connecting to GitHub")
)

// User identifies the authenticated session owner.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Info summarizes one gist from a listing.
type Info struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
	UpdatedAt   string   `json:"updated_at"`
}

// Client is a rate-limited GitHub Gists API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithToken sets the API token explicitly.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a gist client. It reads GITHUB_TOKEN from the
// environment unless a token option overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		token:      os.Getenv("GITHUB_TOKEN"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one rate-limited request and decodes the JSON response into
// out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return ErrNoToken
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "shelf-cli")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 401:
		return ErrUnauthorized
	case resp.StatusCode == 404:
		return ErrNotFound
	case resp.StatusCode == 403 || resp.StatusCode == 429:
		return ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrAPIError, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrAPIError, err)
	}
	return nil
}

// CheckSession reports whether a session is active and for which user.
func (c *Client) CheckSession(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// gistDoc is the wire shape of one gist.
type gistDoc struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Public      *bool  `json:"public,omitempty"`
	Files       map[string]struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated,omitempty"`
		RawURL    string `json:"raw_url,omitempty"`
	} `json:"files"`
}

// List returns the authenticated user's gists that contain the given
// filename. An empty filename lists everything.
func (c *Client) List(ctx context.Context, filename string) ([]Info, error) {
	var docs []gistDoc
	if err := c.do(ctx, http.MethodGet, "/gists?per_page=100", nil, &docs); err != nil {
		return nil, err
	}

	var infos []Info
	for _, d := range docs {
		files := make([]string, 0, len(d.Files))
		match := filename == ""
		for name := range d.Files {
			files = append(files, name)
			if name == filename {
				match = true
			}
		}
		if match {
			infos = append(infos, Info{ID: d.ID, Description: d.Description, Files: files, UpdatedAt: d.UpdatedAt})
		}
	}
	return infos, nil
}

// Get fetches the content of the named file inside a gist.
func (c *Client) Get(ctx context.Context, id, filename string) ([]byte, error) {
	var doc gistDoc
	if err := c.do(ctx, http.MethodGet, "/gists/"+id, nil, &doc); err != nil {
		return nil, err
	}

	file, ok := doc.Files[filename]
	if !ok {
		return nil, fmt.Errorf("%w: file %q in gist %s", ErrNotFound, filename, id)
	}
	if file.Truncated {
		return c.fetchRaw(ctx, file.RawURL)
	}
	return []byte(file.Content), nil
}

// Create makes a new secret gist holding the named file and returns its ID.
func (c *Client) Create(ctx context.Context, filename, description string, content []byte) (string, error) {
	public := false
	req := map[string]any{
		"description": description,
		"public":      public,
		"files": map[string]any{
			filename: map[string]string{"content": string(content)},
		},
	}
	var doc gistDoc
	if err := c.do(ctx, http.MethodPost, "/gists", req, &doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Update replaces the named file's content in an existing gist.
func (c *Client) Update(ctx context.Context, id, filename string, content []byte) error {
	req := map[string]any{
		"files": map[string]any{
			filename: map[string]string{"content": string(content)},
		},
	}
	return c.do(ctx, http.MethodPatch, "/gists/"+id, req, nil)
}

// fetchRaw downloads truncated file content from its raw URL.
func (c *Client) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d fetching raw content", ErrAPIError, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
