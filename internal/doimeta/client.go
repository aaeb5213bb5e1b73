// Package doimeta turns a bare DOI into structured bibliographic fields, an
// abstract, and page numbers by combining three remote metadata services:
// the doi.org content-negotiation endpoint (BibTeX), Crossref (pages and
// curated abstracts), and Semantic Scholar (fallback abstracts).
package doimeta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DOIBaseURL resolves DOIs to BibTeX via content negotiation.
	DOIBaseURL = "https://doi.org"

	// CrossrefBaseURL is the Crossref works API.
	CrossrefBaseURL = "https://api.crossref.org"

	// S2BaseURL is the Semantic Scholar Graph API.
	S2BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout bounds every metadata request.
	DefaultTimeout = 15 * time.Second

	// RateLimit is the per-second politeness budget shared by all calls.
	RateLimit = 5.0
)

// jatsTagRe strips JATS markup from Crossref abstracts.
var jatsTagRe = regexp.MustCompile(`</?jats:[^>]*>`)

// Client is a rate-limited HTTP client for the three metadata services.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	doiBase      string
	crossrefBase string
	s2Base       string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithDOIBaseURL overrides the doi.org endpoint (for testing).
func WithDOIBaseURL(u string) ClientOption {
	return func(c *Client) { c.doiBase = u }
}

// WithCrossrefBaseURL overrides the Crossref endpoint (for testing).
func WithCrossrefBaseURL(u string) ClientOption {
	return func(c *Client) { c.crossrefBase = u }
}

// WithS2BaseURL overrides the Semantic Scholar endpoint (for testing).
func WithS2BaseURL(u string) ClientOption {
	return func(c *Client) { c.s2Base = u }
}

// NewClient creates a metadata client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(RateLimit), 1),
		doiBase:      DOIBaseURL,
		crossrefBase: CrossrefBaseURL,
		s2Base:       S2BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one rate-limited GET and returns the body for 2xx responses.
func (c *Client) get(ctx context.Context, service, rawURL, accept, doi string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", "shelf-cli")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, doi)
	}
	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, service)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Service: service, StatusCode: resp.StatusCode, DOI: doi}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	return body, nil
}

// FetchBibTeX resolves a DOI to BibTeX text. An unresolvable DOI or failed
// request returns an error the caller is expected to treat as "no BibTeX"
// rather than a fatal condition.
func (c *Client) FetchBibTeX(ctx context.Context, doi string) (string, error) {
	u := fmt.Sprintf("%s/%s", c.doiBase, url.PathEscape(doi))
	body, err := c.get(ctx, "doi.org", u, "application/x-bibtex; charset=utf-8", doi)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("%w: empty BibTeX for %s", ErrInvalidResponse, doi)
	}
	return text, nil
}

// crossrefWork is the slice of the Crossref works response we consume.
type crossrefWork struct {
	Message struct {
		Page          string `json:"page"`
		ArticleNumber string `json:"article-number"`
		Abstract      string `json:"abstract"`
	} `json:"message"`
}

// fetchCrossrefWork fetches and decodes the Crossref record for a DOI.
func (c *Client) fetchCrossrefWork(ctx context.Context, doi string) (*crossrefWork, error) {
	u := fmt.Sprintf("%s/works/%s", c.crossrefBase, url.PathEscape(doi))
	body, err := c.get(ctx, "Crossref", u, "application/json", doi)
	if err != nil {
		return nil, err
	}
	var work crossrefWork
	if err := json.Unmarshal(body, &work); err != nil {
		return nil, fmt.Errorf("%w: parsing Crossref record: %v", ErrInvalidResponse, err)
	}
	return &work, nil
}

// FetchPages queries Crossref for a page range, falling back to the article
// number as a pages substitute. Empty string means nothing was found.
func (c *Client) FetchPages(ctx context.Context, doi string) (string, error) {
	work, err := c.fetchCrossrefWork(ctx, doi)
	if err != nil {
		return "", err
	}
	if work.Message.Page != "" {
		return work.Message.Page, nil
	}
	return work.Message.ArticleNumber, nil
}

// FetchAbstract resolves an abstract for a DOI: Crossref first (curated
// coverage), Semantic Scholar as the broader fallback. Returns nil if both
// yield nothing. The fallback order is a hard contract.
func (c *Client) FetchAbstract(ctx context.Context, doi string) (*string, error) {
	if work, err := c.fetchCrossrefWork(ctx, doi); err == nil {
		if text := cleanAbstract(work.Message.Abstract); text != "" {
			return &text, nil
		}
	}

	u := fmt.Sprintf("%s/paper/DOI:%s?fields=abstract", c.s2Base, url.PathEscape(doi))
	body, err := c.get(ctx, "Semantic Scholar", u, "application/json", doi)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Abstract *string `json:"abstract"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing abstract: %v", ErrInvalidResponse, err)
	}
	if resp.Abstract == nil || strings.TrimSpace(*resp.Abstract) == "" {
		return nil, nil
	}
	text := strings.TrimSpace(*resp.Abstract)
	return &text, nil
}

// cleanAbstract strips JATS markup and surrounding whitespace from a
// Crossref abstract.
func cleanAbstract(raw string) string {
	return strings.TrimSpace(jatsTagRe.ReplaceAllString(raw, ""))
}
