package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/shelf/internal/doimeta"
	"github.com/matsen/shelf/internal/paper"
)

// Tagged-export errors, reported to the user with context.
var (
	// ErrNoTagSelected indicates a tagged export with an empty selection.
	ErrNoTagSelected = errors.New("no tag selected for tagged export")

	// ErrNoMatch indicates no record carries any selected tag.
	ErrNoMatch = errors.New("no record matches the selected tags")
)

// Exporter produces the BibTeX aggregate. Citation text is re-fetched from
// source for every record — never read from the bibliographic cache — so an
// export is always fresh.
type Exporter struct {
	client *doimeta.Client
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithDelay overrides the inter-request delay between record fetches.
func WithDelay(d time.Duration) ExporterOption {
	return func(e *Exporter) { e.delay = d }
}

// WithSleep overrides the sleep function (for deterministic tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExporterOption {
	return func(e *Exporter) { e.sleep = sleep }
}

// NewExporter creates a BibTeX exporter over the metadata client.
func NewExporter(client *doimeta.Client, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		client: client,
		delay:  doimeta.BatchDelay,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BibTeX renders the aggregate for records in order, one entry per record
// separated by a blank line. A record whose DOI cannot be resolved, or that
// has no DOI, contributes a synthesized minimal entry instead of being
// dropped. Fetches are sequential with the configured delay between them;
// cancelling ctx stops between records.
func (e *Exporter) BibTeX(ctx context.Context, records []Record) (string, error) {
	entries := make([]string, 0, len(records))
	fetched := false

	for _, r := range records {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if r.Paper.DOI == "" {
			entries = append(entries, synthesizeEntry(r.Key, r.Paper))
			continue
		}

		if fetched {
			if err := e.sleep(ctx, e.delay); err != nil {
				return "", err
			}
		}
		fetched = true

		bibtex, err := e.client.FetchBibTeX(ctx, r.Paper.DOI)
		if err != nil {
			entries = append(entries, synthesizeEntry(r.Key, r.Paper))
			continue
		}
		if doimeta.ParseBibInfo(bibtex).Pages == "" {
			if pages, err := e.client.FetchPages(ctx, r.Paper.DOI); err == nil && pages != "" {
				bibtex = doimeta.AddPagesToBibtex(bibtex, pages)
			}
		}
		entries = append(entries, bibtex)
	}

	return strings.Join(entries, "\n\n"), nil
}

// BibTeXTagged renders the aggregate restricted to records carrying at
// least one selected tag.
func (e *Exporter) BibTeXTagged(ctx context.Context, records []Record, selected map[string]bool) (string, error) {
	if len(selected) == 0 {
		return "", ErrNoTagSelected
	}

	var matched []Record
	for _, r := range records {
		if r.Paper.HasAnyTag(selected) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return "", ErrNoMatch
	}

	return e.BibTeX(ctx, matched)
}

// synthesizeEntry builds the minimal entry for a record without resolvable
// citation text: at least the key as title, plus the DOI when present.
func synthesizeEntry(key string, p paper.Paper) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("@misc{%s,\n", key))
	b.WriteString(fmt.Sprintf("  title = {%s}", key))
	if p.DOI != "" {
		b.WriteString(fmt.Sprintf(",\n  doi = {%s}", p.DOI))
	}
	b.WriteString("\n}")
	return b.String()
}
