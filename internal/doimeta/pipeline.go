package doimeta

import (
	"context"
	"time"

	"github.com/matsen/shelf/internal/bibcache"
	"github.com/matsen/shelf/internal/paper"
)

const (
	// BatchDelay is the inter-request delay during bulk enrichment.
	BatchDelay = 1000 * time.Millisecond

	// FetchToolDelay is the inter-request delay used by the standalone
	// multi-DOI retrieval tool, which shares this pipeline's extraction
	// logic but is politer to the upstream services.
	FetchToolDelay = 2000 * time.Millisecond
)

// Result is the outcome of enriching one citation key. A failed primary
// fetch leaves BibTeX empty, BibInfo as the key-as-title fallback, and Err
// describing the failure; secondary lookups (pages, abstract) degrade
// silently to absent values.
type Result struct {
	Key      string
	DOI      string
	BibTeX   string
	BibInfo  paper.BibInfo
	Abstract *string
	Cached   bool
	Err      error
}

// Item names one citation key and its DOI for batch enrichment.
type Item struct {
	Key string
	DOI string
}

// Pipeline combines the metadata client with the bibliographic cache and
// the batch pacing contract.
type Pipeline struct {
	client *Client
	cache  *bibcache.Cache
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDelay overrides the inter-request batch delay.
func WithDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.delay = d }
}

// WithSleep overrides the sleep function (for deterministic batch tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) PipelineOption {
	return func(p *Pipeline) { p.sleep = sleep }
}

// NewPipeline creates an enrichment pipeline. cache may be nil, in which
// case every lookup goes to the network.
func NewPipeline(client *Client, cache *bibcache.Cache, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client: client,
		cache:  cache,
		delay:  BatchDelay,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client exposes the underlying metadata client, used by export paths that
// must bypass the cache.
func (p *Pipeline) Client() *Client {
	return p.client
}

// Enrich resolves metadata for one citation key. The cache is consulted
// before any network call; a fresh result is written back to it. A result
// fetched before its citation key is known (empty key) is not cached; the
// caller caches it under the final key.
func (p *Pipeline) Enrich(ctx context.Context, key, doi string) Result {
	if hit, ok := p.lookup(key, doi); ok {
		return hit
	}

	res := p.fetch(ctx, key, doi)
	if p.cache != nil && res.Err == nil && key != "" {
		p.cache.Put(key, res.BibTeX, res.BibInfo, res.Abstract)
	}
	return res
}

// lookup consults the cache for a key.
func (p *Pipeline) lookup(key, doi string) (Result, bool) {
	if p.cache == nil || key == "" {
		return Result{}, false
	}
	e, ok := p.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	return Result{
		Key:      key,
		DOI:      doi,
		BibTeX:   e.BibTeX,
		BibInfo:  e.BibInfo,
		Abstract: e.Abstract,
		Cached:   true,
	}, true
}

// fetch runs the full network chain for one DOI.
func (p *Pipeline) fetch(ctx context.Context, key, doi string) Result {
	res := Result{Key: key, DOI: doi}

	if doi == "" {
		res.BibInfo = paper.FallbackBibInfo(key)
		return res
	}

	bibtex, err := p.client.FetchBibTeX(ctx, doi)
	if err != nil {
		// No BibTeX is an expected outcome, not a batch-fatal one.
		res.Err = err
		res.BibInfo = paper.FallbackBibInfo(key)
		return res
	}
	res.BibTeX = bibtex
	res.BibInfo = ParseBibInfo(bibtex)

	if res.BibInfo.Pages == "" {
		if pages, err := p.client.FetchPages(ctx, doi); err == nil && pages != "" {
			res.BibTeX = AddPagesToBibtex(res.BibTeX, pages)
			res.BibInfo.Pages = pages
		}
	}

	if abstract, err := p.client.FetchAbstract(ctx, doi); err == nil {
		res.Abstract = abstract
	}

	return res
}

// EnrichBatch enriches a batch of items strictly sequentially, sleeping the
// configured delay between successive network fetch chains (none before the
// first or after the last, and none around cache hits). Per-item failures
// are recorded on the item's Result; the batch continues. Cancelling ctx
// stops the batch between items.
//
// Freshly fetched results are committed to the cache in one bulk write at
// the end of the batch, which bounds the write to the cache's batch limit
// rather than churning per item.
func (p *Pipeline) EnrichBatch(ctx context.Context, items []Item, progress func(i, total int, res Result)) []Result {
	results := make([]Result, 0, len(items))
	var fresh []bibcache.Entry
	fetched := false

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}

		res, hit := p.lookup(item.Key, item.DOI)
		if !hit {
			if item.DOI != "" {
				if fetched {
					if err := p.sleep(ctx, p.delay); err != nil {
						break
					}
				}
				fetched = true
			}
			res = p.fetch(ctx, item.Key, item.DOI)
			if res.Err == nil && res.DOI != "" {
				fresh = append(fresh, bibcache.Entry{
					Key:      res.Key,
					BibTeX:   res.BibTeX,
					BibInfo:  res.BibInfo,
					Abstract: res.Abstract,
				})
			}
		}
		results = append(results, res)
		if progress != nil {
			progress(i+1, len(items), res)
		}
	}

	if p.cache != nil && len(fresh) > 0 {
		p.cache.PutMany(fresh)
	}
	return results
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
