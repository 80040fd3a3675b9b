// Package crawler walks cursor-paginated marketplace listings into the store.
package crawler

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/divar-cli/internal/metrics"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

var (
	// ErrMissingPagination is returned when a listing page has no
	// infinite_scroll_response block.
	ErrMissingPagination = eris.New("crawler: listing page has no pagination block")

	// ErrPageLimit is returned when MaxPages is reached before has_next turned false.
	ErrPageLimit = eris.New("crawler: page limit reached")
)

// Lister fetches listing pages. *marketplace.Client implements it.
type Lister interface {
	ListStores(ctx context.Context, category, cursor string) (*model.ListingPage, error)
	ListStoreProducts(ctx context.Context, slug, cursor string) (*model.ListingPage, error)
}

// Result summarizes one crawl.
type Result struct {
	Pages int `json:"pages" yaml:"pages"`
	Items int `json:"items" yaml:"items"`
}

// Crawler appends every widget of every page to the collection named after
// the category or store slug.
type Crawler struct {
	lister Lister
	store  store.Store
	// MaxPages bounds the number of pages per crawl. Zero means unbounded.
	MaxPages int
}

// New creates a Crawler.
func New(lister Lister, st store.Store, maxPages int) *Crawler {
	return &Crawler{lister: lister, store: st, MaxPages: maxPages}
}

// Crawl walks the store listing of a category into NamedCollection[category].
func (c *Crawler) Crawl(ctx context.Context, category string) (Result, error) {
	return c.walk(ctx, category, func(ctx context.Context, cursor string) (*model.ListingPage, error) {
		return c.lister.ListStores(ctx, category, cursor)
	})
}

// CrawlStore walks one store's product listing into NamedCollection[slug].
func (c *Crawler) CrawlStore(ctx context.Context, slug string) (Result, error) {
	return c.walk(ctx, slug, func(ctx context.Context, cursor string) (*model.ListingPage, error) {
		return c.lister.ListStoreProducts(ctx, slug, cursor)
	})
}

type pageFunc func(ctx context.Context, cursor string) (*model.ListingPage, error)

// walk requests pages until has_next is false. Each page is persisted before
// the next one is requested, so a failure keeps everything fetched so far.
func (c *Crawler) walk(ctx context.Context, name string, next pageFunc) (Result, error) {
	log := zap.L().With(zap.String("collection", name))

	var res Result
	cursor := ""
	for {
		if c.MaxPages > 0 && res.Pages >= c.MaxPages {
			return res, eris.Wrapf(ErrPageLimit, "%s after %d pages", name, res.Pages)
		}

		page, err := next(ctx, cursor)
		if err != nil {
			return res, eris.Wrapf(err, "crawler: page %d of %s", res.Pages+1, name)
		}
		res.Pages++
		metrics.ObservePage(name)

		widgets := page.Widgets
		if widgets == nil {
			widgets = []json.RawMessage{}
		}
		if err := c.store.Append(ctx, name, widgets); err != nil {
			return res, eris.Wrapf(err, "crawler: persist page %d of %s", res.Pages, name)
		}
		res.Items += len(widgets)
		metrics.ObserveAppend(name, len(widgets))

		log.Debug("page stored",
			zap.Int("page", res.Pages),
			zap.Int("items", len(widgets)),
		)

		if page.Pagination == nil {
			return res, eris.Wrapf(ErrMissingPagination, "%s page %d", name, res.Pages)
		}
		if !page.Pagination.HasNext {
			log.Info("crawl complete",
				zap.Int("pages", res.Pages),
				zap.Int("items", res.Items),
			)
			return res, nil
		}
		cursor = page.Pagination.LastItemIdentifier
	}
}
