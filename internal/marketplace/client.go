// Package marketplace builds marketplace API URLs and decodes their responses.
package marketplace

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/divar-cli/internal/fetcher"
	"github.com/sells-group/divar-cli/internal/model"
)

const (
	// DefaultBaseURL is the public marketplace API host.
	DefaultBaseURL = "https://api.divar.ir"
	// DefaultCity is the city segment used in category listings.
	DefaultCity = "tehran"
)

// Client is a typed client for the marketplace listing and contact endpoints.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	city    string
}

// NewClient creates a Client. Empty baseURL or city fall back to the defaults.
func NewClient(f fetcher.Fetcher, baseURL, city string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if city == "" {
		city = DefaultCity
	}
	return &Client{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		city:    city,
	}
}

// StoresURL returns the category listing URL for the given cursor.
func (c *Client) StoresURL(category, cursor string) string {
	return c.baseURL + "/v8/marketplace/stores-list/" + url.PathEscape(c.city) + "/" +
		url.PathEscape(category) + "?last_item_identifier=" + url.QueryEscape(cursor)
}

// StoreProductsURL returns the store listing URL for the given cursor.
func (c *Client) StoreProductsURL(slug, cursor string) string {
	return c.baseURL + "/v8/marketplace/w/landing2/" + url.PathEscape(slug) +
		"?last_item_identifier=" + url.QueryEscape(cursor)
}

// ContactURL returns the contact URL for a store.
func (c *Client) ContactURL(slug string) string {
	return c.baseURL + "/v8/marketplace/" + url.PathEscape(slug) + "/contact"
}

// ListStores fetches one page of stores in a category.
func (c *Client) ListStores(ctx context.Context, category, cursor string) (*model.ListingPage, error) {
	var page model.ListingPage
	if err := c.fetcher.FetchJSON(ctx, c.StoresURL(category, cursor), &page); err != nil {
		return nil, eris.Wrapf(err, "marketplace: list stores in %s", category)
	}
	return &page, nil
}

// ListStoreProducts fetches one page of a single store's listing.
func (c *Client) ListStoreProducts(ctx context.Context, slug, cursor string) (*model.ListingPage, error) {
	var page model.ListingPage
	if err := c.fetcher.FetchJSON(ctx, c.StoreProductsURL(slug, cursor), &page); err != nil {
		return nil, eris.Wrapf(err, "marketplace: list products of %s", slug)
	}
	return &page, nil
}

// Contact fetches the contact block of a store.
func (c *Client) Contact(ctx context.Context, slug string) (*model.ContactResponse, error) {
	var resp model.ContactResponse
	if err := c.fetcher.FetchJSON(ctx, c.ContactURL(slug), &resp); err != nil {
		return nil, eris.Wrapf(err, "marketplace: contact of %s", slug)
	}
	return &resp, nil
}
