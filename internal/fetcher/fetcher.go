// Package fetcher issues marketplace API requests and decodes their JSON bodies.
package fetcher

import "context"

// Fetcher defines the interface for retrieving JSON documents.
type Fetcher interface {
	// FetchJSON GETs url and decodes the response body into out.
	FetchJSON(ctx context.Context, url string, out any) error
}
