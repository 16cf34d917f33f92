package sources

import "context"

// Source is the capability a metadata source plugin must provide.
// Implementations live outside this module (scraping is a collaborator
// concern); the store's album cache ships a built-in implementation.
type Source interface {
	// Name identifies the source in results and configuration.
	Name() string
	// Priority orders sources for priority-based merging; lower is
	// preferred.
	Priority() int
	// Search returns candidate albums for the query. An empty slice
	// means "no matches", an error means the source itself failed.
	Search(ctx context.Context, q Query) ([]Result, error)
	// Details fetches full metadata for one album page URL. A nil
	// result with nil error means the source does not know the URL.
	Details(ctx context.Context, url string) (*Result, error)
}
