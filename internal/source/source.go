package source

import (
	"context"
	"errors"

	"github.com/kantxie-coder/cryptosage/internal/entity"
)

// ErrNotListed reports that a source does not carry the asset at all. It is
// returned before any network round trip and is an ordinary "no quote here"
// outcome for the resolver, not a fetch failure.
var ErrNotListed = errors.New("asset not listed on source")

// Source resolves one asset id to a normalized quote. Implementations absorb
// nothing: any failure comes back as an error and the caller decides whether
// a later source gets a turn.
type Source interface {
	Name() entity.SourceName
	Lookup(ctx context.Context, id string) (entity.Quote, error)
}

// Batcher is an optional capability for sources that resolve many ids in one
// round trip. The resolver discovers it by type assertion and prefers it over
// per-id lookups.
type Batcher interface {
	LookupBatch(ctx context.Context, ids []string) (entity.QuoteSet, error)
}
