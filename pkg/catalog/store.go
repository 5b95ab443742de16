package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog record not found")

// MaxListSize caps list queries the way the original document store did;
// diagnose reports when a scan hits it.
const MaxListSize = 5000

// Filter narrows a list query. Zero values mean "any". IDs takes precedence
// over the other selectors when set.
type Filter struct {
	Status    Status
	Published *bool
	IDs       []string
	Limit     int
}

// Store is the contract the pipeline depends on: filtered lists, get by id,
// partial patch, upsert and delete. Nothing else.
type Store interface {
	List(ctx context.Context, f Filter) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Patch(ctx context.Context, id string, fields map[string]interface{}) error
	Upsert(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
}
