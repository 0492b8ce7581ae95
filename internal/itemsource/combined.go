package itemsource

import (
	"context"

	"github.com/fudoniten/pseudovision/internal/model"
)

// collectionResolver is the subset of collection.Resolver's surface
// this adapter needs.
type collectionResolver interface {
	Resolve(ctx context.Context, id int64) ([]model.MediaItem, error)
}

// mediaItemGetter is the subset of mediaitem.Service's surface this
// adapter needs.
type mediaItemGetter interface {
	MediaItem(ctx context.Context, id int64) (model.MediaItem, error)
}

// combined joins a Collection resolver and a Media Item service into a
// single Source, the shape the Slot Dispatcher and Filler Engine are
// wired against in production (tests use their own single-struct
// fakes instead).
type combined struct {
	collections collectionResolver
	items       mediaItemGetter
}

// Combine builds a Source backed by a real collection.Resolver and a
// real mediaitem.Service, keeping both packages ignorant of each
// other and of the build engine.
func Combine(collections collectionResolver, items mediaItemGetter) Source {
	return &combined{collections: collections, items: items}
}

func (c *combined) CollectionItems(ctx context.Context, collectionID int64) ([]model.MediaItem, error) {
	return c.collections.Resolve(ctx, collectionID)
}

func (c *combined) MediaItem(ctx context.Context, id int64) (model.MediaItem, error) {
	return c.items.MediaItem(ctx, id)
}
