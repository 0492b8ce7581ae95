// Package itemsource is the small seam between the build engine (Slot
// Dispatcher, Filler Engine) and the two ways a Slot or Filler Preset
// can name content: a Collection to expand, or a single Media Item.
// Keeping it as its own interface — rather than having those packages
// import collection and mediaitem directly — is what lets the build
// engine's tests run against an in-memory fixture instead of a real
// database.
package itemsource

import (
	"context"

	"github.com/fudoniten/pseudovision/internal/model"
)

// Source resolves the two content-source shapes shared by Slot and
// FillerPreset (spec §3: "exactly one of collection_id or
// media_item_id").
type Source interface {
	CollectionItems(ctx context.Context, collectionID int64) ([]model.MediaItem, error)
	MediaItem(ctx context.Context, id int64) (model.MediaItem, error)
}

// PresetLookup resolves a Filler Preset by id. The Slot Dispatcher uses
// it to turn a slot/channel filler override into the preset the Filler
// Engine should run.
type PresetLookup interface {
	FillerPreset(ctx context.Context, id int64) (model.FillerPreset, error)
}

// ItemsFor resolves the content source shared by Slot and FillerPreset:
// exactly one of collectionID/mediaItemID is non-nil.
func ItemsFor(ctx context.Context, src Source, collectionID, mediaItemID *int64) ([]model.MediaItem, error) {
	if collectionID != nil {
		return src.CollectionItems(ctx, *collectionID)
	}
	if mediaItemID == nil {
		return nil, nil
	}
	item, err := src.MediaItem(ctx, *mediaItemID)
	if err != nil {
		return nil, err
	}
	return []model.MediaItem{item}, nil
}
