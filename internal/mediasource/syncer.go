// Package mediasource mirrors external libraries into draft Media
// Items (spec §4.8), and provides the CRUD service/repository for
// Media Source and Library rows.
//
// Sync runs synchronously in the goroutine of its caller (the HTTP
// sync handler); it is not started as a background task. It never runs
// inside a build transaction, so a slow or stalled filesystem walk or
// Jellyfin poll delays only that request and never holds the playouts
// row lock the Build Driver depends on.
package mediasource

import (
	"context"
	"time"

	"github.com/fudoniten/pseudovision/internal/model"
)

// DraftItem is a Media Item discovered by a Syncer but not yet
// reconciled against the media_items table. Path is the syncer's
// stable identity for the item (a filesystem path for "local", an
// item id for "jellyfin") used to match it to an existing row across
// repeated syncs.
type DraftItem struct {
	Path     string
	Kind     model.MediaKind
	Title    string
	Year     *int32
	Duration time.Duration
	State    model.MediaItemState
}

// Syncer mirrors one kind of external library into draft Media Items.
// The two built-in kinds (local, jellyfin) are wired in-process; a
// third kind could be added behind the same interface without
// touching the sync service or the build engine, and an out-of-process
// implementation could be bridged in over the same Syncer surface
// using hashicorp/go-plugin's net/rpc transport (see plugin.go).
type Syncer interface {
	// Sync walks/polls the library described by cfg and returns every
	// item it currently sees. It does not write to the database;
	// reconciliation against existing media_items rows is the caller's
	// job (Service.SyncLibrary).
	Sync(ctx context.Context, cfg model.ConnectionConfig) ([]DraftItem, error)
}

// Registry resolves a Media Source's kind to the Syncer that handles it.
type Registry struct {
	syncers map[model.MediaSourceKind]Syncer
}

// NewRegistry builds a Registry with the two built-in syncers wired in.
func NewRegistry() *Registry {
	return &Registry{
		syncers: map[model.MediaSourceKind]Syncer{
			model.MediaSourceKindLocal:    NewLocalSyncer(),
			model.MediaSourceKindJellyfin: NewJellyfinSyncer(nil),
		},
	}
}

// Register installs or overrides the Syncer for a kind, letting
// callers (tests, an out-of-process plugin bridge) substitute a
// different implementation without touching the registry's wiring.
func (r *Registry) Register(kind model.MediaSourceKind, syncer Syncer) {
	r.syncers[kind] = syncer
}

// For resolves kind to its Syncer, or reports ErrUnknownKind.
func (r *Registry) For(kind model.MediaSourceKind) (Syncer, error) {
	syncer, ok := r.syncers[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return syncer, nil
}
