// Package collection resolves a Collection reference into an ordered
// list of Media Items (spec §4.3). The resolver is a pure dispatch over
// the six closed collection kinds (spec §9: "avoid open inheritance
// hierarchies — the six variants are closed").
package collection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/model"
)

// maxRecursionDepth bounds playlist/multi recursion. Cycles are out of
// scope (spec §4.3); a depth overflow is recorded as a warning and
// resolution of the offending branch stops rather than looping forever.
const maxRecursionDepth = 16

// Resolver expands Collection references to ordered Media Item lists.
type Resolver struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// New creates a Resolver backed by db.
func New(db *pgxpool.Pool, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// Resolve expands the collection identified by id into its ordered Media
// Item list, per the dispatch table in spec §4.3.
func (r *Resolver) Resolve(ctx context.Context, id int64) ([]model.MediaItem, error) {
	return r.resolveDepth(ctx, id, 0)
}

func (r *Resolver) resolveDepth(ctx context.Context, id int64, depth int) ([]model.MediaItem, error) {
	if depth > maxRecursionDepth {
		r.logger.Warn("collection recursion depth exceeded, returning empty",
			zap.Int64("collection_id", id), zap.Int("depth", depth))
		return nil, nil
	}

	col, err := r.getCollection(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load collection %d: %w", id, err)
	}

	switch col.Kind {
	case model.CollectionKindManual:
		return r.resolveManual(ctx, id)
	case model.CollectionKindPlaylist:
		return r.resolvePlaylist(ctx, col, depth)
	case model.CollectionKindMulti:
		return r.resolveMulti(ctx, col, depth)
	case model.CollectionKindTrakt:
		return r.resolveTrakt(ctx, id)
	case model.CollectionKindSmart, model.CollectionKindRerun:
		r.logger.Warn("collection kind deferred, returning empty",
			zap.Int64("collection_id", id), zap.String("kind", string(col.Kind)))
		return nil, nil
	default:
		r.logger.Error("unknown collection kind",
			zap.Int64("collection_id", id), zap.String("kind", string(col.Kind)))
		return nil, nil
	}
}

func (r *Resolver) resolvePlaylist(ctx context.Context, col model.Collection, depth int) ([]model.MediaItem, error) {
	var out []model.MediaItem
	for _, childID := range col.Config.Items {
		items, err := r.resolveDepth(ctx, childID, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (r *Resolver) resolveMulti(ctx context.Context, col model.Collection, depth int) ([]model.MediaItem, error) {
	var out []model.MediaItem
	for _, memberID := range col.Config.Members {
		items, err := r.resolveDepth(ctx, memberID, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
