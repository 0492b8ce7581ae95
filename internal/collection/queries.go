package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fudoniten/pseudovision/internal/model"
)

func (r *Resolver) getCollection(ctx context.Context, id int64) (model.Collection, error) {
	var col model.Collection
	var configJSON []byte

	row := r.db.QueryRow(ctx, `
		SELECT id, name, kind, config, created_at, updated_at
		FROM collections
		WHERE id = $1
	`, id)

	if err := row.Scan(&col.ID, &col.Name, &col.Kind, &configJSON, &col.CreatedAt, &col.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Collection{}, ErrNotFound
		}
		return model.Collection{}, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &col.Config); err != nil {
			return model.Collection{}, fmt.Errorf("unmarshal collection config: %w", err)
		}
	}

	return col, nil
}

// resolveManual joins the manual-collection junction table, ordered by
// coalesce(custom_order, item_id) (spec §4.3).
func (r *Resolver) resolveManual(ctx context.Context, collectionID int64) ([]model.MediaItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT mi.id, mi.library_id, mi.kind, mi.title, mi.sort_title, mi.parent_id,
		       mi.position, mi.year, mi.duration_ms, mi.state, mi.created_at, mi.updated_at
		FROM collection_manual_items cmi
		JOIN media_items mi ON mi.id = cmi.media_item_id
		WHERE cmi.collection_id = $1
		ORDER BY COALESCE(cmi.custom_order, cmi.media_item_id)
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query manual collection items: %w", err)
	}
	defer rows.Close()

	return scanMediaItems(rows)
}

// resolveTrakt joins the trakt-sync mapping table, ordered by
// media_item_id (spec §4.3).
func (r *Resolver) resolveTrakt(ctx context.Context, collectionID int64) ([]model.MediaItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT mi.id, mi.library_id, mi.kind, mi.title, mi.sort_title, mi.parent_id,
		       mi.position, mi.year, mi.duration_ms, mi.state, mi.created_at, mi.updated_at
		FROM collection_trakt_items cti
		JOIN media_items mi ON mi.id = cti.media_item_id
		WHERE cti.collection_id = $1
		ORDER BY cti.media_item_id
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query trakt collection items: %w", err)
	}
	defer rows.Close()

	return scanMediaItems(rows)
}

// rowScanner is satisfied by both pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	rowScanner
	Next() bool
	Err() error
}

func scanMediaItems(rows rowsIter) ([]model.MediaItem, error) {
	var out []model.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanMediaItem(row rowScanner) (model.MediaItem, error) {
	var item model.MediaItem
	var durationMs int64
	if err := row.Scan(
		&item.ID, &item.LibraryID, &item.Kind, &item.Title, &item.SortTitle, &item.ParentID,
		&item.Position, &item.Year, &durationMs, &item.State, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return model.MediaItem{}, fmt.Errorf("scan media item: %w", err)
	}
	item.Duration = model.MillisToDuration(durationMs)
	return item, nil
}
