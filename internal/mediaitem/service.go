// Package mediaitem is the CRUD service and repository for Media Items,
// grounded on the teacher's quality.Service pattern (raw pgx queries,
// typed sentinel errors) generalized to this domain's addressable
// content table.
package mediaitem

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Media Item does not exist.
var ErrNotFound = errors.New("media item not found")

// Service provides CRUD for Media Items and satisfies the MediaItem
// half of itemsource.Source.
type Service struct {
	db *pgxpool.Pool
}

// New creates a Service.
func New(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// MediaItem fetches one Media Item by id (itemsource.Source).
func (s *Service) MediaItem(ctx context.Context, id int64) (model.MediaItem, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, library_id, kind, title, sort_title, parent_id, position,
		       year, duration_ms, state, created_at, updated_at
		FROM media_items
		WHERE id = $1
	`, id)
	return scanMediaItem(row)
}

// List returns every Media Item belonging to a library, ordered by
// position then id. libraryID nil lists items with no library (e.g.
// manually created placeholders).
func (s *Service) List(ctx context.Context, libraryID *int64) ([]model.MediaItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, library_id, kind, title, sort_title, parent_id, position,
		       year, duration_ms, state, created_at, updated_at
		FROM media_items
		WHERE ($1::bigint IS NULL AND library_id IS NULL) OR library_id = $1
		ORDER BY position, id
	`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()

	var items []model.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Create inserts a new Media Item and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, item model.MediaItem) (model.MediaItem, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO media_items
			(library_id, kind, title, sort_title, parent_id, position, year, duration_ms, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, library_id, kind, title, sort_title, parent_id, position,
		          year, duration_ms, state, created_at, updated_at
	`, item.LibraryID, item.Kind, item.Title, item.SortTitle, item.ParentID,
		item.Position, item.Year, item.Duration.Milliseconds(), item.State)
	return scanMediaItem(row)
}

// Update overwrites the mutable fields of an existing Media Item.
func (s *Service) Update(ctx context.Context, item model.MediaItem) (model.MediaItem, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE media_items
		SET title = $2, sort_title = $3, position = $4, year = $5,
		    duration_ms = $6, state = $7, updated_at = now()
		WHERE id = $1
		RETURNING id, library_id, kind, title, sort_title, parent_id, position,
		          year, duration_ms, state, created_at, updated_at
	`, item.ID, item.Title, item.SortTitle, item.Position, item.Year,
		item.Duration.Milliseconds(), item.State)
	return scanMediaItem(row)
}

// Delete removes a Media Item by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM media_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaItem(row rowScanner) (model.MediaItem, error) {
	var item model.MediaItem
	var durationMs int64
	err := row.Scan(&item.ID, &item.LibraryID, &item.Kind, &item.Title, &item.SortTitle,
		&item.ParentID, &item.Position, &item.Year, &durationMs, &item.State,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MediaItem{}, ErrNotFound
		}
		return model.MediaItem{}, fmt.Errorf("scan media item: %w", err)
	}
	item.Duration = durationMillis(durationMs)
	return item, nil
}
