package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Collection does not exist.
var ErrNotFound = errors.New("collection not found")

// Service provides CRUD for Collections, separate from Resolver's
// read-only expansion so the build engine's hot path stays free of
// mutation concerns.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a Service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List returns every Collection.
func (s *Service) List(ctx context.Context) ([]model.Collection, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, kind, config, created_at, updated_at
		FROM collections
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var cols []model.Collection
	for rows.Next() {
		col, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// Get fetches a Collection by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Collection, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, kind, config, created_at, updated_at
		FROM collections
		WHERE id = $1
	`, id)
	return scanCollection(row)
}

// Create inserts a new Collection.
func (s *Service) Create(ctx context.Context, col model.Collection) (model.Collection, error) {
	cfgJSON, err := json.Marshal(col.Config)
	if err != nil {
		return model.Collection{}, fmt.Errorf("marshal collection config: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO collections (name, kind, config)
		VALUES ($1, $2, $3)
		RETURNING id, name, kind, config, created_at, updated_at
	`, col.Name, col.Kind, cfgJSON)
	return scanCollection(row)
}

// Update overwrites the mutable fields of an existing Collection.
func (s *Service) Update(ctx context.Context, col model.Collection) (model.Collection, error) {
	cfgJSON, err := json.Marshal(col.Config)
	if err != nil {
		return model.Collection{}, fmt.Errorf("marshal collection config: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		UPDATE collections
		SET name = $2, kind = $3, config = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, kind, config, created_at, updated_at
	`, col.ID, col.Name, col.Kind, cfgJSON)
	return scanCollection(row)
}

// Delete removes a Collection by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetManualItems replaces a manual collection's ordered item list.
func (s *Service) SetManualItems(ctx context.Context, collectionID int64, mediaItemIDs []int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin manual items transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM collection_manual_items WHERE collection_id = $1`, collectionID); err != nil {
		return fmt.Errorf("clear manual items: %w", err)
	}
	for order, itemID := range mediaItemIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO collection_manual_items (collection_id, media_item_id, custom_order)
			VALUES ($1, $2, $3)
		`, collectionID, itemID, order); err != nil {
			return fmt.Errorf("insert manual item %d: %w", itemID, err)
		}
	}
	return tx.Commit(ctx)
}

func scanCollection(row rowScanner) (model.Collection, error) {
	var col model.Collection
	var configJSON []byte
	err := row.Scan(&col.ID, &col.Name, &col.Kind, &configJSON, &col.CreatedAt, &col.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Collection{}, ErrNotFound
		}
		return model.Collection{}, fmt.Errorf("scan collection: %w", err)
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &col.Config); err != nil {
			return model.Collection{}, fmt.Errorf("unmarshal collection config: %w", err)
		}
	}
	return col, nil
}
