// Package fillerpreset is the CRUD service and repository for Filler
// Presets, and satisfies itemsource.PresetLookup for the Slot
// Dispatcher's tail-filler resolution.
package fillerpreset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Filler Preset does not exist.
var ErrNotFound = errors.New("filler preset not found")

// Service provides CRUD for Filler Presets.
type Service struct {
	db *pgxpool.Pool
}

// New creates a Service.
func New(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// FillerPreset fetches a Filler Preset by id (itemsource.PresetLookup).
func (s *Service) FillerPreset(ctx context.Context, id int64) (model.FillerPreset, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, role, mode, count, pad_to_nearest_minute, collection_id, media_item_id
		FROM filler_presets
		WHERE id = $1
	`, id)
	return scanPreset(row)
}

// List returns every Filler Preset.
func (s *Service) List(ctx context.Context) ([]model.FillerPreset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, role, mode, count, pad_to_nearest_minute, collection_id, media_item_id
		FROM filler_presets
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list filler presets: %w", err)
	}
	defer rows.Close()

	var presets []model.FillerPreset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

// Create inserts a new Filler Preset.
func (s *Service) Create(ctx context.Context, preset model.FillerPreset) (model.FillerPreset, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO filler_presets (name, role, mode, count, pad_to_nearest_minute, collection_id, media_item_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, role, mode, count, pad_to_nearest_minute, collection_id, media_item_id
	`, preset.Name, preset.Role, preset.Mode, preset.Count, preset.PadToNearestMinute,
		preset.CollectionID, preset.MediaItemID)
	return scanPreset(row)
}

// Update overwrites the mutable fields of an existing Filler Preset.
func (s *Service) Update(ctx context.Context, preset model.FillerPreset) (model.FillerPreset, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE filler_presets
		SET name = $2, role = $3, mode = $4, count = $5, pad_to_nearest_minute = $6,
		    collection_id = $7, media_item_id = $8
		WHERE id = $1
		RETURNING id, name, role, mode, count, pad_to_nearest_minute, collection_id, media_item_id
	`, preset.ID, preset.Name, preset.Role, preset.Mode, preset.Count,
		preset.PadToNearestMinute, preset.CollectionID, preset.MediaItemID)
	return scanPreset(row)
}

// Delete removes a Filler Preset by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM filler_presets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete filler preset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (model.FillerPreset, error) {
	var p model.FillerPreset
	err := row.Scan(&p.ID, &p.Name, &p.Role, &p.Mode, &p.Count, &p.PadToNearestMinute,
		&p.CollectionID, &p.MediaItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.FillerPreset{}, ErrNotFound
		}
		return model.FillerPreset{}, fmt.Errorf("scan filler preset: %w", err)
	}
	return p, nil
}
