// Package event is the CRUD service for manual Event overlays: an
// operator inserting or editing an airing by hand rather than letting
// the Build Driver generate it. Automatic events are only ever written
// by playout.BuildTxn.InsertEvents; this package only ever touches
// is_manual = true rows, so a future rebuild's reap-auto-suffix step
// (spec §4.6 step 1) never deletes operator edits.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Event does not exist.
var ErrNotFound = errors.New("event not found")

// Service provides CRUD for manual Events.
type Service struct {
	db *pgxpool.Pool
}

// New creates a Service.
func New(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List returns every Event for a Playout within [from, to), ordered by
// start_at, the shape the HTTP guide endpoint reads.
func (s *Service) List(ctx context.Context, playoutID int64, from, to time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, playout_id, media_item_id, kind, start_at, finish_at, guide_group,
		       slot_id, is_manual, custom_title, in_point, out_point, created_at, updated_at
		FROM events
		WHERE playout_id = $1 AND start_at < $3 AND finish_at > $2
		ORDER BY start_at
	`, playoutID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events for playout %d: %w", playoutID, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Create inserts a manual Event, forcing is_manual so the next rebuild
// never reaps it.
func (s *Service) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO events (playout_id, media_item_id, kind, start_at, finish_at,
		                     guide_group, slot_id, is_manual, custom_title, in_point, out_point)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $9, $10)
		RETURNING id, playout_id, media_item_id, kind, start_at, finish_at, guide_group,
		          slot_id, is_manual, custom_title, in_point, out_point, created_at, updated_at
	`, ev.PlayoutID, ev.MediaItemID, ev.Kind, ev.StartAt, ev.FinishAt, ev.GuideGroup,
		ev.SlotID, ev.CustomTitle, ev.InPoint, ev.OutPoint)
	return scanEvent(row)
}

// Update overwrites the mutable fields of an existing manual Event.
func (s *Service) Update(ctx context.Context, ev model.Event) (model.Event, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE events
		SET media_item_id = $2, kind = $3, start_at = $4, finish_at = $5,
		    custom_title = $6, in_point = $7, out_point = $8, updated_at = now()
		WHERE id = $1 AND is_manual = true
		RETURNING id, playout_id, media_item_id, kind, start_at, finish_at, guide_group,
		          slot_id, is_manual, custom_title, in_point, out_point, created_at, updated_at
	`, ev.ID, ev.MediaItemID, ev.Kind, ev.StartAt, ev.FinishAt, ev.CustomTitle, ev.InPoint, ev.OutPoint)
	return scanEvent(row)
}

// Delete removes a manual Event by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1 AND is_manual = true`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.PlayoutID, &ev.MediaItemID, &ev.Kind, &ev.StartAt, &ev.FinishAt,
		&ev.GuideGroup, &ev.SlotID, &ev.IsManual, &ev.CustomTitle, &ev.InPoint, &ev.OutPoint,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}
	return ev, nil
}
