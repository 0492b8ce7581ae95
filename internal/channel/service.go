// Package channel is the CRUD service and repository for Channels,
// grounded on the teacher's quality.Service pattern.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Channel does not exist.
var ErrNotFound = errors.New("channel not found")

// Service provides CRUD for Channels.
type Service struct {
	db *pgxpool.Pool
}

// New creates a Service.
func New(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List returns every Channel ordered by number.
func (s *Service) List(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, uuid, name, number, schedule_id, zone_id, created_at, updated_at
		FROM channels
		ORDER BY number
	`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Get fetches a Channel by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Channel, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, uuid, name, number, schedule_id, zone_id, created_at, updated_at
		FROM channels
		WHERE id = $1
	`, id)
	return scanChannel(row)
}

// Create inserts a new Channel, assigning it a fresh UUID.
func (s *Service) Create(ctx context.Context, ch model.Channel) (model.Channel, error) {
	if ch.ZoneID == "" {
		ch.ZoneID = "UTC"
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO channels (uuid, name, number, schedule_id, zone_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uuid, name, number, schedule_id, zone_id, created_at, updated_at
	`, uuid.NewString(), ch.Name, ch.Number, ch.ScheduleID, ch.ZoneID)
	return scanChannel(row)
}

// Update overwrites the mutable fields of an existing Channel.
func (s *Service) Update(ctx context.Context, ch model.Channel) (model.Channel, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE channels
		SET name = $2, number = $3, schedule_id = $4, zone_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, uuid, name, number, schedule_id, zone_id, created_at, updated_at
	`, ch.ID, ch.Name, ch.Number, ch.ScheduleID, ch.ZoneID)
	return scanChannel(row)
}

// Delete removes a Channel by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (model.Channel, error) {
	var ch model.Channel
	err := row.Scan(&ch.ID, &ch.UUID, &ch.Name, &ch.Number, &ch.ScheduleID, &ch.ZoneID,
		&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, ErrNotFound
		}
		return model.Channel{}, fmt.Errorf("scan channel: %w", err)
	}
	return ch, nil
}
