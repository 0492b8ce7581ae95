// Package schedule is the CRUD service and repository for Schedules
// and Slots, grounded on the teacher's quality.Service pattern.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// ErrNotFound is returned when a requested Schedule does not exist.
var ErrNotFound = errors.New("schedule not found")

// ErrSlotNotFound is returned when a requested Slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// Service provides CRUD for Schedules and their Slots.
type Service struct {
	db *pgxpool.Pool
}

// New creates a Service.
func New(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List returns every Schedule.
func (s *Service) List(ctx context.Context) ([]model.Schedule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, fixed_start_time_behavior, shuffle_slots, random_start_point, created_at, updated_at
		FROM schedules
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// Get fetches a Schedule by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Schedule, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, fixed_start_time_behavior, shuffle_slots, random_start_point, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

// Create inserts a new Schedule.
func (s *Service) Create(ctx context.Context, sch model.Schedule) (model.Schedule, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO schedules (name, fixed_start_time_behavior, shuffle_slots, random_start_point)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, fixed_start_time_behavior, shuffle_slots, random_start_point, created_at, updated_at
	`, sch.Name, sch.FixedStartTimeBehavior, sch.ShuffleSlots, sch.RandomStartPoint)
	return scanSchedule(row)
}

// Update overwrites the mutable fields of an existing Schedule.
func (s *Service) Update(ctx context.Context, sch model.Schedule) (model.Schedule, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE schedules
		SET name = $2, fixed_start_time_behavior = $3, shuffle_slots = $4,
		    random_start_point = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, name, fixed_start_time_behavior, shuffle_slots, random_start_point, created_at, updated_at
	`, sch.ID, sch.Name, sch.FixedStartTimeBehavior, sch.ShuffleSlots, sch.RandomStartPoint)
	return scanSchedule(row)
}

// Delete removes a Schedule by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Slots returns every Slot belonging to a Schedule, ordered by
// slot_index — the order the Build Driver loops through them in.
func (s *Service) Slots(ctx context.Context, scheduleID int64) ([]model.Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, schedule_id, slot_index, anchor, start_time, fill_mode,
		       item_count, block_duration, tail_mode, collection_id, media_item_id,
		       playback_order, filler_pre, filler_mid, filler_post, filler_tail,
		       filler_fallback, custom_title
		FROM slots
		WHERE schedule_id = $1
		ORDER BY slot_index
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list slots for schedule %d: %w", scheduleID, err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// CreateSlot inserts a new Slot after validating its content-source
// and fill-mode invariants (model.Slot.Validate, spec §3 invariant 6).
func (s *Service) CreateSlot(ctx context.Context, slot model.Slot) (model.Slot, error) {
	if err := slot.Validate(); err != nil {
		return model.Slot{}, err
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO slots
			(schedule_id, slot_index, anchor, start_time, fill_mode, item_count,
			 block_duration, tail_mode, collection_id, media_item_id, playback_order,
			 filler_pre, filler_mid, filler_post, filler_tail, filler_fallback, custom_title)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, schedule_id, slot_index, anchor, start_time, fill_mode,
		          item_count, block_duration, tail_mode, collection_id, media_item_id,
		          playback_order, filler_pre, filler_mid, filler_post, filler_tail,
		          filler_fallback, custom_title
	`, slot.ScheduleID, slot.SlotIndex, slot.Anchor, slot.StartTime, slot.FillMode,
		slot.ItemCount, slot.BlockDuration, slot.TailMode, slot.CollectionID,
		slot.MediaItemID, slot.PlaybackOrder, slot.FillerPre, slot.FillerMid, slot.FillerPost,
		slot.FillerTail, slot.FillerFallback, slot.CustomTitle)
	return scanSlot(row)
}

// UpdateSlot overwrites the mutable fields of an existing Slot.
func (s *Service) UpdateSlot(ctx context.Context, slot model.Slot) (model.Slot, error) {
	if err := slot.Validate(); err != nil {
		return model.Slot{}, err
	}
	row := s.db.QueryRow(ctx, `
		UPDATE slots
		SET slot_index = $2, anchor = $3, start_time = $4, fill_mode = $5,
		    item_count = $6, block_duration = $7, tail_mode = $8, collection_id = $9,
		    media_item_id = $10, playback_order = $11, filler_pre = $12, filler_mid = $13,
		    filler_post = $14, filler_tail = $15, filler_fallback = $16, custom_title = $17
		WHERE id = $1
		RETURNING id, schedule_id, slot_index, anchor, start_time, fill_mode,
		          item_count, block_duration, tail_mode, collection_id, media_item_id,
		          playback_order, filler_pre, filler_mid, filler_post, filler_tail,
		          filler_fallback, custom_title
	`, slot.ID, slot.SlotIndex, slot.Anchor, slot.StartTime, slot.FillMode,
		slot.ItemCount, slot.BlockDuration, slot.TailMode, slot.CollectionID,
		slot.MediaItemID, slot.PlaybackOrder, slot.FillerPre, slot.FillerMid, slot.FillerPost,
		slot.FillerTail, slot.FillerFallback, slot.CustomTitle)
	return scanSlot(row)
}

// DeleteSlot removes a Slot by id.
func (s *Service) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (model.Schedule, error) {
	var sch model.Schedule
	err := row.Scan(&sch.ID, &sch.Name, &sch.FixedStartTimeBehavior, &sch.ShuffleSlots,
		&sch.RandomStartPoint, &sch.CreatedAt, &sch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Schedule{}, ErrNotFound
		}
		return model.Schedule{}, fmt.Errorf("scan schedule: %w", err)
	}
	return sch, nil
}

func scanSlot(row rowScanner) (model.Slot, error) {
	var slot model.Slot
	err := row.Scan(&slot.ID, &slot.ScheduleID, &slot.SlotIndex, &slot.Anchor, &slot.StartTime,
		&slot.FillMode, &slot.ItemCount, &slot.BlockDuration, &slot.TailMode, &slot.CollectionID,
		&slot.MediaItemID, &slot.PlaybackOrder, &slot.FillerPre, &slot.FillerMid,
		&slot.FillerPost, &slot.FillerTail, &slot.FillerFallback, &slot.CustomTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Slot{}, ErrSlotNotFound
		}
		return model.Slot{}, fmt.Errorf("scan slot: %w", err)
	}
	return slot, nil
}
