package playout

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fudoniten/pseudovision/internal/model"
)

// PostgresStore is the pgx-backed Store. A build's transaction opens
// with `SELECT ... FOR UPDATE` on the playouts row, which is the "row
// lock on playouts is sufficient" serialization spec §5 calls for.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps db as a Store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LoadPlayout(ctx context.Context, playoutID int64) (model.Playout, error) {
	var p model.Playout
	row := s.db.QueryRow(ctx, `
		SELECT id, channel_id, schedule_id, seed, cursor, last_built_at, build_success, build_message, created_at, updated_at
		FROM playouts WHERE id = $1
	`, playoutID)
	if err := row.Scan(&p.ID, &p.ChannelID, &p.ScheduleID, &p.Seed, &p.Cursor, &p.LastBuiltAt, &p.BuildSuccess, &p.BuildMessage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Playout{}, err
	}
	return p, nil
}

func (s *PostgresStore) LoadChannel(ctx context.Context, channelID int64) (model.Channel, error) {
	var c model.Channel
	row := s.db.QueryRow(ctx, `
		SELECT id, uuid, name, number, schedule_id, zone_id, created_at, updated_at
		FROM channels WHERE id = $1
	`, channelID)
	if err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.Number, &c.ScheduleID, &c.ZoneID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return model.Channel{}, err
	}
	return c, nil
}

func (s *PostgresStore) LoadSchedule(ctx context.Context, scheduleID int64) (model.Schedule, error) {
	var sch model.Schedule
	row := s.db.QueryRow(ctx, `
		SELECT id, name, fixed_start_time_behavior, shuffle_slots, random_start_point, created_at, updated_at
		FROM schedules WHERE id = $1
	`, scheduleID)
	if err := row.Scan(&sch.ID, &sch.Name, &sch.FixedStartTimeBehavior, &sch.ShuffleSlots, &sch.RandomStartPoint, &sch.CreatedAt, &sch.UpdatedAt); err != nil {
		return model.Schedule{}, err
	}
	return sch, nil
}

func (s *PostgresStore) LoadSlots(ctx context.Context, scheduleID int64) ([]model.Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, schedule_id, slot_index, anchor, start_time, fill_mode, item_count, block_duration,
		       tail_mode, collection_id, media_item_id, playback_order,
		       filler_pre, filler_mid, filler_post, filler_tail, filler_fallback, custom_title
		FROM slots WHERE schedule_id = $1 ORDER BY slot_index
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var out []model.Slot
	for rows.Next() {
		var sl model.Slot
		if err := rows.Scan(
			&sl.ID, &sl.ScheduleID, &sl.SlotIndex, &sl.Anchor, &sl.StartTime, &sl.FillMode, &sl.ItemCount, &sl.BlockDuration,
			&sl.TailMode, &sl.CollectionID, &sl.MediaItemID, &sl.PlaybackOrder,
			&sl.FillerPre, &sl.FillerMid, &sl.FillerPost, &sl.FillerTail, &sl.FillerFallback, &sl.CustomTitle,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// PlayoutForChannel resolves a Channel's live Playout id, for the
// background scheduler's per-channel rebuild loop.
func (s *PostgresStore) PlayoutForChannel(ctx context.Context, channelID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM playouts WHERE channel_id = $1`, channelID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve playout for channel %d: %w", channelID, err)
	}
	return id, nil
}

func (s *PostgresStore) RunBuildTxn(ctx context.Context, playoutID int64, fn func(ctx context.Context, tx BuildTxn) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin build transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock held for the rest of this transaction: the reap, the
	// event insert and the cursor save. The Build Driver loads the cursor
	// and computes the events before calling RunBuildTxn, outside the lock.
	var discard int64
	if err := tx.QueryRow(ctx, `SELECT id FROM playouts WHERE id = $1 FOR UPDATE`, playoutID).Scan(&discard); err != nil {
		return fmt.Errorf("lock playout row: %w", err)
	}

	if err := fn(ctx, &postgresBuildTxn{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) MarkBuildFailed(ctx context.Context, playoutID int64, at time.Time, message string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE playouts SET last_built_at = $2, build_success = false, build_message = $3, updated_at = now()
		WHERE id = $1
	`, playoutID, at, message)
	return err
}

type postgresBuildTxn struct {
	tx pgx.Tx
}

func (t *postgresBuildTxn) ReapAutoSuffix(ctx context.Context, playoutID int64, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM events WHERE playout_id = $1 AND start_at >= $2 AND is_manual = false
	`, playoutID, now)
	return err
}

func (t *postgresBuildTxn) InsertEvents(ctx context.Context, playoutID int64, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO events (playout_id, media_item_id, kind, start_at, finish_at, guide_group, slot_id, is_manual, custom_title, in_point, out_point)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, playoutID, ev.MediaItemID, ev.Kind, ev.StartAt, ev.FinishAt, ev.GuideGroup, ev.SlotID, ev.IsManual, ev.CustomTitle, ev.InPoint, ev.OutPoint)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

func (t *postgresBuildTxn) SaveCursor(ctx context.Context, playoutID int64, cursorJSON []byte, builtAt time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE playouts
		SET cursor = $2, last_built_at = $3, build_success = true, build_message = NULL, updated_at = now()
		WHERE id = $1
	`, playoutID, cursorJSON, builtAt)
	return err
}
