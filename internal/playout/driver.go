package playout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fudoniten/pseudovision/internal/cursor"
	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/timeutil"
)

// Outcome distinguishes the terminal states of a Build call (spec §4.6).
type Outcome string

const (
	OutcomeBuilt      Outcome = "built"
	OutcomeNoSchedule Outcome = "no_schedule"
	OutcomeFailed     Outcome = "failed"
)

// Result summarises one Build/Rebuild invocation.
type Result struct {
	Outcome       Outcome
	EventsWritten int
	Message       *string
}

// Options are the per-build parameters of spec §4.6.
type Options struct {
	LookaheadHours int
	ZoneID         string
}

// DefaultOptions returns lookahead_hours=72, zone_id="UTC" (spec §4.6).
func DefaultOptions() Options {
	return Options{LookaheadHours: 72, ZoneID: "UTC"}
}

// Store is the persistence seam the Build Driver depends on. A
// production implementation backs it with pgx; tests can back it with
// an in-memory fake, matching the same seam discipline as itemsource.
type Store interface {
	LoadPlayout(ctx context.Context, playoutID int64) (model.Playout, error)
	LoadChannel(ctx context.Context, channelID int64) (model.Channel, error)
	LoadSchedule(ctx context.Context, scheduleID int64) (model.Schedule, error)
	LoadSlots(ctx context.Context, scheduleID int64) ([]model.Slot, error)

	// RunBuildTxn executes fn inside one transaction that also holds the
	// per-playout serialization lock (spec §5: "at most one [build] in
	// flight per playouts.id"). Any error returned by fn rolls back the
	// whole transaction.
	RunBuildTxn(ctx context.Context, playoutID int64, fn func(ctx context.Context, tx BuildTxn) error) error

	// MarkBuildFailed records a failed build outside of the rolled-back
	// transaction, since build_success/build_message must survive the
	// abort that wiped out the attempted events and cursor (spec §4.6
	// step 6).
	MarkBuildFailed(ctx context.Context, playoutID int64, at time.Time, message string) error
}

// BuildTxn is the set of writes the Build Driver performs within one
// transaction (spec §4.6 steps 3 and 5).
type BuildTxn interface {
	ReapAutoSuffix(ctx context.Context, playoutID int64, now time.Time) error
	InsertEvents(ctx context.Context, playoutID int64, events []model.Event) error
	SaveCursor(ctx context.Context, playoutID int64, cursorJSON []byte, builtAt time.Time) error
}

// Driver is the Build Driver: given a Playout, rebuilds its Event
// timeline out to the lookahead horizon.
type Driver struct {
	store      Store
	dispatcher *Dispatcher
	clock      timeutil.Clock
	logger     *zap.Logger

	// group serialises concurrent Build calls for the same playout
	// within this process, complementing the per-playout row lock taken
	// inside Store.RunBuildTxn for cross-process serialization (spec §5).
	group singleflight.Group
}

// NewDriver creates a Build Driver.
func NewDriver(store Store, dispatcher *Dispatcher, clock timeutil.Clock, logger *zap.Logger) *Driver {
	return &Driver{store: store, dispatcher: dispatcher, clock: clock, logger: logger}
}

// runawayGuard bounds the slot loop against schedules that never advance
// next_start (e.g. every slot has an unrecognised fill mode). It is a
// defensive cap, not part of the spec's algorithm.
const runawayGuard = 100000

// Build runs the Build Driver for playoutID. Rebuild is the same
// operation: the engine is idempotent by construction (spec §4.6).
func (d *Driver) Build(ctx context.Context, opts Options, playoutID int64) (Result, error) {
	key := strconv.FormatInt(playoutID, 10)
	v, err, _ := d.group.Do(key, func() (any, error) {
		return d.buildOnce(ctx, opts, playoutID)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (d *Driver) buildOnce(ctx context.Context, opts Options, playoutID int64) (Result, error) {
	playout, err := d.store.LoadPlayout(ctx, playoutID)
	if err != nil {
		return Result{}, fmt.Errorf("load playout %d: %w", playoutID, err)
	}

	channel, err := d.store.LoadChannel(ctx, playout.ChannelID)
	if err != nil {
		return Result{}, fmt.Errorf("load channel %d: %w", playout.ChannelID, err)
	}

	scheduleID := playout.ScheduleID
	if scheduleID == nil {
		scheduleID = channel.ScheduleID
	}
	if scheduleID == nil {
		return Result{Outcome: OutcomeNoSchedule}, nil
	}

	schedule, err := d.store.LoadSchedule(ctx, *scheduleID)
	if err != nil {
		return Result{}, fmt.Errorf("load schedule %d: %w", *scheduleID, err)
	}
	slots, err := d.store.LoadSlots(ctx, schedule.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load slots for schedule %d: %w", schedule.ID, err)
	}
	if len(slots) == 0 {
		return Result{Outcome: OutcomeNoSchedule}, nil
	}

	zoneID := opts.ZoneID
	if channel.ZoneID != "" {
		zoneID = channel.ZoneID
	}
	zone, err := timeutil.LoadZone(zoneID)
	if err != nil {
		return Result{}, fmt.Errorf("load zone: %w", err)
	}

	now := d.clock.Now()
	cur, err := cursor.FromJSON(playout.Cursor)
	if err != nil {
		return Result{}, fmt.Errorf("decode cursor: %w", err)
	}
	if len(playout.Cursor) == 0 {
		cur = cursor.Init(now)
	}

	horizon := now.Add(time.Duration(opts.LookaheadHours) * time.Hour)
	ptr := cur.SlotIndex
	if ptr < 0 || ptr >= len(slots) {
		ptr = 0
	}

	var events []model.Event
	for iter := 0; iter < runawayGuard && !cur.NextStart.After(horizon); iter++ {
		slot := slots[ptr]

		if slot.Anchor == model.SlotAnchorFixed && slot.StartTime != nil &&
			schedule.FixedStartTimeBehavior == model.FixedStartSkip {
			fire := timeutil.NextFixedFireTime(cur.NextStart, *slot.StartTime, zone)
			if fire.After(cur.NextStart) {
				cur = cur.WithNextStart(fire)
			}
		}

		var floodEnd *time.Time
		if slot.FillMode == model.FillModeFlood {
			floodEnd = nextFixedAnchorAfter(slots, ptr, cur.NextStart, zone)
		}

		evs, nextCur, err := d.dispatcher.Dispatch(ctx, cur, playout.Seed, slot, floodEnd)
		if err != nil {
			msg := err.Error()
			_ = d.store.MarkBuildFailed(ctx, playoutID, now, msg)
			return Result{Outcome: OutcomeFailed, Message: &msg}, nil
		}

		events = append(events, evs...)
		cur = nextCur.AdvanceSlot(len(slots))
		ptr = (ptr + 1) % len(slots)
	}

	for i := range events {
		events[i].PlayoutID = playoutID
	}

	cursorJSON, err := cur.ToJSON()
	if err != nil {
		return Result{}, fmt.Errorf("encode cursor: %w", err)
	}

	txnErr := d.store.RunBuildTxn(ctx, playoutID, func(ctx context.Context, tx BuildTxn) error {
		if err := tx.ReapAutoSuffix(ctx, playoutID, now); err != nil {
			return fmt.Errorf("reap auto suffix: %w", err)
		}
		if err := tx.InsertEvents(ctx, playoutID, events); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		if err := tx.SaveCursor(ctx, playoutID, cursorJSON, now); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
		return nil
	})
	if txnErr != nil {
		msg := txnErr.Error()
		if markErr := d.store.MarkBuildFailed(ctx, playoutID, now, msg); markErr != nil {
			d.logger.Error("failed to record build failure", zap.Int64("playout_id", playoutID), zap.Error(markErr))
		}
		return Result{Outcome: OutcomeFailed, Message: &msg}, nil
	}

	return Result{Outcome: OutcomeBuilt, EventsWritten: len(events)}, nil
}

// nextFixedAnchorAfter finds the first later slot (wrapping at most once
// around the schedule) whose anchor is fixed, and returns its next fire
// time from `after` — the flood_end bound of spec §4.6 step 4b. Returns
// nil if no fixed-anchor slot exists in the schedule.
func nextFixedAnchorAfter(slots []model.Slot, ptr int, after time.Time, zone *time.Location) *time.Time {
	n := len(slots)
	for i := 1; i <= n; i++ {
		slot := slots[(ptr+i)%n]
		if slot.Anchor == model.SlotAnchorFixed && slot.StartTime != nil {
			fire := timeutil.NextFixedFireTime(after, *slot.StartTime, zone)
			return &fire
		}
	}
	return nil
}
