package playout

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/timeutil"
)

// fixtureDurationsMin are the ten movie durations from spec §8 (minutes).
var fixtureDurationsMin = []int{20, 25, 30, 15, 40, 35, 22, 28, 18, 33}

func fixtureItems(ids ...int64) []model.MediaItem {
	out := make([]model.MediaItem, len(ids))
	for i, id := range ids {
		out[i] = model.MediaItem{ID: id, Duration: time.Duration(fixtureDurationsMin[id-1]) * time.Minute}
	}
	return out
}

func idRange(from, to int64) []int64 {
	var out []int64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// fakeItemSource backs collection A/B/C with the fixture items.
type fakeItemSource struct {
	byCollection map[int64][]model.MediaItem
}

func (f fakeItemSource) CollectionItems(ctx context.Context, id int64) ([]model.MediaItem, error) {
	return f.byCollection[id], nil
}

func (f fakeItemSource) MediaItem(ctx context.Context, id int64) (model.MediaItem, error) {
	return model.MediaItem{}, nil
}

type fakePresetLookup struct{}

func (fakePresetLookup) FillerPreset(ctx context.Context, id int64) (model.FillerPreset, error) {
	return model.FillerPreset{}, nil
}

type fakeTxn struct {
	reaped   bool
	reapNow  time.Time
	inserted []model.Event
	cursor   []byte
	builtAt  time.Time
}

func (t *fakeTxn) ReapAutoSuffix(ctx context.Context, playoutID int64, now time.Time) error {
	t.reaped = true
	t.reapNow = now
	return nil
}

func (t *fakeTxn) InsertEvents(ctx context.Context, playoutID int64, events []model.Event) error {
	t.inserted = append(t.inserted, events...)
	return nil
}

func (t *fakeTxn) SaveCursor(ctx context.Context, playoutID int64, cursorJSON []byte, builtAt time.Time) error {
	t.cursor = cursorJSON
	t.builtAt = builtAt
	return nil
}

// fakeStore is an in-memory Store; no pgx-mocking library exists in this
// stack, so tests drive the Build Driver against this fixture instead.
type fakeStore struct {
	playout  model.Playout
	channel  model.Channel
	schedule model.Schedule
	slots    []model.Slot
	events   []model.Event
}

func (s *fakeStore) LoadPlayout(ctx context.Context, id int64) (model.Playout, error) { return s.playout, nil }
func (s *fakeStore) LoadChannel(ctx context.Context, id int64) (model.Channel, error) { return s.channel, nil }
func (s *fakeStore) LoadSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	return s.schedule, nil
}
func (s *fakeStore) LoadSlots(ctx context.Context, scheduleID int64) ([]model.Slot, error) {
	return s.slots, nil
}

func (s *fakeStore) RunBuildTxn(ctx context.Context, playoutID int64, fn func(ctx context.Context, tx BuildTxn) error) error {
	txn := &fakeTxn{}
	if err := fn(ctx, txn); err != nil {
		return err
	}
	var kept []model.Event
	for _, ev := range s.events {
		if ev.IsManual || ev.StartAt.Before(txn.reapNow) {
			kept = append(kept, ev)
		}
	}
	s.events = append(kept, txn.inserted...)
	s.playout.Cursor = txn.cursor
	s.playout.LastBuiltAt = &txn.builtAt
	s.playout.BuildSuccess = true
	s.playout.BuildMessage = nil
	return nil
}

func (s *fakeStore) MarkBuildFailed(ctx context.Context, playoutID int64, at time.Time, message string) error {
	s.playout.BuildSuccess = false
	s.playout.BuildMessage = &message
	s.playout.LastBuiltAt = &at
	return nil
}

// Scenario 4 (spec §8): Schedule S1 = [slot0 once CollectionA, slot1
// count=3 CollectionB]. Expected first four events: one item from
// CollectionA then three from CollectionB, back-to-back.
func TestScenario4OnceThenCount(t *testing.T) {
	logger := zap.NewNop()
	src := fakeItemSource{byCollection: map[int64][]model.MediaItem{
		100: fixtureItems(idRange(1, 5)...),
		200: fixtureItems(idRange(6, 10)...),
	}}
	dispatcher := New(src, fakePresetLookup{}, logger)

	collA, collB := int64(100), int64(200)
	count3 := int32(3)
	slots := []model.Slot{
		{ID: 1, ScheduleID: 1, SlotIndex: 0, Anchor: model.SlotAnchorSequential, FillMode: model.FillModeOnce, CollectionID: &collA},
		{ID: 2, ScheduleID: 1, SlotIndex: 1, Anchor: model.SlotAnchorSequential, FillMode: model.FillModeCount, ItemCount: &count3, CollectionID: &collB},
	}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		playout:  model.Playout{ID: 1, ChannelID: 1, ScheduleID: ptrInt64(1), Seed: 0},
		channel:  model.Channel{ID: 1, ZoneID: "UTC"},
		schedule: model.Schedule{ID: 1, FixedStartTimeBehavior: model.FixedStartSkip},
		slots:    slots,
	}
	driver := NewDriver(store, dispatcher, timeutil.Fixed(t0), logger)

	opts := DefaultOptions()
	opts.LookaheadHours = 3 // small horizon; the build yields more than the four events under test

	res, err := driver.Build(context.Background(), opts, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Outcome != OutcomeBuilt {
		t.Fatalf("outcome = %s, want built (message: %v)", res.Outcome, res.Message)
	}
	if len(store.events) < 4 {
		t.Fatalf("got %d events, want at least 4: %+v", len(store.events), store.events)
	}

	first := store.events[0]
	if first.MediaItemID == nil || *first.MediaItemID < 1 || *first.MediaItemID > 5 {
		t.Fatalf("first event should draw from CollectionA, got %+v", first)
	}
	for i := 1; i < 4; i++ {
		ev := store.events[i]
		if ev.MediaItemID == nil || *ev.MediaItemID < 6 || *ev.MediaItemID > 10 {
			t.Fatalf("event %d should draw from CollectionB, got %+v", i, ev)
		}
		if !ev.StartAt.Equal(store.events[i-1].FinishAt) {
			t.Fatalf("event %d not back-to-back with previous: start=%v prev finish=%v", i, ev.StartAt, store.events[i-1].FinishAt)
		}
	}
}

// Scenario 5 (spec §8): Schedule S2 = [slot0 block 2h CollectionC].
// Every event's finish_at <= block_start + 2h; the next block begins at
// exactly block_start + 2h regardless of actual fill.
func TestScenario5Block(t *testing.T) {
	logger := zap.NewNop()
	src := fakeItemSource{byCollection: map[int64][]model.MediaItem{
		300: fixtureItems(idRange(1, 10)...),
	}}
	dispatcher := New(src, fakePresetLookup{}, logger)

	collC := int64(300)
	twoHours := 2 * time.Hour
	slots := []model.Slot{
		{ID: 1, ScheduleID: 1, SlotIndex: 0, Anchor: model.SlotAnchorSequential, FillMode: model.FillModeBlock, BlockDuration: &twoHours, TailMode: model.TailModeNone, CollectionID: &collC},
	}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		playout:  model.Playout{ID: 1, ChannelID: 1, ScheduleID: ptrInt64(1)},
		channel:  model.Channel{ID: 1, ZoneID: "UTC"},
		schedule: model.Schedule{ID: 1, FixedStartTimeBehavior: model.FixedStartSkip},
		slots:    slots,
	}
	driver := NewDriver(store, dispatcher, timeutil.Fixed(t0), logger)

	opts := DefaultOptions()
	opts.LookaheadHours = 6 // blocks at 00:00, 02:00, 04:00 and 06:00 (the horizon is inclusive)

	res, err := driver.Build(context.Background(), opts, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Outcome != OutcomeBuilt {
		t.Fatalf("outcome = %s, want built (message: %v)", res.Outcome, res.Message)
	}

	blockStart := t0
	blockEnd := blockStart.Add(twoHours)
	for _, ev := range store.events {
		if ev.StartAt.After(blockEnd) || ev.StartAt.Equal(blockEnd) {
			blockStart = blockEnd
			blockEnd = blockStart.Add(twoHours)
		}
		if ev.FinishAt.After(blockEnd) {
			t.Fatalf("event %+v finishes after block boundary %v", ev, blockEnd)
		}
	}
}

// Scenario 6 (spec §8): Schedule S3 = [fixed 00:00 flood A, fixed 06:00
// flood B, fixed 12:00 once C]. Events in [00:00,06:00) draw from A,
// [06:00,12:00) draw from B, and at 12:00 exactly one event from C is
// emitted; no event crosses an anchor boundary.
func TestScenario6FloodBetweenAnchors(t *testing.T) {
	logger := zap.NewNop()
	collA, collB, collC := int64(1), int64(2), int64(3)
	src := fakeItemSource{byCollection: map[int64][]model.MediaItem{
		1: fixtureItems(idRange(1, 5)...),
		2: fixtureItems(idRange(6, 10)...),
		3: fixtureItems(1),
	}}
	dispatcher := New(src, fakePresetLookup{}, logger)

	zero := time.Duration(0)
	six := 6 * time.Hour
	twelve := 12 * time.Hour
	slots := []model.Slot{
		{ID: 1, ScheduleID: 1, SlotIndex: 0, Anchor: model.SlotAnchorFixed, StartTime: &zero, FillMode: model.FillModeFlood, CollectionID: &collA},
		{ID: 2, ScheduleID: 1, SlotIndex: 1, Anchor: model.SlotAnchorFixed, StartTime: &six, FillMode: model.FillModeFlood, CollectionID: &collB},
		{ID: 3, ScheduleID: 1, SlotIndex: 2, Anchor: model.SlotAnchorFixed, StartTime: &twelve, FillMode: model.FillModeOnce, CollectionID: &collC},
	}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		playout:  model.Playout{ID: 1, ChannelID: 1, ScheduleID: ptrInt64(1)},
		channel:  model.Channel{ID: 1, ZoneID: "UTC"},
		schedule: model.Schedule{ID: 1, FixedStartTimeBehavior: model.FixedStartSkip},
		slots:    slots,
	}
	driver := NewDriver(store, dispatcher, timeutil.Fixed(t0), logger)

	opts := DefaultOptions()
	opts.LookaheadHours = 13

	res, err := driver.Build(context.Background(), opts, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Outcome != OutcomeBuilt {
		t.Fatalf("outcome = %s, want built (message: %v)", res.Outcome, res.Message)
	}

	noon := t0.Add(twelve)
	sixAM := t0.Add(six)
	var sawC int
	for _, ev := range store.events {
		if ev.MediaItemID == nil {
			continue
		}
		id := *ev.MediaItemID
		switch {
		case ev.StartAt.Before(sixAM):
			if id < 1 || id > 5 {
				t.Fatalf("event before 06:00 should draw from CollectionA, got %+v", ev)
			}
			if ev.FinishAt.After(sixAM) {
				t.Fatalf("event %+v crosses the 06:00 anchor boundary", ev)
			}
		case ev.StartAt.Before(noon):
			if id < 6 || id > 10 {
				t.Fatalf("event before 12:00 should draw from CollectionB, got %+v", ev)
			}
			if ev.FinishAt.After(noon) {
				t.Fatalf("event %+v crosses the 12:00 anchor boundary", ev)
			}
		case ev.StartAt.Equal(noon):
			sawC++
			if id != 1 {
				t.Fatalf("event at noon should draw from CollectionC, got %+v", ev)
			}
		}
	}
	if sawC != 1 {
		t.Fatalf("expected exactly one event at the 12:00 anchor, got %d", sawC)
	}
}

func ptrInt64(v int64) *int64 { return &v }
