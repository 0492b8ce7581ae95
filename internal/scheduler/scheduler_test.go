package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/playout"
	"github.com/fudoniten/pseudovision/internal/timeutil"
)

type fakeChannels struct {
	channels []model.Channel
}

func (f fakeChannels) List(ctx context.Context) ([]model.Channel, error) { return f.channels, nil }

type fakePlayoutLocator struct {
	byChannel map[int64]int64
}

func (f fakePlayoutLocator) PlayoutForChannel(ctx context.Context, channelID int64) (int64, error) {
	id, ok := f.byChannel[channelID]
	if !ok {
		return 0, errNoPlayout
	}
	return id, nil
}

var errNoPlayout = errors.New("no playout for channel")

type fakeItemSource struct{}

func (fakeItemSource) CollectionItems(ctx context.Context, id int64) ([]model.MediaItem, error) {
	return []model.MediaItem{{ID: 1, Duration: 30 * time.Minute}}, nil
}

func (fakeItemSource) MediaItem(ctx context.Context, id int64) (model.MediaItem, error) {
	return model.MediaItem{}, nil
}

type fakePresetLookup struct{}

func (fakePresetLookup) FillerPreset(ctx context.Context, id int64) (model.FillerPreset, error) {
	return model.FillerPreset{}, nil
}

type fakeTxn struct{}

func (fakeTxn) ReapAutoSuffix(ctx context.Context, playoutID int64, now time.Time) error { return nil }
func (fakeTxn) InsertEvents(ctx context.Context, playoutID int64, events []model.Event) error {
	return nil
}
func (fakeTxn) SaveCursor(ctx context.Context, playoutID int64, cursorJSON []byte, builtAt time.Time) error {
	return nil
}

// fakeStore serves a single hard-coded playout/channel/schedule regardless
// of the id requested, just enough to drive one Build call per tick.
type fakeStore struct {
	builds int
}

func (s *fakeStore) LoadPlayout(ctx context.Context, id int64) (model.Playout, error) {
	return model.Playout{ID: id, ChannelID: 1, ScheduleID: ptrInt64(1)}, nil
}
func (s *fakeStore) LoadChannel(ctx context.Context, id int64) (model.Channel, error) {
	return model.Channel{ID: 1, ZoneID: "UTC"}, nil
}
func (s *fakeStore) LoadSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	return model.Schedule{ID: 1, FixedStartTimeBehavior: model.FixedStartSkip}, nil
}
func (s *fakeStore) LoadSlots(ctx context.Context, scheduleID int64) ([]model.Slot, error) {
	collA := int64(100)
	return []model.Slot{
		{ID: 1, ScheduleID: 1, SlotIndex: 0, Anchor: model.SlotAnchorSequential, FillMode: model.FillModeOnce, CollectionID: &collA},
	}, nil
}
func (s *fakeStore) RunBuildTxn(ctx context.Context, playoutID int64, fn func(ctx context.Context, tx playout.BuildTxn) error) error {
	s.builds++
	return fn(ctx, fakeTxn{})
}
func (s *fakeStore) MarkBuildFailed(ctx context.Context, playoutID int64, at time.Time, message string) error {
	return nil
}

func ptrInt64(v int64) *int64 { return &v }

func TestSchedulerRebuildsEveryChannel(t *testing.T) {
	logger := zap.NewNop()
	dispatcher := playout.New(fakeItemSource{}, fakePresetLookup{}, logger)
	store := &fakeStore{}
	driver := playout.NewDriver(store, dispatcher, timeutil.SystemClock{}, logger)

	channels := fakeChannels{channels: []model.Channel{{ID: 1}, {ID: 2}, {ID: 3}}}
	locator := fakePlayoutLocator{byChannel: map[int64]int64{1: 10, 2: 20, 3: 30}}

	s := New(channels, locator, driver, playout.DefaultOptions(), time.Hour, logger)
	s.rebuildAll(context.Background())

	if store.builds != 3 {
		t.Fatalf("builds = %d, want 3 (one per channel)", store.builds)
	}
}

func TestSchedulerSkipsChannelsWithoutAPlayout(t *testing.T) {
	logger := zap.NewNop()
	dispatcher := playout.New(fakeItemSource{}, fakePresetLookup{}, logger)
	store := &fakeStore{}
	driver := playout.NewDriver(store, dispatcher, timeutil.SystemClock{}, logger)

	channels := fakeChannels{channels: []model.Channel{{ID: 1}, {ID: 2}}}
	locator := fakePlayoutLocator{byChannel: map[int64]int64{2: 20}} // channel 1 has no playout

	s := New(channels, locator, driver, playout.DefaultOptions(), time.Hour, logger)
	s.rebuildAll(context.Background())

	if store.builds != 1 {
		t.Fatalf("builds = %d, want 1 (channel 1 skipped, channel 2 built)", store.builds)
	}
}
