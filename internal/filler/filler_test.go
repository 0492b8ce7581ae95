package filler

import (
	"context"
	"testing"
	"time"

	"github.com/fudoniten/pseudovision/internal/cursor"
	"github.com/fudoniten/pseudovision/internal/model"
)

// fakeSource is an in-memory itemsource.Source, standing in for the
// database-backed collection resolver in tests (no pgx-mocking library
// exists in this stack).
type fakeSource struct {
	collections map[int64][]model.MediaItem
	items       map[int64]model.MediaItem
}

func (f fakeSource) CollectionItems(ctx context.Context, id int64) ([]model.MediaItem, error) {
	return f.collections[id], nil
}

func (f fakeSource) MediaItem(ctx context.Context, id int64) (model.MediaItem, error) {
	return f.items[id], nil
}

func minutesItems(ids []int64, minutes int) []model.MediaItem {
	out := make([]model.MediaItem, len(ids))
	for i, id := range ids {
		out[i] = model.MediaItem{ID: id, Duration: time.Duration(minutes) * time.Minute}
	}
	return out
}

func TestDurationStopsBeforeOverflow(t *testing.T) {
	src := fakeSource{collections: map[int64][]model.MediaItem{
		1: minutesItems([]int64{101, 102, 103}, 20),
	}}
	e := New(src)
	cid := int64(1)
	preset := model.FillerPreset{ID: 1, Role: model.FillerRolePre, Mode: model.FillerModeDuration, CollectionID: &cid}

	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(50 * time.Minute) // room for 2 items (40m), not 3 (60m)

	res, err := e.Duration(context.Background(), cursor.Init(from), 0, preset, from, to, nil, 1)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2 (full: %+v)", len(res.Events), res.Events)
	}
	if !res.Reached.Equal(from.Add(40 * time.Minute)) {
		t.Fatalf("reached %v, want %v", res.Reached, from.Add(40*time.Minute))
	}
	for _, ev := range res.Events {
		if ev.IsManual {
			t.Fatalf("filler event must not be manual: %+v", ev)
		}
		if ev.Kind != model.EventKindPre {
			t.Fatalf("event kind = %s, want pre", ev.Kind)
		}
	}
}

func TestDurationEmptySourceYieldsNoEvents(t *testing.T) {
	src := fakeSource{collections: map[int64][]model.MediaItem{}}
	e := New(src)
	cid := int64(404)
	preset := model.FillerPreset{ID: 1, Role: model.FillerRoleMid, Mode: model.FillerModeDuration, CollectionID: &cid}

	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	cur := cursor.Init(from)
	res, err := e.Duration(context.Background(), cur, 0, preset, from, to, nil, 1)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if len(res.Events) != 0 {
		t.Fatalf("expected no events for empty source, got %d", len(res.Events))
	}
	if !res.Reached.Equal(from) {
		t.Fatalf("empty source must not advance, reached %v want %v", res.Reached, from)
	}
	if len(res.Cursor.EnumeratorStates) != 0 {
		t.Fatalf("empty source must not record enumerator state, got %+v", res.Cursor.EnumeratorStates)
	}
}

func TestCountDrawsExactlyN(t *testing.T) {
	src := fakeSource{collections: map[int64][]model.MediaItem{
		2: minutesItems([]int64{201, 202, 203, 204}, 5),
	}}
	e := New(src)
	cid := int64(2)
	preset := model.FillerPreset{ID: 2, Role: model.FillerRoleFallback, Mode: model.FillerModeCount, CollectionID: &cid}

	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	res, err := e.Count(context.Background(), cursor.Init(from), 0, preset, from, 3, nil, 1)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(res.Events))
	}
	if !res.Reached.Equal(from.Add(15 * time.Minute)) {
		t.Fatalf("reached %v, want %v", res.Reached, from.Add(15*time.Minute))
	}
}

func TestPadToBoundaryStopsAtNextBoundaryBelowCeiling(t *testing.T) {
	src := fakeSource{collections: map[int64][]model.MediaItem{
		3: minutesItems([]int64{301, 302, 303, 304, 305}, 10),
	}}
	e := New(src)
	cid := int64(3)
	n := int32(30)
	preset := model.FillerPreset{ID: 3, Role: model.FillerRolePost, Mode: model.FillerModePadToMinute, CollectionID: &cid, PadToNearestMinute: &n}

	from := time.Date(2026, 1, 1, 8, 12, 0, 0, time.UTC)
	ceil := from.Add(90 * time.Minute) // far beyond the 30-minute boundary at 8:30

	res, err := e.PadToBoundary(context.Background(), cursor.Init(from), 0, preset, from, ceil, int(n), nil, 1)
	if err != nil {
		t.Fatalf("PadToBoundary: %v", err)
	}
	// Target is the 8:30 boundary, not the ceiling: one 10-minute item
	// fits (8:12-8:22); a second would end at 8:32, so filling stops.
	want := time.Date(2026, 1, 1, 8, 22, 0, 0, time.UTC)
	if !res.Reached.Equal(want) {
		t.Fatalf("reached %v, want %v", res.Reached, want)
	}
}

func TestPadToBoundaryClampedByCeilBeforeNextBoundary(t *testing.T) {
	src := fakeSource{collections: map[int64][]model.MediaItem{
		4: minutesItems([]int64{401, 402}, 5),
	}}
	e := New(src)
	cid := int64(4)
	n := int32(30)
	preset := model.FillerPreset{ID: 4, Role: model.FillerRoleTail, Mode: model.FillerModePadToMinute, CollectionID: &cid, PadToNearestMinute: &n}

	from := time.Date(2026, 1, 1, 8, 12, 0, 0, time.UTC)
	ceil := from.Add(5 * time.Minute) // before the 8:30 boundary

	res, err := e.PadToBoundary(context.Background(), cursor.Init(from), 0, preset, from, ceil, int(n), nil, 1)
	if err != nil {
		t.Fatalf("PadToBoundary: %v", err)
	}
	if res.Reached.After(ceil) {
		t.Fatalf("reached %v must not pass ceiling %v", res.Reached, ceil)
	}
}

func TestSkippableItemsAreNotEmitted(t *testing.T) {
	items := minutesItems([]int64{501, 503}, 10)
	items = append(items, model.MediaItem{ID: 502, Duration: 0, State: model.MediaItemStateUnavailable})
	// reorder so the skippable item sits between the two real ones
	items = []model.MediaItem{items[0], items[2], items[1]}

	src := fakeSource{collections: map[int64][]model.MediaItem{5: items}}
	e := New(src)
	cid := int64(5)
	preset := model.FillerPreset{ID: 5, Role: model.FillerRoleMid, Mode: model.FillerModeDuration, CollectionID: &cid}

	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(30 * time.Minute)

	res, err := e.Duration(context.Background(), cursor.Init(from), 0, preset, from, to, nil, 1)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	// 501, 503, then 501 again fill the 30 minutes; 502 is never emitted.
	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3 (skippable must be dropped): %+v", len(res.Events), res.Events)
	}
	for _, ev := range res.Events {
		if *ev.MediaItemID == 502 {
			t.Fatalf("skippable item 502 was emitted: %+v", res.Events)
		}
	}
}
