package enumerator

import (
	"testing"

	"github.com/fudoniten/pseudovision/internal/model"
)

func items(ids ...int64) []model.MediaItem {
	out := make([]model.MediaItem, len(ids))
	for i, id := range ids {
		out[i] = model.MediaItem{ID: id}
	}
	return out
}

// Scenario 1: chronological over [{1},{2},{3}] yields 1,2,3,1 over four
// next calls (spec §8 scenario 1).
func TestChronologicalWraps(t *testing.T) {
	e := New(items(1, 2, 3), model.PlaybackOrderChronological, 0)

	var got []int64
	for i := 0; i < 4; i++ {
		var item model.MediaItem
		item, e = e.Next()
		got = append(got, item.ID)
	}

	want := []int64{1, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got id %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}
}

// Scenario 2: two enumerators built with the same seed=99 yield the same
// first item (spec §8 scenario 2).
func TestShuffleDeterministicBySeed(t *testing.T) {
	v := items(1, 2, 3, 4, 5)
	a := New(v, model.PlaybackOrderShuffle, 99)
	b := New(v, model.PlaybackOrderShuffle, 99)

	firstA, _ := a.Next()
	firstB, _ := b.Next()

	if firstA.ID != firstB.ID {
		t.Fatalf("same seed produced different first items: %d vs %d", firstA.ID, firstB.ID)
	}
}

// Scenario 3: after two next calls on chronological over the fixture,
// serialising and restoring yields id 3 on the next call (spec §8
// scenario 3).
func TestCursorRestoreResumesPosition(t *testing.T) {
	v := items(1, 2, 3, 4, 5)
	e := New(v, model.PlaybackOrderChronological, 0)
	e.Next()
	e.Next()

	st := e.State()
	restored := FromState(v, st)

	item, _ := restored.Next()
	if item.ID != 3 {
		t.Fatalf("got id %d after restore, want 3", item.ID)
	}
}

func TestEmptyEnumeratorYieldsNothing(t *testing.T) {
	e := New(nil, model.PlaybackOrderChronological, 0)
	if !e.Empty() {
		t.Fatalf("expected empty enumerator")
	}
	item, _ := e.Next()
	if item.ID != 0 {
		t.Fatalf("expected zero-value item from empty enumerator, got %+v", item)
	}
}

func TestSeasonEpisodeOrdersByParentThenPosition(t *testing.T) {
	p1, p2 := int64(10), int64(20)
	v := []model.MediaItem{
		{ID: 1, ParentID: &p2, Position: 1},
		{ID: 2, ParentID: &p1, Position: 2},
		{ID: 3, ParentID: &p1, Position: 1},
	}
	e := New(v, model.PlaybackOrderSeasonEpisode, 0)

	var got []int64
	for i := 0; i < 3; i++ {
		var item model.MediaItem
		item, e = e.Next()
		got = append(got, item.ID)
	}

	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %d want %d (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestRandomReshufflesAtPassBoundary(t *testing.T) {
	v := items(1, 2, 3, 4, 5)
	e := New(v, model.PlaybackOrderRandom, 7)

	before := e.State().Seed
	for i := 0; i < len(v)+1; i++ {
		e.Next()
	}
	if e.State().Seed != before {
		t.Fatalf("expected seed to advance after a full pass, stayed at %d", before)
	}
}
