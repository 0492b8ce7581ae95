package cursor

import (
	"testing"
	"time"

	"github.com/fudoniten/pseudovision/internal/enumerator"
	"github.com/fudoniten/pseudovision/internal/model"
)

func TestRoundTripIsIdentity(t *testing.T) {
	start := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	c := Init(start)
	c = c.WithNextStart(start.Add(20 * time.Minute))
	c = c.BumpGuideGroup()
	c = c.AdvanceSlot(3)
	n := 5
	c = c.WithCountRemaining(&n)
	end := start.Add(2 * time.Hour)
	c = c.WithBlockEndsAt(&end)
	c = c.WithInFlood(true)

	items := []model.MediaItem{{ID: 1}, {ID: 2}}
	e := c.GetEnumerator("collection:1", items, model.PlaybackOrderChronological, 42)
	e.Next()
	c = c.SaveEnumerator("collection:1", e)

	data, err := c.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if !restored.NextStart.Equal(c.NextStart) {
		t.Fatalf("next_start mismatch: got %v want %v", restored.NextStart, c.NextStart)
	}
	if restored.SlotIndex != c.SlotIndex {
		t.Fatalf("slot_index mismatch: got %d want %d", restored.SlotIndex, c.SlotIndex)
	}
	if *restored.CountRemaining != *c.CountRemaining {
		t.Fatalf("count_remaining mismatch")
	}
	if !restored.BlockEndsAt.Equal(*c.BlockEndsAt) {
		t.Fatalf("block_ends_at mismatch")
	}
	if restored.InFlood != c.InFlood {
		t.Fatalf("in_flood mismatch")
	}
	if restored.NextGuideGroup != c.NextGuideGroup {
		t.Fatalf("next_guide_group mismatch: got %d want %d", restored.NextGuideGroup, c.NextGuideGroup)
	}
	gotState := restored.EnumeratorStates["collection:1"]
	wantState := c.EnumeratorStates["collection:1"]
	if gotState != wantState {
		t.Fatalf("enumerator state mismatch: got %+v want %+v", gotState, wantState)
	}
}

func TestCursorToEnumeratorRoundTrip(t *testing.T) {
	items := []model.MediaItem{{ID: 1}, {ID: 2}, {ID: 3}}
	e := enumerator.New(items, model.PlaybackOrderShuffle, 99)
	e.Next()
	e.Next()

	st := e.State()
	restored := enumerator.FromState(items, st)

	if restored.State() != st {
		t.Fatalf("cursorToEnumerator(items, enumeratorToCursor(e)) != e: got %+v want %+v", restored.State(), st)
	}
}

func TestInitProducesGuideGroupOne(t *testing.T) {
	c := Init(time.Now())
	if c.NextGuideGroup != 1 {
		t.Fatalf("expected next_guide_group=1, got %d", c.NextGuideGroup)
	}
	if c.EnumeratorStates == nil {
		t.Fatalf("expected non-nil enumerator_states map")
	}
}

func TestAdvanceSlotWraps(t *testing.T) {
	c := Init(time.Now())
	c = c.AdvanceSlot(2)
	if c.SlotIndex != 1 {
		t.Fatalf("got slot_index %d want 1", c.SlotIndex)
	}
	c = c.AdvanceSlot(2)
	if c.SlotIndex != 0 {
		t.Fatalf("got slot_index %d want 0", c.SlotIndex)
	}
}

func TestDistinctSlotsShareEnumeratorStateByCollectionKey(t *testing.T) {
	items := []model.MediaItem{{ID: 1}, {ID: 2}}
	c := Init(time.Now())

	e1 := c.GetEnumerator("collection:5", items, model.PlaybackOrderChronological, 0)
	e1.Next()
	c = c.SaveEnumerator("collection:5", e1)

	// A second slot drawing from the same collection key resumes where
	// the first slot left off (spec §4.2: "Distinct slots drawing from
	// the same collection share enumerator state").
	e2 := c.GetEnumerator("collection:5", items, model.PlaybackOrderChronological, 0)
	item, _ := e2.Next()
	if item.ID != 2 {
		t.Fatalf("expected shared enumerator to resume at id 2, got %d", item.ID)
	}
}
