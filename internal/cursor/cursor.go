// Package cursor implements the full resumption state for one Playout
// (spec §4.2), persisted as a JSON blob on the playouts row. The Cursor
// is a value type: the build driver threads a new Cursor through the
// slot loop and writes it exactly once at the end (spec §9's "mutable
// scheduling state" note) — nothing in this package mutates a Cursor
// already handed to a caller; every operation returns the next value.
package cursor

import (
	"encoding/json"
	"time"

	"github.com/fudoniten/pseudovision/internal/enumerator"
	"github.com/fudoniten/pseudovision/internal/model"
)

// Cursor is the full resumption state for one Playout build.
type Cursor struct {
	NextStart        time.Time                  `json:"next_start"`
	SlotIndex        int                         `json:"slot_index"`
	CountRemaining   *int                        `json:"count_remaining"`
	BlockEndsAt      *time.Time                  `json:"block_ends_at"`
	InFlood          bool                        `json:"in_flood"`
	InDurationFiller bool                        `json:"in_duration_filler"`
	NextGuideGroup   int64                       `json:"next_guide_group"`
	EnumeratorStates map[string]enumerator.State `json:"enumerator_states"`
}

// Init builds a fresh Cursor at `start`, per spec §4.2: empty state,
// next_guide_group=1.
func Init(start time.Time) Cursor {
	return Cursor{
		NextStart:        start,
		SlotIndex:        0,
		NextGuideGroup:   1,
		EnumeratorStates: map[string]enumerator.State{},
	}
}

// GetEnumerator restores the enumerator for collection key `key` from
// saved state if present, else builds a fresh one seeded from the
// Cursor's playout-level seed.
func (c Cursor) GetEnumerator(key string, items []model.MediaItem, order model.PlaybackOrder, playoutSeed int64) *enumerator.Enumerator {
	if st, ok := c.EnumeratorStates[key]; ok {
		return enumerator.FromState(items, st)
	}
	return enumerator.New(items, order, playoutSeed)
}

// SaveEnumerator returns a Cursor with key's enumerator state overwritten
// by e's current projection.
func (c Cursor) SaveEnumerator(key string, e *enumerator.Enumerator) Cursor {
	next := c.clone()
	next.EnumeratorStates[key] = e.State()
	return next
}

// BumpGuideGroup returns a Cursor with next_guide_group incremented.
func (c Cursor) BumpGuideGroup() Cursor {
	next := c.clone()
	next.NextGuideGroup++
	return next
}

// AdvanceSlot returns a Cursor with slot_index advanced to
// (slot_index+1) mod nSlots.
func (c Cursor) AdvanceSlot(nSlots int) Cursor {
	next := c.clone()
	if nSlots <= 0 {
		next.SlotIndex = 0
		return next
	}
	next.SlotIndex = (next.SlotIndex + 1) % nSlots
	return next
}

// WithNextStart returns a Cursor with next_start set to t.
func (c Cursor) WithNextStart(t time.Time) Cursor {
	next := c.clone()
	next.NextStart = t
	return next
}

// WithCountRemaining returns a Cursor with count_remaining set. Pass nil
// to clear it once a count slot finishes.
func (c Cursor) WithCountRemaining(n *int) Cursor {
	next := c.clone()
	next.CountRemaining = n
	return next
}

// WithBlockEndsAt returns a Cursor with block_ends_at set. Pass nil to
// clear it once a block slot finishes.
func (c Cursor) WithBlockEndsAt(t *time.Time) Cursor {
	next := c.clone()
	next.BlockEndsAt = t
	return next
}

// WithInFlood returns a Cursor with in_flood set.
func (c Cursor) WithInFlood(v bool) Cursor {
	next := c.clone()
	next.InFlood = v
	return next
}

// WithInDurationFiller returns a Cursor with in_duration_filler set.
func (c Cursor) WithInDurationFiller(v bool) Cursor {
	next := c.clone()
	next.InDurationFiller = v
	return next
}

func (c Cursor) clone() Cursor {
	states := make(map[string]enumerator.State, len(c.EnumeratorStates))
	for k, v := range c.EnumeratorStates {
		states[k] = v
	}
	next := c
	next.EnumeratorStates = states
	return next
}

// jsonCursor mirrors Cursor's wire shape; it exists only so block_ends_at
// and count_remaining round-trip through their pointer/nil states
// exactly as encoding/json already does for Cursor — kept as a distinct
// type in case the wire shape needs to diverge from the in-memory shape
// later (e.g. a future instant-precision change) without touching every
// call site of ToJSON/FromJSON.
type jsonCursor Cursor

// ToJSON serialises the Cursor to its durable form.
func (c Cursor) ToJSON() ([]byte, error) {
	return json.Marshal(jsonCursor(c))
}

// FromJSON restores a Cursor from its durable form. An empty blob yields
// a zero-value Cursor with non-nil EnumeratorStates so callers can index
// it immediately.
func FromJSON(data []byte) (Cursor, error) {
	var jc jsonCursor
	if len(data) > 0 {
		if err := json.Unmarshal(data, &jc); err != nil {
			return Cursor{}, err
		}
	}
	c := Cursor(jc)
	if c.EnumeratorStates == nil {
		c.EnumeratorStates = map[string]enumerator.State{}
	}
	return c, nil
}
