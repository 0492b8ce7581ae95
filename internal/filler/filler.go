// Package filler implements the gap-filling algorithms of spec §4.4: an
// Engine draws items from a Filler Preset's resolved enumerator to cover
// a time interval, a fixed count, or the run up to the next minute
// boundary.
package filler

import (
	"context"
	"time"

	"github.com/fudoniten/pseudovision/internal/cursor"
	"github.com/fudoniten/pseudovision/internal/itemsource"
	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/timeutil"
)

// Engine fills time intervals from Filler Presets.
type Engine struct {
	src itemsource.Source
}

// New creates a filler Engine backed by src.
func New(src itemsource.Source) *Engine {
	return &Engine{src: src}
}

// Result is what every fill algorithm returns: the events it produced,
// the Cursor with the preset's enumerator state saved back, and the
// instant filling actually reached (which may be short of the requested
// end — an empty source, an overflowing item, or a guard against a
// source whose items are all zero-duration all stop early).
type Result struct {
	Events  []model.Event
	Cursor  cursor.Cursor
	Reached time.Time
}

// Duration repeatedly draws items from the preset's enumerator into
// [from, to). If the next item's duration would cross `to`, it stops
// without emitting a partial item (spec §4.4 "duration").
func (e *Engine) Duration(ctx context.Context, cur cursor.Cursor, playoutSeed int64, preset model.FillerPreset, from, to time.Time, slotID *int64, guideGroup int64) (Result, error) {
	items, err := itemsource.ItemsFor(ctx, e.src, preset.CollectionID, preset.MediaItemID)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{Cursor: cur, Reached: from}, nil
	}

	key := preset.SourceKey()
	en := cur.GetEnumerator(key, items, model.PlaybackOrderChronological, playoutSeed)

	var events []model.Event
	at := from
	// 2n consecutive zero-duration draws always span one full pass, so
	// the source has nothing with airtime.
	skipped := 0
	for at.Before(to) && skipped < 2*len(items) {
		item, next := en.Next()
		en = next
		if item.Skippable() {
			skipped++
			continue
		}
		skipped = 0
		finish := at.Add(item.Duration)
		if finish.After(to) {
			break
		}
		events = append(events, newEvent(item, preset.Role, at, finish, slotID, guideGroup))
		at = finish
	}

	return Result{Events: events, Cursor: cur.SaveEnumerator(key, en), Reached: at}, nil
}

// Count draws exactly n items back-to-back from `from`, irrespective of
// end time (spec §4.4 "count").
func (e *Engine) Count(ctx context.Context, cur cursor.Cursor, playoutSeed int64, preset model.FillerPreset, from time.Time, n int, slotID *int64, guideGroup int64) (Result, error) {
	items, err := itemsource.ItemsFor(ctx, e.src, preset.CollectionID, preset.MediaItemID)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 || n <= 0 {
		return Result{Cursor: cur, Reached: from}, nil
	}

	key := preset.SourceKey()
	en := cur.GetEnumerator(key, items, model.PlaybackOrderChronological, playoutSeed)

	var events []model.Event
	at := from
	for i := 0; i < n; i++ {
		item, next := en.Next()
		en = next
		if item.Skippable() {
			continue
		}
		finish := at.Add(item.Duration)
		events = append(events, newEvent(item, preset.Role, at, finish, slotID, guideGroup))
		at = finish
	}

	return Result{Events: events, Cursor: cur.SaveEnumerator(key, en), Reached: at}, nil
}

// PadToBoundary computes the next multiple of n minutes at or after
// `from`, clamps it to `ceil`, and delegates to Duration with that
// target (spec §4.4 "pad_to_boundary").
func (e *Engine) PadToBoundary(ctx context.Context, cur cursor.Cursor, playoutSeed int64, preset model.FillerPreset, from, ceil time.Time, nMinutes int, slotID *int64, guideGroup int64) (Result, error) {
	target := timeutil.CeilToMinuteBoundary(from, nMinutes)
	if target.After(ceil) {
		target = ceil
	}
	return e.Duration(ctx, cur, playoutSeed, preset, from, target, slotID, guideGroup)
}

func newEvent(item model.MediaItem, role model.FillerRole, start, finish time.Time, slotID *int64, guideGroup int64) model.Event {
	id := item.ID
	return model.Event{
		MediaItemID: &id,
		Kind:        model.EventKind(role),
		StartAt:     start,
		FinishAt:    finish,
		GuideGroup:  guideGroup,
		SlotID:      slotID,
		IsManual:    false,
	}
}
