// Package playout implements the Slot Dispatcher and Build Driver (spec
// §4.5, §4.6): turning one Slot into a run of Events against a Cursor,
// and turning a Schedule's full slot list into a rebuilt Playout
// timeline.
package playout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/cursor"
	"github.com/fudoniten/pseudovision/internal/enumerator"
	"github.com/fudoniten/pseudovision/internal/filler"
	"github.com/fudoniten/pseudovision/internal/itemsource"
	"github.com/fudoniten/pseudovision/internal/model"
)

// Dispatcher processes one Slot at a time against a Cursor.
type Dispatcher struct {
	src    itemsource.Source
	preset itemsource.PresetLookup
	fill   *filler.Engine
	logger *zap.Logger
}

// New creates a Dispatcher. src resolves slot content; preset resolves
// filler-role overrides to the Filler Preset the engine should run.
func New(src itemsource.Source, preset itemsource.PresetLookup, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{src: src, preset: preset, fill: filler.New(src), logger: logger}
}

// floodFallback is the fallback window for a flood slot with no later
// fixed anchor to bound it (spec §4.5 "flood").
const floodFallback = 2 * time.Hour

// Dispatch processes slot against cur and returns the events it
// produced along with the advanced Cursor. floodEnd is the bound
// computed by the build driver for flood slots (spec §4.6 step 4b); it
// is ignored for every other fill mode.
func (d *Dispatcher) Dispatch(ctx context.Context, cur cursor.Cursor, playoutSeed int64, slot model.Slot, floodEnd *time.Time) ([]model.Event, cursor.Cursor, error) {
	items, err := itemsource.ItemsFor(ctx, d.src, slot.CollectionID, slot.MediaItemID)
	if err != nil {
		return nil, cur, fmt.Errorf("resolve slot %d content: %w", slot.ID, err)
	}

	key := slot.SourceKey()
	order := slot.PlaybackOrder
	if order == "" {
		order = model.PlaybackOrderChronological
	}
	en := cur.GetEnumerator(key, items, order, playoutSeed)
	guideGroup := cur.NextGuideGroup

	switch slot.FillMode {
	case model.FillModeOnce:
		return d.dispatchOnce(cur, en, key, items, slot, guideGroup)
	case model.FillModeCount:
		return d.dispatchCount(cur, en, key, items, slot, guideGroup)
	case model.FillModeBlock:
		return d.dispatchBlock(ctx, cur, en, key, items, slot, guideGroup)
	case model.FillModeFlood:
		end := floodBound(cur.NextStart, floodEnd)
		return d.dispatchFlood(cur, en, key, items, slot, guideGroup, end)
	default:
		d.logger.Warn("unknown fill mode, no events produced",
			zap.Int64("slot_id", slot.ID), zap.String("fill_mode", string(slot.FillMode)))
		return nil, cur, nil
	}
}

func floodBound(nextStart time.Time, floodEnd *time.Time) time.Time {
	if floodEnd != nil {
		return *floodEnd
	}
	return nextStart.Add(floodFallback)
}

func (d *Dispatcher) dispatchOnce(cur cursor.Cursor, en *enumerator.Enumerator, key string, items []model.MediaItem, slot model.Slot, guideGroup int64) ([]model.Event, cursor.Cursor, error) {
	if len(items) == 0 {
		// Empty content source: no event, cursor unchanged except for the
		// guide_group bump (spec §8 boundary behaviour).
		return nil, cur.SaveEnumerator(key, en).BumpGuideGroup(), nil
	}
	item, next := en.Next()
	start := cur.NextStart
	finish := start.Add(item.Duration)

	ev := contentEvent(item, start, finish, slot.ID, guideGroup)
	out := cur.SaveEnumerator(key, next).WithNextStart(finish).BumpGuideGroup()
	return []model.Event{ev}, out, nil
}

func (d *Dispatcher) dispatchCount(cur cursor.Cursor, en *enumerator.Enumerator, key string, items []model.MediaItem, slot model.Slot, guideGroup int64) ([]model.Event, cursor.Cursor, error) {
	if len(items) == 0 || slot.ItemCount == nil || *slot.ItemCount == 0 {
		// Empty source or items_count=0: zero events (spec §8 boundary
		// behaviour), still bump guide_group as dispatchOnce does for an
		// empty source.
		return nil, cur.SaveEnumerator(key, en).BumpGuideGroup(), nil
	}
	n := int(*slot.ItemCount)
	var events []model.Event
	at := cur.NextStart
	for i := 0; i < n; i++ {
		item, next := en.Next()
		en = next
		if item.Skippable() {
			continue
		}
		finish := at.Add(item.Duration)
		events = append(events, contentEvent(item, at, finish, slot.ID, guideGroup))
		at = finish
	}
	out := cur.SaveEnumerator(key, en).WithNextStart(at).BumpGuideGroup()
	return events, out, nil
}

func (d *Dispatcher) dispatchBlock(ctx context.Context, cur cursor.Cursor, en *enumerator.Enumerator, key string, items []model.MediaItem, slot model.Slot, guideGroup int64) ([]model.Event, cursor.Cursor, error) {
	if slot.BlockDuration == nil {
		return nil, cur, nil
	}
	blockEnd := cur.NextStart.Add(*slot.BlockDuration)
	events, en, at, overflowed := runBlockBody(items, en, slot.ID, guideGroup, cur.NextStart, blockEnd)

	out := cur.SaveEnumerator(key, en)
	if !overflowed {
		out = out.WithNextStart(blockEnd).BumpGuideGroup()
		return events, out, nil
	}

	tailEvents, tailCursor, err := d.runTail(ctx, out, slot, guideGroup, at, blockEnd)
	if err != nil {
		return nil, cur, err
	}
	events = append(events, tailEvents...)
	out = tailCursor.WithNextStart(blockEnd).BumpGuideGroup()
	return events, out, nil
}

func (d *Dispatcher) dispatchFlood(cur cursor.Cursor, en *enumerator.Enumerator, key string, items []model.MediaItem, slot model.Slot, guideGroup int64, end time.Time) ([]model.Event, cursor.Cursor, error) {
	events, en, _, _ := runBlockBody(items, en, slot.ID, guideGroup, cur.NextStart, end)
	out := cur.SaveEnumerator(key, en).WithNextStart(end).BumpGuideGroup()
	return events, out, nil
}

// runBlockBody draws items from `from` until the next one would cross
// `end`, then stops (spec §4.5 "block"/"flood" shared body). It reports
// whether it stopped due to an overflowing item (block's signal to run
// a tail) versus simply running out of content.
func runBlockBody(items []model.MediaItem, en *enumerator.Enumerator, slotID int64, guideGroup int64, from, end time.Time) ([]model.Event, *enumerator.Enumerator, time.Time, bool) {
	if len(items) == 0 {
		return nil, en, from, false
	}
	var events []model.Event
	at := from
	// 2n consecutive zero-duration draws always span one full pass, so
	// the source has nothing with airtime.
	skipped := 0
	for at.Before(end) && skipped < 2*len(items) {
		item, next := en.Next()
		en = next
		if item.Skippable() {
			skipped++
			continue
		}
		skipped = 0
		finish := at.Add(item.Duration)
		if finish.After(end) {
			return events, en, at, true
		}
		events = append(events, contentEvent(item, at, finish, slotID, guideGroup))
		at = finish
	}
	return events, en, at, false
}

// runTail handles what happens at a block slot's overflow point per its
// tail_mode (spec §4.5 "block").
func (d *Dispatcher) runTail(ctx context.Context, cur cursor.Cursor, slot model.Slot, guideGroup int64, at, blockEnd time.Time) ([]model.Event, cursor.Cursor, error) {
	switch slot.TailMode {
	case model.TailModeNone, "":
		return nil, cur, nil
	case model.TailModeOffline:
		return []model.Event{{Kind: model.EventKindOffline, StartAt: at, FinishAt: blockEnd, GuideGroup: guideGroup, SlotID: &slot.ID}}, cur, nil
	case model.TailModeFiller:
		presetID := slot.FillerTail
		if presetID == nil {
			d.logger.Warn("tail_mode=filler with no tail preset configured", zap.Int64("slot_id", slot.ID))
			return nil, cur, nil
		}
		preset, err := d.preset.FillerPreset(ctx, *presetID)
		if err != nil {
			return nil, cur, fmt.Errorf("resolve tail filler preset %d: %w", *presetID, err)
		}
		res, err := d.fill.Duration(ctx, cur, 0, preset, at, blockEnd, &slot.ID, guideGroup)
		if err != nil {
			return nil, cur, fmt.Errorf("run tail filler for slot %d: %w", slot.ID, err)
		}
		return res.Events, res.Cursor, nil
	default:
		d.logger.Warn("unknown tail_mode, leaving gap", zap.Int64("slot_id", slot.ID), zap.String("tail_mode", string(slot.TailMode)))
		return nil, cur, nil
	}
}

func contentEvent(item model.MediaItem, start, finish time.Time, slotID int64, guideGroup int64) model.Event {
	id := item.ID
	return model.Event{
		MediaItemID: &id,
		Kind:        model.EventKindContent,
		StartAt:     start,
		FinishAt:    finish,
		GuideGroup:  guideGroup,
		SlotID:      &slotID,
		IsManual:    false,
	}
}
