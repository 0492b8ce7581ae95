package model

import "errors"

var (
	// ErrSlotSourceAmbiguous is returned when a Slot sets both or
	// neither of collection_id/media_item_id (§3 invariant 6).
	ErrSlotSourceAmbiguous = errors.New("slot must set exactly one of collection_id or media_item_id")

	// ErrFixedSlotNeedsStartTime is returned when a fixed-anchor slot
	// has no start_time.
	ErrFixedSlotNeedsStartTime = errors.New("fixed anchor slot requires start_time")

	// ErrCountSlotNeedsItemCount is returned when a count-mode slot has
	// no item_count.
	ErrCountSlotNeedsItemCount = errors.New("count fill mode requires item_count")

	// ErrBlockSlotNeedsDuration is returned when a block-mode slot has
	// no block_duration.
	ErrBlockSlotNeedsDuration = errors.New("block fill mode requires block_duration")
)
