// Package model holds the shared domain types for channels, schedules,
// slots, collections, media items, and the events a build produces.
// Business logic lives in the packages that operate on these types
// (enumerator, cursor, collection, filler, playout); this package only
// defines the shapes so those packages can share them without import
// cycles.
package model

import "time"

// MediaKind distinguishes the kind of content a Media Item represents.
type MediaKind string

const (
	MediaKindMovie   MediaKind = "movie"
	MediaKindEpisode MediaKind = "episode"
	MediaKindSong    MediaKind = "song"
	MediaKindOther   MediaKind = "other"
)

// MediaItemState reflects whether a media item's version is ready to air.
type MediaItemState string

const (
	MediaItemStateNormalized  MediaItemState = "normalized"
	MediaItemStateFallback    MediaItemState = "fallback"
	MediaItemStateUnavailable MediaItemState = "unavailable"
)

// MediaItem is an addressable unit of playable content. Duration and
// playback state are fields of the item itself (the duration_ms and
// state columns of media_items); there is no separate version record.
// A MediaItem with zero duration is a skippable placeholder.
type MediaItem struct {
	ID          int64          `json:"id"`
	LibraryID   *int64         `json:"library_id,omitempty"`
	Kind        MediaKind      `json:"kind"`
	Title       string         `json:"title"`
	SortTitle   string         `json:"sort_title"`
	ParentID    *int64         `json:"parent_id,omitempty"`
	Position    int32          `json:"position"`
	Year        *int32         `json:"year,omitempty"`
	Duration    time.Duration  `json:"duration"`
	State       MediaItemState `json:"state"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Skippable reports whether this item should be dropped from a built
// timeline because it carries no airtime.
func (m MediaItem) Skippable() bool {
	return m.Duration <= 0
}

// CollectionKind is the tagged-variant discriminator for Collections (§9:
// polymorphic collections are a closed six-variant tagged union, not an
// open hierarchy).
type CollectionKind string

const (
	CollectionKindManual   CollectionKind = "manual"
	CollectionKindPlaylist CollectionKind = "playlist"
	CollectionKindMulti    CollectionKind = "multi"
	CollectionKindTrakt    CollectionKind = "trakt"
	CollectionKindSmart    CollectionKind = "smart"
	CollectionKindRerun    CollectionKind = "rerun"
)

// Collection is a named container that resolves to an ordered list of
// Media Items. Config is kind-specific: playlist/multi carry ordered
// child-collection references, manual/trakt resolve via junction tables.
type Collection struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Kind      CollectionKind `json:"kind"`
	Config    CollectionConfig `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CollectionConfig is the JSON document stored in collections.config.
// Only the fields relevant to the collection's kind are populated.
type CollectionConfig struct {
	// playlist: ordered child collection ids
	Items []int64 `json:"items,omitempty"`
	// multi: unordered-declaration-order child collection ids
	Members []int64 `json:"members,omitempty"`
}

// Key returns the stable collection key used to bucket enumerator state
// in a Cursor (§4.2): "collection:<id>".
func (c Collection) Key() string {
	return CollectionKeyFor(c.ID)
}

// CollectionKeyFor builds the collection-key string for a collection id.
func CollectionKeyFor(id int64) string {
	return "collection:" + itoa(id)
}

// MediaItemKeyFor builds the collection-key string for a single-item slot.
func MediaItemKeyFor(id int64) string {
	return "item:" + itoa(id)
}

func itoa(id int64) string {
	if id == 0 {
		return "0"
	}
	neg := id < 0
	if neg {
		id = -id
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = byte('0' + id%10)
		id /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PlaybackOrder selects how an Enumerator walks a collection's items.
type PlaybackOrder string

const (
	PlaybackOrderChronological  PlaybackOrder = "chronological"
	PlaybackOrderShuffle        PlaybackOrder = "shuffle"
	PlaybackOrderRandom         PlaybackOrder = "random"
	PlaybackOrderSeasonEpisode  PlaybackOrder = "season_episode"
)

// SlotAnchor fixes a Slot to a time-of-day or lets it float after the
// previous slot.
type SlotAnchor string

const (
	SlotAnchorFixed      SlotAnchor = "fixed"
	SlotAnchorSequential SlotAnchor = "sequential"
)

// FixedStartBehavior is the Schedule-level policy for a fixed anchor that
// has already passed when the build reaches it.
type FixedStartBehavior string

const (
	FixedStartSkip FixedStartBehavior = "skip"
	FixedStartPlay FixedStartBehavior = "play"
)

// FillMode is one of the four strategies a Slot Dispatcher runs.
type FillMode string

const (
	FillModeOnce  FillMode = "once"
	FillModeCount FillMode = "count"
	FillModeBlock FillMode = "block"
	FillModeFlood FillMode = "flood"
)

// TailMode governs what happens when a block slot's last item would
// overflow the block boundary.
type TailMode string

const (
	TailModeNone    TailMode = "none"
	TailModeFiller  TailMode = "filler"
	TailModeOffline TailMode = "offline"
)

// Schedule is a named, reusable ordered sequence of Slots.
type Schedule struct {
	ID                     int64              `json:"id"`
	Name                   string             `json:"name"`
	FixedStartTimeBehavior FixedStartBehavior `json:"fixed_start_time_behavior"`
	ShuffleSlots           bool               `json:"shuffle_slots"`
	RandomStartPoint       bool               `json:"random_start_point"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Slot is one schedule entry.
type Slot struct {
	ID         int64      `json:"id"`
	ScheduleID int64      `json:"schedule_id"`
	SlotIndex  int32      `json:"slot_index"`
	Anchor     SlotAnchor `json:"anchor"`
	// StartTime is a time-of-day offset from local midnight; required
	// iff Anchor == SlotAnchorFixed.
	StartTime *time.Duration `json:"start_time,omitempty"`

	FillMode      FillMode `json:"fill_mode"`
	ItemCount     *int32   `json:"item_count,omitempty"`     // required iff FillMode == count
	BlockDuration *time.Duration `json:"block_duration,omitempty"` // required iff FillMode == block
	TailMode      TailMode `json:"tail_mode,omitempty"`

	// Exactly one of CollectionID / MediaItemID is set.
	CollectionID *int64 `json:"collection_id,omitempty"`
	MediaItemID  *int64 `json:"media_item_id,omitempty"`

	PlaybackOrder PlaybackOrder `json:"playback_order"`

	// Optional filler role overrides (Filler Preset ids). Only FillerTail
	// is read by the build engine, for a block slot with tail_mode=filler;
	// when it is nil the tail is left as a gap. Channels carry no filler
	// defaults.
	FillerPre      *int64 `json:"filler_pre,omitempty"`
	FillerMid      *int64 `json:"filler_mid,omitempty"`
	FillerPost     *int64 `json:"filler_post,omitempty"`
	FillerTail     *int64 `json:"filler_tail,omitempty"`
	FillerFallback *int64 `json:"filler_fallback,omitempty"`

	CustomTitle *string `json:"custom_title,omitempty"`
}

// Validate enforces the "exactly one content source" constraint (§3
// invariant 6) at the application layer, in addition to whatever
// database constraint backs it.
func (s Slot) Validate() error {
	hasCollection := s.CollectionID != nil
	hasItem := s.MediaItemID != nil
	if hasCollection == hasItem {
		return ErrSlotSourceAmbiguous
	}
	if s.Anchor == SlotAnchorFixed && s.StartTime == nil {
		return ErrFixedSlotNeedsStartTime
	}
	if s.FillMode == FillModeCount && s.ItemCount == nil {
		return ErrCountSlotNeedsItemCount
	}
	if s.FillMode == FillModeBlock && s.BlockDuration == nil {
		return ErrBlockSlotNeedsDuration
	}
	return nil
}

// SourceKey returns the collection key this slot's enumerator state is
// bucketed under.
func (s Slot) SourceKey() string {
	if s.CollectionID != nil {
		return CollectionKeyFor(*s.CollectionID)
	}
	return MediaItemKeyFor(*s.MediaItemID)
}

// Channel is a named broadcast stream with a stable external UUID.
type Channel struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	Number     int32     `json:"number"`
	ScheduleID *int64    `json:"schedule_id,omitempty"`
	ZoneID     string    `json:"zone_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Playout is the live compiled timeline for one Channel.
type Playout struct {
	ID            int64      `json:"id"`
	ChannelID     int64      `json:"channel_id"`
	ScheduleID    *int64     `json:"schedule_id,omitempty"`
	Seed          int64      `json:"seed"`
	Cursor        []byte     `json:"cursor"` // opaque JSON; see package cursor
	LastBuiltAt   *time.Time `json:"last_built_at,omitempty"`
	BuildSuccess  bool       `json:"build_success"`
	BuildMessage  *string    `json:"build_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EventKind distinguishes automatic content events from filler/pad/tail
// and manual overlays.
type EventKind string

const (
	EventKindContent  EventKind = "content"
	EventKindPre      EventKind = "pre"
	EventKindMid      EventKind = "mid"
	EventKindPost     EventKind = "post"
	EventKindPad      EventKind = "pad"
	EventKindTail     EventKind = "tail"
	EventKindFallback EventKind = "fallback"
	EventKindOffline  EventKind = "offline"
)

// Event is one scheduled airing.
type Event struct {
	ID           int64      `json:"id"`
	PlayoutID    int64      `json:"playout_id"`
	MediaItemID  *int64     `json:"media_item_id,omitempty"`
	Kind         EventKind  `json:"kind"`
	StartAt      time.Time  `json:"start_at"`
	FinishAt     time.Time  `json:"finish_at"`
	GuideGroup   int64      `json:"guide_group"`
	SlotID       *int64     `json:"slot_id,omitempty"`
	IsManual     bool       `json:"is_manual"`
	CustomTitle  *string    `json:"custom_title,omitempty"`
	InPoint      *time.Duration `json:"in_point,omitempty"`
	OutPoint     *time.Duration `json:"out_point,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Duration returns finish_at - start_at.
func (e Event) Duration() time.Duration {
	return e.FinishAt.Sub(e.StartAt)
}

// FillerRole selects which gap-filling slot a FillerPreset answers for.
type FillerRole string

const (
	FillerRolePre      FillerRole = "pre"
	FillerRoleMid      FillerRole = "mid"
	FillerRolePost     FillerRole = "post"
	FillerRoleTail     FillerRole = "tail"
	FillerRoleFallback FillerRole = "fallback"
)

// FillerMode is the fill algorithm a FillerPreset uses (§4.4).
type FillerMode string

const (
	FillerModeDuration     FillerMode = "duration"
	FillerModeCount        FillerMode = "count"
	FillerModeRandomCount  FillerMode = "random_count"
	FillerModePadToMinute  FillerMode = "pad_to_minute"
)

// FillerPreset is a named filler policy resolved per role.
type FillerPreset struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Role               FillerRole  `json:"role"`
	Mode               FillerMode  `json:"mode"`
	Count              *int32      `json:"count,omitempty"`
	PadToNearestMinute *int32      `json:"pad_to_nearest_minute,omitempty"`
	CollectionID       *int64      `json:"collection_id,omitempty"`
	MediaItemID        *int64      `json:"media_item_id,omitempty"`
}

// SourceKey returns the collection key this preset's enumerator state is
// bucketed under.
func (p FillerPreset) SourceKey() string {
	if p.CollectionID != nil {
		return CollectionKeyFor(*p.CollectionID)
	}
	return MediaItemKeyFor(*p.MediaItemID)
}
