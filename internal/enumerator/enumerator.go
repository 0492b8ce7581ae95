// Package enumerator implements the finite, restartable, looping
// iterator over a fixed item vector described in spec §4.1. It is the
// leaf of the build engine: the Cursor and Filler Engine both hold one
// Enumerator per collection key and drive it with Next.
package enumerator

import (
	"math/rand"

	"github.com/fudoniten/pseudovision/internal/model"
)

// State is the serialisable projection of an Enumerator — the shape the
// Cursor persists per collection key (spec §4.1 "Cursor projection").
type State struct {
	Index         int64             `json:"index"`
	Seed          int64             `json:"seed"`
	PlaybackOrder model.PlaybackOrder `json:"playback_order"`
}

// Enumerator walks a fixed item vector in one of the playback orders
// described in spec §4.1. Next advances the Enumerator in place and
// returns the same pointer; the Cursor keeps only its State projection.
type Enumerator struct {
	items []model.MediaItem
	order model.PlaybackOrder
	seed  int64
	index int64

	// permutation is computed eagerly by New and FromState and cached for
	// chronological-within-pass orders (shuffle/random/season_episode).
	permutation []int
}

// New builds a fresh Enumerator over items for the given order and seed.
func New(items []model.MediaItem, order model.PlaybackOrder, seed int64) *Enumerator {
	e := &Enumerator{items: items, order: order, seed: seed}
	e.ensurePermutation()
	return e
}

// FromState restores an Enumerator from its serialised projection,
// deterministically rebuilding any permutation from (seed, n) — §4.1:
// "Restoration from cursor rebuilds the permutation deterministically
// from `seed` and `n`, then restores `index`."
func FromState(items []model.MediaItem, s State) *Enumerator {
	e := &Enumerator{items: items, order: s.PlaybackOrder, seed: s.Seed, index: s.Index}
	e.ensurePermutation()
	return e
}

// State projects the Enumerator's current state for persistence.
func (e *Enumerator) State() State {
	return State{Index: e.index, Seed: e.seed, PlaybackOrder: e.order}
}

// Len reports the number of items in the underlying vector.
func (e *Enumerator) Len() int {
	return len(e.items)
}

// Empty reports whether the enumerator has no items. A caller detecting
// this must terminate its loop and leave the slot unfilled (§4.1).
func (e *Enumerator) Empty() bool {
	return len(e.items) == 0
}

func (e *Enumerator) ensurePermutation() {
	n := len(e.items)
	if n == 0 {
		return
	}
	switch e.order {
	case model.PlaybackOrderShuffle, model.PlaybackOrderRandom:
		e.permutation = permute(n, e.seed)
	case model.PlaybackOrderSeasonEpisode:
		e.permutation = seasonEpisodeOrder(e.items)
	default:
		// chronological and unknown orders fall through to identity.
	}
}

// Next draws the next item per spec §4.1's next(e) -> (item, e')
// operation. The enumerator advances in place and is also returned, so
// callers can either keep using their original pointer or rebind to the
// return value — both observe the same advanced state.
func (e *Enumerator) Next() (model.MediaItem, *Enumerator) {
	n := len(e.items)
	if n == 0 {
		return model.MediaItem{}, e
	}

	if e.order == model.PlaybackOrderRandom && e.index > 0 && e.index%int64(n) == 0 {
		// Reshuffle at every pass boundary with a new derived seed
		// (§4.1: "reshuffles at every pass boundary ... deriving a new
		// seed seed+1; both new permutation and new seed are recorded").
		e.seed++
		e.permutation = permute(n, e.seed)
	}

	pos := int(e.index % int64(n))
	var item model.MediaItem
	switch e.order {
	case model.PlaybackOrderShuffle, model.PlaybackOrderRandom, model.PlaybackOrderSeasonEpisode:
		item = e.items[e.permutation[pos]]
	default:
		item = e.items[pos]
	}

	e.index++
	return item, e
}

// permute derives a deterministic permutation of {0..n-1} from seed,
// matching the spec's requirement that two enumerators built with the
// same seed produce the same first item (§8 scenario 2). The seed is
// hashed through deriveRandSource so unrelated seeds don't produce
// visibly correlated permutations for small n.
func permute(n int, seed int64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := rand.New(deriveRandSource(seed))
	r.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}

// seasonEpisodeOrder pre-sorts items by (parent_id, position) and
// returns the resulting permutation of indices into items, then is
// treated as chronological over that order (§4.1).
func seasonEpisodeOrder(items []model.MediaItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	less := func(i, j int) bool {
		a, b := items[idx[i]], items[idx[j]]
		ap, bp := int64(0), int64(0)
		if a.ParentID != nil {
			ap = *a.ParentID
		}
		if b.ParentID != nil {
			bp = *b.ParentID
		}
		if ap != bp {
			return ap < bp
		}
		return a.Position < b.Position
	}
	// insertion sort: n is small (one collection's worth of episodes),
	// and it keeps the sort stable without importing sort for one call
	// site's comparator.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}
