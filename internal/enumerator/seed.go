package enumerator

import (
	"encoding/binary"
	"math/rand"

	"golang.org/x/crypto/blake2b"
)

// deriveRandSource turns an int64 seed into a math/rand.Source whose
// output doesn't visibly correlate across adjacent seed values — two
// enumerators built with seed and seed+1 (as happens every pass
// boundary under the `random` playback order) should not shuffle small
// vectors in near-identical ways. The teacher repo reaches for
// golang.org/x/crypto for anything seed/secret shaped (there: bcrypt
// for password hashing); here the same dependency does the hashing, a
// one-way digest rather than a keyed cipher.
func deriveRandSource(seed int64) rand.Source {
	var in [8]byte
	binary.LittleEndian.PutUint64(in[:], uint64(seed))
	sum := blake2b.Sum512(in[:])
	return rand.NewSource(int64(binary.LittleEndian.Uint64(sum[:8])))
}
