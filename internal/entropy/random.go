// Package entropy provides non-reproducible seeds for random streams that
// must never feed shared generation state (cosmetic picks, bot choices).
// Backed by crypto/rand, with a clock fallback if the OS source fails.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"
)

// Seed returns a fresh 63-bit seed suitable for math/rand sources.
func Seed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Debug("crypto/rand seed failed, using clock", "error", err)
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
