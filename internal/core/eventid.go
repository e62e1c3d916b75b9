package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// MintEventID produces a fresh event id: a YYYYMMDDhhmmss timestamp prefix
// followed by a 24-hex-digit random suffix, keeping ids sortable by
// creation time while remaining globally unique.
func MintEventID(now time.Time) string {
	prefix := now.UTC().Format("20060102150405")
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on a *rand.Reader only fails if the OS source is
		// broken; there is no meaningful recovery for an id generator.
		panic(fmt.Sprintf("core: reading random event id suffix: %v", err))
	}
	return prefix + hex.EncodeToString(buf[:])
}
