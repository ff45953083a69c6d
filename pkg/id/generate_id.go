package id

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NewLoanID builds a loan id from the creation timestamp plus a random
// suffix: "<unix-nanos>-<suffix>", suffix in [1, 1e9].
func NewLoanID(ts time.Time) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	suffix := binary.BigEndian.Uint64(b[:])%1_000_000_000 + 1
	return fmt.Sprintf("%d-%d", ts.UnixNano(), suffix)
}
