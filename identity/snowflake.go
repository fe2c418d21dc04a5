package identity

import (
	"strconv"
	"strings"
	"time"
)

// Epoch is the snowflake epoch in Unix milliseconds (2015-01-01T00:00:00Z).
const Epoch int64 = 1420070400000

// MinAge is how old an external identity must be to satisfy the age gate.
const MinAge = 7 * 24 * time.Hour

const timestampShift = 22

// CreatedAt decodes the creation time embedded in a snowflake id using epochMs.
func CreatedAt(id uint64, epochMs int64) time.Time {
	return time.UnixMilli(int64(id>>timestampShift) + epochMs)
}

// ParseID parses the decimal string form of a snowflake.
func ParseID(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}

// OldEnough reports whether the identity behind id was created before now-MinAge.
// An id that does not parse never satisfies the gate.
func OldEnough(id string, now time.Time) bool {
	n, err := ParseID(id)
	if err != nil {
		return false
	}
	return CreatedAt(n, Epoch).Before(now.Add(-MinAge))
}

// IDAt builds a snowflake whose timestamp bits encode t. The low 22 bits are zero.
func IDAt(t time.Time) uint64 {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		return 0
	}
	return uint64(ms) << timestampShift
}
