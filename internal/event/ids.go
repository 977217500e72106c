package event

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID generates a unique event identifier with a short module prefix,
// e.g. "fs-3f1c9a2b7d8e4c01". IDs are assigned at creation and never reused.
func NewID(prefix string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(id[:])[:16])
}

// NewUUID returns a bare UUID string, used for session and artifact ids.
func NewUUID() string {
	return uuid.New().String()
}

// Now returns the current capture time as unix seconds with sub-second
// precision, the encoding used by the ts envelope field.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
