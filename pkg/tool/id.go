package tool

import (
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratePrepareID mints the merchant_prepare_id returned to the gateway at
// prepare time. Millisecond resolution keeps ids unique per attempt while
// staying a plain integer the gateway echoes back verbatim.
func GeneratePrepareID(now time.Time) int64 {
	return now.UnixMilli()
}
