package click

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	authDigestLen    = 40
	authTimestampLen = 10
)

// AuthHeader builds the time-boxed Auth header value for outbound gateway
// calls: "<merchantUserID>:<sha1hex(timestamp+secret)>:<timestamp>" with the
// timestamp in whole Unix seconds. The gateway rejects stale timestamps, so
// the header must be generated fresh per request and never cached.
func AuthHeader(merchantUserID int64, secret string, now time.Time) (string, error) {
	if merchantUserID <= 0 {
		return "", fmt.Errorf("click: merchant user id is not set")
	}
	if secret == "" {
		return "", fmt.Errorf("click: secret key is not set")
	}
	// An un-trimmed secret corrupts every digest with no other symptom.
	if strings.TrimSpace(secret) != secret {
		return "", fmt.Errorf("click: secret key has surrounding whitespace")
	}

	ts := strconv.FormatInt(now.Unix(), 10)
	if len(ts) != authTimestampLen {
		return "", fmt.Errorf("click: timestamp %q is not %d digits, check the system clock", ts, authTimestampLen)
	}

	sum := sha1.Sum([]byte(ts + secret))
	digest := hex.EncodeToString(sum[:])
	if len(digest) != authDigestLen {
		return "", fmt.Errorf("click: digest length %d, want %d", len(digest), authDigestLen)
	}

	return fmt.Sprintf("%d:%s:%s", merchantUserID, digest, ts), nil
}
