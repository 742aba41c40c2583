package click

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthHeader_Format(t *testing.T) {
	now := time.Unix(1756555200, 0)
	got, err := AuthHeader(42, "topsecret", now)
	require.NoError(t, err)

	parts := strings.Split(got, ":")
	require.Len(t, parts, 3)
	require.Equal(t, "42", parts[0])
	require.Len(t, parts[1], 40)
	require.Equal(t, "1756555200", parts[2])

	sum := sha1.Sum([]byte("1756555200" + "topsecret"))
	require.Equal(t, hex.EncodeToString(sum[:]), parts[1])
}

func TestAuthHeader_StableWithinSameSecond(t *testing.T) {
	now := time.Unix(1756555200, 0)
	a, err := AuthHeader(42, "topsecret", now)
	require.NoError(t, err)
	b, err := AuthHeader(42, "topsecret", now.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := AuthHeader(42, "topsecret", now.Add(time.Second))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestAuthHeader_RejectsPaddedSecret(t *testing.T) {
	now := time.Unix(1756555200, 0)
	_, err := AuthHeader(42, " topsecret", now)
	require.Error(t, err)
	_, err = AuthHeader(42, "topsecret\n", now)
	require.Error(t, err)
}

func TestAuthHeader_RejectsMissingCredentials(t *testing.T) {
	now := time.Unix(1756555200, 0)
	_, err := AuthHeader(0, "topsecret", now)
	require.Error(t, err)
	_, err = AuthHeader(42, "", now)
	require.Error(t, err)
}

func TestAuthHeader_RejectsNonTenDigitTimestamp(t *testing.T) {
	_, err := AuthHeader(42, "topsecret", time.Unix(999999999, 0))
	require.Error(t, err)
	require.Contains(t, fmt.Sprint(err), "clock")
}
