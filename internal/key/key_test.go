package key

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePermissions(t *testing.T) {
	perms, err := validatePermissions([]string{"read", " Purchase "})
	require.NoError(t, err)
	assert.Equal(t, []string{"READ", "PURCHASE"}, perms)

	_, err = validatePermissions([]string{"READ", "DEPOSIT"})
	assert.EqualError(t, err, "invalid permission: DEPOSIT")

	_, err = validatePermissions(nil)
	assert.Error(t, err)
}

func TestParseExpiry(t *testing.T) {
	before := time.Now()
	exp, err := parseExpiry("1d")
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(24*time.Hour), exp, time.Second)

	_, err = parseExpiry("2W")
	assert.Error(t, err)
}

func TestGeneratedKeysAreHashedAndMasked(t *testing.T) {
	k, err := generateSecureKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(k, "sk_live_"))
	assert.Len(t, k, len("sk_live_")+32)

	masked := maskKey(k)
	assert.Equal(t, k[:8]+"..."+k[len(k)-4:], masked)
	assert.NotContains(t, masked, k[8:len(k)-4])

	assert.Len(t, hashKey(k), 64)
	assert.Equal(t, hashKey(k), hashKey(k))
	assert.NotEqual(t, k, hashKey(k))
}

func TestActive(t *testing.T) {
	now := time.Now()
	k := &APIKey{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, k.Active(now))

	k.IsRevoked = true
	assert.False(t, k.Active(now))

	assert.False(t, (&APIKey{ExpiresAt: now.Add(-time.Minute)}).Active(now))
}
