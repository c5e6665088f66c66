package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", "CTP")
	expiry := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)

	raw, err := codec.Sign("pass-1", "student-1", expiry)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "CTP|"))

	claims, err := codec.Verify(raw, expiry.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "pass-1", claims.CredentialID)
	assert.Equal(t, "student-1", claims.StudentID)
	assert.True(t, claims.ExpiresAt.Equal(expiry))
}

func TestCodecTamperedSignature(t *testing.T) {
	codec := NewCodec("test-secret", "CTP")
	raw, err := codec.Sign("pass-1", "student-1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	// Flip one character of the hex signature.
	last := raw[len(raw)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := raw[:len(raw)-1] + string(flipped)

	_, err = codec.Verify(tampered, time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadSignature.Code, appErrors.FromError(err).Code)
}

func TestCodecTamperedPayload(t *testing.T) {
	codec := NewCodec("test-secret", "CTP")
	raw, err := codec.Sign("pass-1", "student-1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	tampered := strings.Replace(raw, "student-1", "student-2", 1)
	_, err = codec.Verify(tampered, time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadSignature.Code, appErrors.FromError(err).Code)
}

func TestCodecMalformed(t *testing.T) {
	codec := NewCodec("test-secret", "CTP")

	cases := []string{
		"",
		"CTP|only|three|fields",
		"WRONG|pass-1|student-1|2026-06-30T00:00:00Z|deadbeef",
		"CTP||student-1|2026-06-30T00:00:00Z|deadbeef",
	}
	for _, raw := range cases {
		_, err := codec.Verify(raw, time.Now().UTC())
		require.Error(t, err, raw)
		assert.Equal(t, appErrors.ErrMalformedToken.Code, appErrors.FromError(err).Code, raw)
	}
}

func TestCodecExpired(t *testing.T) {
	codec := NewCodec("test-secret", "CTP")
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	raw, err := codec.Sign("ticket-1", "student-1", expiry)
	require.NoError(t, err)

	// At the expiry instant the token is still valid; one second later it is not.
	_, err = codec.Verify(raw, expiry)
	assert.NoError(t, err)

	_, err = codec.Verify(raw, expiry.Add(time.Second))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
}

func TestCodecsWithDifferentSecretsDisagree(t *testing.T) {
	a := NewCodec("secret-a", "CTP")
	b := NewCodec("secret-b", "CTP")

	raw, err := a.Sign("pass-1", "student-1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	_, err = b.Verify(raw, time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadSignature.Code, appErrors.FromError(err).Code)
}
