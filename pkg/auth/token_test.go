package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-signing-secret"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, time.Hour)
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec("", time.Hour)
	assert.Error(t, err)
}

func TestNewCodec_DefaultTTL(t *testing.T) {
	codec, err := NewCodec(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, codec.TTL())
}

func TestCodec_Roundtrip(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("user-1", "alice@example.com", "user", 0)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestCodec_EncodeRequiresSubject(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode("", "alice@example.com", "user", 0)
	assert.Error(t, err)
}

func TestCodec_EmptyRoleDefaults(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("user-1", "", "", 0)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, claims.Role)
}

func TestCodec_ExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("user-1", "alice@example.com", "user", -time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("a-different-secret", time.Hour)
	require.NoError(t, err)

	token, err := other.Encode("user-1", "alice@example.com", "user", 0)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_TamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("user-1", "alice@example.com", "user", 0)
	require.NoError(t, err)

	_, err = codec.Decode(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Decode("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_RejectsUnsignedToken(t *testing.T) {
	codec := newTestCodec(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_MissingSubject(t *testing.T) {
	codec := newTestCodec(t)

	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := signed.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some.jwt.token")

	assert.Len(t, fp, FingerprintLength)
	assert.Regexp(t, regexp.MustCompile("^[0-9a-f]+$"), fp)

	// Deterministic per token, different across tokens
	assert.Equal(t, fp, Fingerprint("some.jwt.token"))
	assert.NotEqual(t, fp, Fingerprint("some.jwt.tokem"))
}
