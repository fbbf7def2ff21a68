package totp

import (
	"encoding/base32"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 appendix B seed for SHA-1.
var rfcSecret = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestCode_RFCVectors(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		got, err := Code(rfcSecret, time.Unix(tt.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "t=%d", tt.unix)
	}
}

func TestGenerateSecret(t *testing.T) {
	e := New("Rosedal II")

	s, err := e.GenerateSecret("admin@rosedal.test")
	require.NoError(t, err)

	raw, err := decodeSecret(s.Secret)
	require.NoError(t, err)
	assert.Len(t, raw, SecretBytes)
	assert.NotContains(t, s.Secret, "=")

	u, err := url.Parse(s.ProvisioningURI)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", u.Scheme)
	assert.Equal(t, "totp", u.Host)
	assert.Equal(t, "/Rosedal II:admin@rosedal.test", u.Path)
	assert.Equal(t, s.Secret, u.Query().Get("secret"))
	assert.Equal(t, "Rosedal II", u.Query().Get("issuer"))
	assert.Equal(t, "SHA1", u.Query().Get("algorithm"))
	assert.Equal(t, "6", u.Query().Get("digits"))
	assert.Equal(t, "30", u.Query().Get("period"))

	other, err := e.GenerateSecret("admin@rosedal.test")
	require.NoError(t, err)
	assert.NotEqual(t, s.Secret, other.Secret)
}

func TestVerifyCode_Window(t *testing.T) {
	now := time.Unix(1_700_000_010, 0)
	e := New("", fixedClock(now))

	s, err := e.GenerateSecret("x")
	require.NoError(t, err)

	for _, d := range []time.Duration{0, 30 * time.Second, -30 * time.Second, 60 * time.Second, -60 * time.Second} {
		code, err := Code(s.Secret, now.Add(d))
		require.NoError(t, err)
		assert.True(t, e.VerifyCode(s.Secret, code, DefaultWindow), "offset %s", d)
	}

	for _, d := range []time.Duration{150 * time.Second, -150 * time.Second} {
		code, err := Code(s.Secret, now.Add(d))
		require.NoError(t, err)
		assert.False(t, e.VerifyCode(s.Secret, code, DefaultWindow), "offset %s", d)
	}

	code, err := Code(s.Secret, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, e.VerifyCode(s.Secret, code, 0))
}

func TestVerifyCode_TrimsSpaces(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	e := New("", fixedClock(now))

	code, err := Code(rfcSecret, now)
	require.NoError(t, err)
	assert.True(t, e.VerifyCode(rfcSecret, "  "+code+" ", DefaultWindow))
}

func TestVerifyCode_RejectsMalformed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	e := New("", fixedClock(now))

	code, err := Code(rfcSecret, now)
	require.NoError(t, err)

	for _, bad := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦", code + "0"} {
		assert.False(t, e.VerifyCode(rfcSecret, bad, DefaultWindow), "code %q", bad)
	}

	for _, secret := range []string{"", "not base32!", strings.Repeat("1", 16)} {
		assert.False(t, e.VerifyCode(secret, code, DefaultWindow), "secret %q", secret)
	}
}
