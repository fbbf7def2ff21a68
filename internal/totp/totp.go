// Package totp implements RFC 6238 time-based one-time passwords
// (HMAC-SHA1, 6 digits, 30 second period) for the second login factor.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	SecretBytes = 20
	Digits      = 6
	Period      = 30

	DefaultIssuer = "Rosedal II"
	DefaultWindow = 2
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is a freshly generated shared secret and its provisioning URI for
// authenticator apps.
type Secret struct {
	Secret          string
	ProvisioningURI string
}

type Engine struct {
	issuer string
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(issuer string, opts ...Option) *Engine {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	e := &Engine{issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Issuer() string { return e.issuer }

// GenerateSecret creates a 160-bit secret and the otpauth URI labelled
// "<issuer>:<label>".
func (e *Engine) GenerateSecret(label string) (Secret, error) {
	raw := make([]byte, SecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return Secret{}, err
	}
	secret := b32.EncodeToString(raw)

	return Secret{Secret: secret, ProvisioningURI: e.ProvisioningURI(secret, label)}, nil
}

func (e *Engine) ProvisioningURI(secret, label string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", fmt.Sprint(Digits))
	v.Set("period", fmt.Sprint(Period))

	return "otpauth://totp/" + url.PathEscape(e.issuer+":"+label) + "?" + v.Encode()
}

// VerifyCode reports whether code matches secret at any step within
// window steps of now. Codes that are not exactly six digits and secrets
// that are not valid base32 never match.
func (e *Engine) VerifyCode(secret, code string, window int) bool {
	code = strings.TrimSpace(code)
	if len(code) != Digits || !isDigits(code) {
		return false
	}
	key, err := decodeSecret(secret)
	if err != nil || len(key) == 0 {
		return false
	}
	if window < 0 {
		window = 0
	}

	base := e.now().Unix() / Period
	match := 0
	for step := -window; step <= window; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		match |= subtle.ConstantTimeCompare([]byte(hotp(key, counter)), []byte(code))
	}
	return match == 1
}

// Code returns the code for secret at time t.
func Code(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, t.Unix()/Period), nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	return b32.DecodeString(strings.TrimRight(s, "="))
}

func hotp(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	return fmt.Sprintf("%0*d", Digits, bin%1_000_000)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
