package jwtx_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source shared by issue and verify.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, id string) (bool, error) { return r[id], nil }

type brokenRevocations struct{}

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("boom")
}

func newTestCodec(t *testing.T, opts ...jwtx.CodecOption) (*jwtx.Codec, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	opts = append([]jwtx.CodecOption{jwtx.WithClock(clock.Now)}, opts...)
	return jwtx.NewCodec(newHS256Signer(t), exampleIssuer, opts...), clock
}

func TestCodec_RoundTripWithinTTL(t *testing.T) {
	codec, clock := newTestCodec(t)

	token, issued, err := codec.Issue("admin1", "admin", 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, clock.Now(), issued.IssuedAt.Time)

	clock.Advance(14 * time.Minute)

	claims, err := codec.Verify(t.Context(), token)
	require.NoError(t, err)
	require.Equal(t, "admin1", claims.Subject)
	require.Equal(t, "admin", claims.Role)
}

func TestCodec_IssueValidation(t *testing.T) {
	codec, _ := newTestCodec(t)

	_, _, err := codec.Issue("", "user", time.Minute)
	require.Error(t, err)

	_, _, err = codec.Issue("user1", "", time.Minute)
	require.Error(t, err)

	_, _, err = codec.Issue("user1", "user", 0)
	require.Error(t, err)
}

func TestCodec_ExpiredEvaluatedAtVerifyTime(t *testing.T) {
	codec, clock := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(t.Context(), token)
	require.NoError(t, err, "fresh token verifies")

	clock.Advance(time.Minute + time.Second)

	_, err = codec.Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestCodec_Malformed(t *testing.T) {
	codec, _ := newTestCodec(t)

	for _, token := range []string{
		"",
		"abc",
		"a.b",
		"a.b.c.d",
		"..",
		"header.payload.!!!",
	} {
		_, err := codec.Verify(t.Context(), token)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "token %q", token)
	}
}

func TestCodec_SingleBitPayloadMutationIsBadSignature(t *testing.T) {
	codec, _ := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	for i := range payload {
		for bit := range 8 {
			mutated := make([]byte, len(payload))
			copy(mutated, payload)
			mutated[i] ^= 1 << bit

			forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString(mutated) + "." + parts[2]
			_, err := codec.Verify(t.Context(), forged)
			require.ErrorIs(t, err, jwtx.ErrBadSignature, "byte %d bit %d", i, bit)
		}
	}
}

func TestCodec_SignatureCharacterSubstitutionRejected(t *testing.T) {
	codec, _ := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := parts[2]
	for i := range len(sig) {
		for _, c := range []byte(base64URLAlphabet) {
			if c == sig[i] {
				continue
			}
			mutated := []byte(sig)
			mutated[i] = c
			forged := parts[0] + "." + parts[1] + "." + string(mutated)

			_, err := codec.Verify(t.Context(), forged)
			require.Error(t, err, "position %d char %q accepted", i, c)
			require.True(t,
				errors.Is(err, jwtx.ErrBadSignature) || errors.Is(err, jwtx.ErrMalformed),
				"position %d char %q: %v", i, c, err)
		}
	}
}

func TestCodec_NonCanonicalSignatureTailIsMalformed(t *testing.T) {
	codec, _ := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Hour)
	require.NoError(t, err)

	// A 32 byte HMAC encodes to 43 characters; the last one carries two
	// unused low bits. Setting them keeps the decoded bytes the same under
	// lenient decoding.
	parts := strings.Split(token, ".")
	last := parts[2][len(parts[2])-1]
	pos := strings.IndexByte(base64URLAlphabet, last)
	require.Zero(t, pos&0b11, "issued signature is canonical")

	for low := 1; low < 4; low++ {
		tail := base64URLAlphabet[pos|low]
		forged := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-1] + string(tail)
		_, err := codec.Verify(t.Context(), forged)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "tail %q", tail)
	}
}

func TestCodec_BadSignatureDominatesExpiry(t *testing.T) {
	codec, clock := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	// Swap the middle of the signature for different bytes.
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[5] == 'A' {
		sig[5] = 'B'
	} else {
		sig[5] = 'A'
	}
	forged := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(t.Context(), forged)
	require.ErrorIs(t, err, jwtx.ErrBadSignature)

	clock.Advance(time.Hour)
	_, err = codec.Verify(t.Context(), forged)
	require.ErrorIs(t, err, jwtx.ErrBadSignature, "tampered and expired still reports the forgery")

	_, err = codec.Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrExpired, "untampered and expired reports expiry")
}

func TestCodec_AlgNoneRejected(t *testing.T) {
	codec, _ := newTestCodec(t)

	token, _, err := codec.Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	parts := strings.Split(token, ".")

	_, err = codec.Verify(t.Context(), header+"."+parts[1]+".")
	require.ErrorIs(t, err, jwtx.ErrMalformed, "empty signature segment is structurally invalid")

	_, err = codec.Verify(t.Context(), header+"."+parts[1]+"."+parts[2])
	require.ErrorIs(t, err, jwtx.ErrBadSignature)
}

func TestCodec_Revoked(t *testing.T) {
	revoked := revokedSet{}
	codec, clock := newTestCodec(t, jwtx.WithRevocations(revoked))

	token, claims, err := codec.Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	revoked[claims.ID] = true

	_, err = codec.Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrRevoked)

	clock.Advance(time.Hour)
	_, err = codec.Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrRevoked, "revoked outranks expired")
}

func TestCodec_RevocationLookupError(t *testing.T) {
	codec, _ := newTestCodec(t, jwtx.WithRevocations(brokenRevocations{}))

	token, _, err := codec.Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(t.Context(), token)
	require.Error(t, err)
	require.NotErrorIs(t, err, jwtx.ErrRevoked)
	require.NotErrorIs(t, err, jwtx.ErrExpired)
}

func TestCodec_IssuerMismatch(t *testing.T) {
	signer := newHS256Signer(t)

	token, _, err := jwtx.NewCodec(signer, "someone-else").Issue("user1", "user", time.Minute)
	require.NoError(t, err)

	_, err = jwtx.NewCodec(signer, exampleIssuer).Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestCodec_SignedButIncompleteClaims(t *testing.T) {
	signer := newHS256Signer(t)
	codec := jwtx.NewCodec(signer, "")

	claims := jwtx.NewAccessClaims("user1", "user", "", time.Minute, time.Now())
	claims.Role = ""

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(t.Context(), token)
	require.ErrorIs(t, err, jwtx.ErrMissingClaim)
}
