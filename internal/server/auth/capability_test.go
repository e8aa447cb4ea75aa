package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T, secret string, now time.Time) *Codec {
	t.Helper()
	signer, err := NewSigner([]byte(secret))
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}
	c := NewCodec(signer)
	c.now = func() time.Time { return now }
	return c
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "super-secret", issuedAt)

	tok, err := c.Issue("user-1", "file-9", common.PermissionWrite, 3600)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := c.Verify(tok, issuedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got.SubjectID != "user-1" || got.ResourceID != "file-9" || got.Permission != common.PermissionWrite {
		t.Fatalf("claims mismatch: %+v", got)
	}
	if !got.IssuedAt.Equal(issuedAt) {
		t.Fatalf("issuedAt: got %v want %v", got.IssuedAt, issuedAt)
	}
	if !got.ExpiresAt.Equal(issuedAt.Add(time.Hour)) {
		t.Fatalf("expiresAt: got %v want %v", got.ExpiresAt, issuedAt.Add(time.Hour))
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("u1", "r1", common.PermissionRead, 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := c.Verify(tok, issuedAt.Add(2*time.Second)); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_ExpiresExactlyAtDeadline(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("u1", "r1", common.PermissionRead, 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := c.Verify(tok, issuedAt.Add(999*time.Millisecond)); err != nil {
		t.Fatalf("expected valid before deadline, got %v", err)
	}
	if _, err := c.Verify(tok, issuedAt.Add(time.Second)); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at deadline, got %v", err)
	}
}

func TestIssue_SubsecondIssueTimeKeepsFullTTL(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_010, int64(700*time.Millisecond))
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("u1", "r1", common.PermissionRead, 1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := c.Verify(tok, issuedAt.Add(999*time.Millisecond))
	if err != nil {
		t.Fatalf("expected valid for the whole ttl, got %v", err)
	}
	if d := got.ExpiresAt.Sub(got.IssuedAt); d != time.Second {
		t.Fatalf("exp - iat: got %v want 1s", d)
	}
	if got.IssuedAt.Before(issuedAt) {
		t.Fatalf("issuedAt %v is before the issue time %v", got.IssuedAt, issuedAt)
	}
	if _, err := c.Verify(tok, got.ExpiresAt); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}
}

func TestIssue_SubsecondZeroTTLIsExpired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_010, int64(700*time.Millisecond))
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("u1", "r1", common.PermissionRead, 0)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := c.Verify(tok, issuedAt); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_ZeroTTLIsImmediatelyExpired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("u1", "r1", common.PermissionOwner, 0)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := c.Verify(tok, issuedAt); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_AnySingleBitFlipIsInvalid(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	tok, err := c.Issue("subject", "resource", common.PermissionRead, 60)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	raw := []byte(tok)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(raw))
			copy(mutated, raw)
			mutated[i] ^= 1 << bit

			_, err := c.Verify(string(mutated), issuedAt)
			if !errors.Is(err, common.ErrTokenInvalid) {
				t.Fatalf("byte %d bit %d: expected ErrTokenInvalid, got %v", i, bit, err)
			}
		}
	}
}

func TestVerify_RotatedKeyRejectsOldTokens(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	oldCodec := newTestCodec(t, "first-secret", issuedAt)
	newCodec := newTestCodec(t, "second-secret", issuedAt)

	tok, err := oldCodec.Issue("u", "r", common.PermissionRead, 60)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := newCodec.Verify(tok, issuedAt); !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid under rotated key, got %v", err)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		ResourceID: "r",
		Permission: common.PermissionRead,
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.signer.key)
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := c.Verify(hs512, issuedAt); !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("HS512: expected ErrTokenInvalid, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.Verify(none, issuedAt); !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("none: expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_MissingClaims(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, "secret", issuedAt)

	tests := map[string]Claims{
		"no expiry": {
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
			ResourceID:       "r",
			Permission:       common.PermissionRead,
		},
		"no resource": {
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
			Permission:       common.PermissionRead,
		},
		"bad permission": {
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
			ResourceID:       "r",
			Permission:       "admin",
		},
	}

	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signer.key)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := c.Verify(tok, issuedAt); !errors.Is(err, common.ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "k", time.Now())
	for _, tok := range []string{"", "not.a.jwt", "a.b", strings.Repeat(".", 5)} {
		if _, err := c.Verify(tok, time.Now()); !errors.Is(err, common.ErrTokenInvalid) {
			t.Fatalf("%q: expected ErrTokenInvalid, got %v", tok, err)
		}
	}
}

func TestIssue_Validation(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "k", time.Now())

	if _, err := c.Issue("u", "r", common.PermissionRead, -1); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("negative ttl: expected ErrValidation, got %v", err)
	}
	if _, err := c.Issue("u", "r", "admin", 10); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("unknown permission: expected ErrValidation, got %v", err)
	}
	if _, err := c.Issue("", "r", common.PermissionRead, 10); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("empty subject: expected ErrValidation, got %v", err)
	}
}

func TestNewSigner_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewSigner(nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
