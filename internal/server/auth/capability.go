// Package auth issues and verifies share capabilities: signed, time-bounded
// grants of one permission on one resource. Nothing is stored server side, so
// a capability can only be revoked by letting it expire.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Capability is the verified content of a share token.
type Capability struct {
	SubjectID  string    `json:"subjectId"`
	ResourceID string    `json:"resourceId"`
	Permission string    `json:"permission"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Claims is the JWT body of a share token. The grantor travels in "sub".
type Claims struct {
	jwt.RegisteredClaims
	ResourceID string `json:"rid"`
	Permission string `json:"perm"`
}

// Codec encodes and verifies share tokens. Only HS256 is accepted.
type Codec struct {
	signer *Signer
	now    func() time.Time
}

func NewCodec(signer *Signer) *Codec {
	return &Codec{signer: signer, now: time.Now}
}

// Issue signs a capability valid for ttlSeconds from now.
func (c *Codec) Issue(subjectID, resourceID, permission string, ttlSeconds int) (string, error) {
	if ttlSeconds < 0 {
		return "", common.Validationf("ttl must not be negative, got %d", ttlSeconds)
	}
	if !common.IsPermission(permission) {
		return "", common.Validationf("unknown permission %q", permission)
	}
	if subjectID == "" || resourceID == "" {
		return "", common.Validationf("subject and resource are required")
	}

	// Claims hold whole seconds. Rounding up keeps exp - iat equal to the
	// ttl without cutting the lifetime short; a zero ttl stays expired.
	now := c.now()
	issuedAt := now.Truncate(time.Second)
	if ttlSeconds > 0 && issuedAt.Before(now) {
		issuedAt = issuedAt.Add(time.Second)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Duration(ttlSeconds) * time.Second)),
		},
		ResourceID: resourceID,
		Permission: permission,
	})

	signed, err := token.SignedString(c.signer.key)
	if err != nil {
		return "", fmt.Errorf("sign capability: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry at now. A token is expired once
// now >= ExpiresAt.
func (c *Codec) Verify(token string, now time.Time) (Capability, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.signer.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Capability{}, common.ErrTokenExpired
		}
		return Capability{}, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return Capability{}, common.ErrTokenInvalid
	}

	if claims.Subject == "" || claims.ResourceID == "" || !common.IsPermission(claims.Permission) {
		return Capability{}, fmt.Errorf("%w: missing claims", common.ErrTokenInvalid)
	}

	capability := Capability{
		SubjectID:  claims.Subject,
		ResourceID: claims.ResourceID,
		Permission: claims.Permission,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		capability.IssuedAt = claims.IssuedAt.Time
	}
	return capability, nil
}
