// Package claims issues and verifies the bearer credentials that carry a
// principal's role and store into every request.
package claims

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// CredentialTTL is the fixed validity window of an issued credential.
const CredentialTTL = 2 * time.Hour

// Private claim names of the credential.
const (
	ClaimUniqueName = "unique_name"
	ClaimRole       = "role"
	ClaimStoreID    = "StoreId"
)

// Subject is an identity whose password has already been verified.
type Subject struct {
	UserID   int64
	Username string
	Role     authz.Role
	StoreID  *int64
}

// Credential is a signed, time-boxed bearer token.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer signs credentials with a symmetric key.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewIssuer creates an Issuer. A missing key is a startup error.
func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	if cfg.Key == "" {
		return nil, inverrors.ErrSigningKeyMissing
	}
	return &Issuer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

// Issue builds and signs a credential for s, valid for CredentialTTL.
func (i *Issuer) Issue(s Subject) (Credential, error) {
	if !s.Role.Valid() {
		return Credential{}, fmt.Errorf("cannot issue credential for role %s", s.Role)
	}
	issuedAt := i.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(CredentialTTL)

	builder := jwt.NewBuilder().
		Subject(strconv.FormatInt(s.UserID, 10)).
		IssuedAt(issuedAt).
		Expiration(expiresAt).
		Claim(ClaimUniqueName, s.Username).
		Claim(ClaimRole, s.Role.String())
	if s.StoreID != nil {
		builder = builder.Claim(ClaimStoreID, strconv.FormatInt(*s.StoreID, 10))
	}
	if i.issuer != "" {
		builder = builder.Issuer(i.issuer)
	}
	if i.audience != "" {
		builder = builder.Audience([]string{i.audience})
	}

	token, err := builder.Build()
	if err != nil {
		return Credential{}, fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Credential{Token: string(signed), ExpiresAt: expiresAt}, nil
}
