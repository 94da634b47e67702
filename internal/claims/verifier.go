package claims

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verifier recovers a Principal from a credential.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (authz.Principal, error)
}

// HMACVerifier checks credentials signed by an Issuer sharing the same key.
type HMACVerifier struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier creates an HMACVerifier. A missing key is a startup error.
func NewVerifier(cfg config.JWTConfig) (*HMACVerifier, error) {
	if cfg.Key == "" {
		return nil, inverrors.ErrSigningKeyMissing
	}
	return &HMACVerifier{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

// Verify checks the signature, then expiry without any grace window, then the claim shape.
func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (authz.Principal, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), v.key),
		// expiry is checked below against our own clock
		jwt.WithValidate(false),
	)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("%w: %w", inverrors.ErrCredentialInvalid, err)
	}

	expiresAt, ok := token.Expiration()
	if !ok {
		return authz.Principal{}, fmt.Errorf("%w: no claim `exp`", inverrors.ErrCredentialInvalid)
	}
	if v.now().After(expiresAt) {
		return authz.Principal{}, fmt.Errorf("%w: expired at %s", inverrors.ErrCredentialExpired, expiresAt.UTC().Format(time.RFC3339))
	}
	if v.issuer != "" {
		if iss, _ := token.Issuer(); iss != v.issuer {
			return authz.Principal{}, fmt.Errorf("%w: unexpected issuer %q", inverrors.ErrCredentialInvalid, iss)
		}
	}
	if v.audience != "" {
		if aud, _ := token.Audience(); !slices.Contains(aud, v.audience) {
			return authz.Principal{}, fmt.Errorf("%w: audience mismatch", inverrors.ErrCredentialInvalid)
		}
	}

	return principalFromToken(token)
}

func principalFromToken(token jwt.Token) (authz.Principal, error) {
	subject, ok := token.Subject()
	if !ok || subject == "" {
		return authz.Principal{}, fmt.Errorf("%w: no claim `sub`", inverrors.ErrCredentialInvalid)
	}

	var roleName string
	if err := token.Get(ClaimRole, &roleName); err != nil {
		return authz.Principal{}, fmt.Errorf("%w: no claim `%s`", inverrors.ErrCredentialInvalid, ClaimRole)
	}
	role, err := authz.ParseRole(roleName)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("%w: %w", inverrors.ErrCredentialInvalid, err)
	}

	var name string
	if token.Has(ClaimUniqueName) {
		if err := token.Get(ClaimUniqueName, &name); err != nil {
			return authz.Principal{}, fmt.Errorf("%w: malformed claim `%s`", inverrors.ErrCredentialInvalid, ClaimUniqueName)
		}
	}

	var storeID *int64
	if token.Has(ClaimStoreID) {
		var raw string
		if err := token.Get(ClaimStoreID, &raw); err != nil {
			return authz.Principal{}, fmt.Errorf("%w: malformed claim `%s`", inverrors.ErrCredentialInvalid, ClaimStoreID)
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return authz.Principal{}, fmt.Errorf("%w: malformed claim `%s`: %w", inverrors.ErrCredentialInvalid, ClaimStoreID, err)
		}
		storeID = &id
	}

	return authz.NewPrincipal(subject, name, role, storeID), nil
}
