package claims

import (
	"context"
	"testing"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

var t0 = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newPair(t *testing.T, cfg config.JWTConfig, issuedAt time.Time) (*Issuer, *HMACVerifier) {
	t.Helper()
	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)
	issuer.now = fixedClock(issuedAt)
	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)
	return issuer, verifier
}

func Test_NewIssuer_MissingKey(t *testing.T) {
	_, err := NewIssuer(config.JWTConfig{})
	assert.ErrorIs(t, err, inverrors.ErrSigningKeyMissing)

	_, err = NewVerifier(config.JWTConfig{})
	assert.ErrorIs(t, err, inverrors.ErrSigningKeyMissing)
}

func Test_Issue_Verify_RoundTrip(t *testing.T) {
	storeID := int64(5)
	testCases := []struct {
		name       string
		subject    Subject
		expectRole authz.Role
		expectTen  *int64
	}{
		{
			name:       "Owner with store",
			subject:    Subject{UserID: 12, Username: "owner", Role: authz.RoleOwner, StoreID: &storeID},
			expectRole: authz.RoleOwner,
			expectTen:  &storeID,
		},
		{
			name:       "SystemAdmin without store",
			subject:    Subject{UserID: 1, Username: "admin", Role: authz.RoleSystemAdmin},
			expectRole: authz.RoleSystemAdmin,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			issuer, verifier := newPair(t, config.JWTConfig{Key: testKey, Issuer: "retail-inventory", Audience: "retail-inventory-api"}, t0)
			verifier.now = fixedClock(t0.Add(time.Minute))

			// when
			cred, err := issuer.Issue(tc.subject)
			require.NoError(t, err)
			p, err := verifier.Verify(context.Background(), cred.Token)

			// then
			require.NoError(t, err)
			assert.Equal(t, t0.Add(CredentialTTL), cred.ExpiresAt)
			assert.Equal(t, tc.expectRole, p.Role())
			assert.Equal(t, tc.subject.Username, p.Name())
			tenant, ok := p.TenantID()
			if tc.expectTen == nil {
				assert.False(t, ok)
			} else {
				assert.True(t, ok)
				assert.Equal(t, *tc.expectTen, tenant)
			}
		})
	}
}

func Test_Verify_Expiry(t *testing.T) {
	storeID := int64(5)
	issuer, verifier := newPair(t, config.JWTConfig{Key: testKey}, t0)
	cred, err := issuer.Issue(Subject{UserID: 11, Username: "staff", Role: authz.RoleStaff, StoreID: &storeID})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		at        time.Time
		expectErr error
	}{
		{name: "Valid - 119 minutes after issuance", at: t0.Add(119 * time.Minute)},
		{name: "Valid - exactly at expiry", at: t0.Add(CredentialTTL)},
		{name: "Expired - one second after expiry", at: t0.Add(CredentialTTL + time.Second), expectErr: inverrors.ErrCredentialExpired},
		{name: "Expired - 121 minutes after issuance", at: t0.Add(121 * time.Minute), expectErr: inverrors.ErrCredentialExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			verifier.now = fixedClock(tc.at)
			// when
			_, err := verifier.Verify(context.Background(), cred.Token)
			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_Verify_Invalid(t *testing.T) {
	issuer, verifier := newPair(t, config.JWTConfig{Key: testKey, Issuer: "retail-inventory"}, t0)
	verifier.now = fixedClock(t0)
	cred, err := issuer.Issue(Subject{UserID: 1, Username: "admin", Role: authz.RoleSystemAdmin})
	require.NoError(t, err)

	otherIssuer, err := NewIssuer(config.JWTConfig{Key: "ffffffffffffffffffffffffffffffff", Issuer: "retail-inventory"})
	require.NoError(t, err)
	otherIssuer.now = fixedClock(t0)
	forged, err := otherIssuer.Issue(Subject{UserID: 1, Username: "admin", Role: authz.RoleSystemAdmin})
	require.NoError(t, err)

	wrongIssuer, err := NewIssuer(config.JWTConfig{Key: testKey, Issuer: "someone-else"})
	require.NoError(t, err)
	wrongIssuer.now = fixedClock(t0)
	foreign, err := wrongIssuer.Issue(Subject{UserID: 1, Username: "admin", Role: authz.RoleSystemAdmin})
	require.NoError(t, err)

	unknownRole := signRaw(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("7").Issuer("retail-inventory").Expiration(t0.Add(time.Hour)).Claim(ClaimRole, "Janitor")
	})
	badStore := signRaw(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("7").Issuer("retail-inventory").Expiration(t0.Add(time.Hour)).Claim(ClaimRole, "Owner").Claim(ClaimStoreID, "five")
	})
	noExpiry := signRaw(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("7").Issuer("retail-inventory").Claim(ClaimRole, "Owner")
	})

	testCases := []struct {
		name  string
		token string
	}{
		{name: "Garbage", token: "not-a-jwt"},
		{name: "Tampered payload", token: cred.Token + "x"},
		{name: "Signed with another key", token: forged.Token},
		{name: "Unexpected issuer", token: foreign.Token},
		{name: "Unknown role", token: unknownRole},
		{name: "Malformed store claim", token: badStore},
		{name: "Missing expiry", token: noExpiry},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tc.token)
			assert.ErrorIs(t, err, inverrors.ErrCredentialInvalid)
		})
	}
}

func signRaw(t *testing.T, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	token, err := build(jwt.NewBuilder()).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), []byte(testKey)))
	require.NoError(t, err)
	return string(signed)
}
