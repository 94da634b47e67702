package service

import (
	"context"
	"testing"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/claims"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/store"
	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func Test_AuthService_Login(t *testing.T) {
	// given
	ctx := context.Background()
	mem := store.NewInMemoryStore()
	st, err := mem.Stores().Create(ctx, store.StoreParams{Name: "Main Store"})
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = mem.Users().Create(ctx, store.User{Username: "owner", PasswordHash: string(hash), Role: "Owner", StoreID: &st.ID})
	require.NoError(t, err)

	cfg := config.JWTConfig{Key: "0123456789abcdef0123456789abcdef", Issuer: "retail-inventory"}
	issuer, err := claims.NewIssuer(cfg)
	require.NoError(t, err)
	verifier, err := claims.NewVerifier(cfg)
	require.NoError(t, err)
	svc := NewAuthService(mem.Users(), issuer, discardLogger())

	testCases := []struct {
		name      string
		dto       LoginDto
		expectErr error
	}{
		{name: "Valid credentials", dto: LoginDto{Username: "owner", Password: "s3cret-pass"}},
		{name: "Wrong password", dto: LoginDto{Username: "owner", Password: "guess"}, expectErr: inverrors.ErrInvalidCredentials},
		{name: "Unknown user", dto: LoginDto{Username: "nobody", Password: "s3cret-pass"}, expectErr: inverrors.ErrInvalidCredentials},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			res, err := svc.Login(ctx, tc.dto)
			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Owner", res.Role)
			assert.WithinDuration(t, time.Now().Add(claims.CredentialTTL), res.ExpiresAt, 5*time.Second)

			p, err := verifier.Verify(ctx, res.Token)
			require.NoError(t, err)
			assert.Equal(t, authz.RoleOwner, p.Role())
			tenant, ok := p.TenantID()
			assert.True(t, ok)
			assert.Equal(t, st.ID, tenant)
		})
	}
}

func Test_AuthService_UnknownUserPaysForPasswordComparison(t *testing.T) {
	// given
	ctx := context.Background()
	mem := store.NewInMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = mem.Users().Create(ctx, store.User{Username: "admin", PasswordHash: string(hash), Role: "SystemAdmin"})
	require.NoError(t, err)
	issuer, err := claims.NewIssuer(config.JWTConfig{Key: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	svc := NewAuthService(mem.Users(), issuer, discardLogger())

	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	testCases := []struct {
		name     string
		username string
		wantHash []byte
	}{
		{name: "Known user, wrong password", username: "admin", wantHash: hash},
		{name: "Unknown user", username: "nobody", wantHash: dummyHash()},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			compared = nil

			// when
			_, err := svc.Login(ctx, LoginDto{Username: tc.username, Password: "guess"})

			// then
			assert.ErrorIs(t, err, inverrors.ErrInvalidCredentials)
			require.Len(t, compared, 1)
			assert.Equal(t, tc.wantHash, compared[0])
		})
	}

	cost, err := bcrypt.Cost(dummyHash())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
