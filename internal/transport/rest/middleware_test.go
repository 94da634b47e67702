package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abgdnv/retailinventory/internal/authz"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockVerifier is a mock implementation of the claims.Verifier interface for testing purposes.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, tokenString string) (authz.Principal, error) {
	args := m.Called(ctx, tokenString)
	var p authz.Principal
	if args.Get(0) != nil {
		p = args.Get(0).(authz.Principal)
	}
	return p, args.Error(1)
}

func Test_AuthMiddleware(t *testing.T) {
	storeID := int64(5)
	owner := authz.NewPrincipal("12", "owner", authz.RoleOwner, &storeID)

	testCases := []struct {
		name               string
		authHeader         string
		setupMock          func(m *MockVerifier)
		expectedStatusCode int
		shouldCallNext     bool
	}{
		{
			name:       "Success - valid bearer token",
			authHeader: "Bearer valid-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "valid-token").Return(owner, nil)
			},
			expectedStatusCode: http.StatusOK,
			shouldCallNext:     true,
		},
		{
			name:               "Failure - no auth header",
			setupMock:          func(m *MockVerifier) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "Failure - not a bearer token",
			authHeader:         "Basic some-credentials",
			setupMock:          func(m *MockVerifier) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "Failure - expired token",
			authHeader: "Bearer stale-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "stale-token").Return(nil, fmt.Errorf("%w: expired", inverrors.ErrCredentialExpired))
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "Failure - verifier returns error",
			authHeader: "Bearer invalid-token",
			setupMock: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, "invalid-token").Return(nil, inverrors.ErrCredentialInvalid)
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockVerifier := new(MockVerifier)
			tc.setupMock(mockVerifier)
			authMiddleware := AuthMiddleware(mockVerifier, slog.New(slog.NewJSONHandler(io.Discard, nil)))

			nextHandlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextHandlerCalled = true
				p, ok := PrincipalFrom(r.Context())
				assert.True(t, ok, "principal should be in context")
				assert.Equal(t, owner, p)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			// when
			authMiddleware(nextHandler).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedStatusCode, rr.Code, "HTTP status code is wrong")
			assert.Equal(t, tc.shouldCallNext, nextHandlerCalled, "Next handler call status is wrong")
			mockVerifier.AssertExpectations(t)
		})
	}
}
