package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret-key", 24*time.Hour, 8*time.Hour, 12*time.Hour)
}

func TestGenerateAndValidatePartnerToken(t *testing.T) {
	mgr := newTestJWTManager()
	partnerID := uuid.New()

	token, err := mgr.GenerateToken(RealmPartner, partnerID, "shop@test.com", "", "active")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateTokenForRealm(token, RealmPartner)
	require.NoError(t, err)
	assert.Equal(t, partnerID.String(), claims.Subject)
	assert.Equal(t, RealmPartner, claims.Realm)
	assert.Equal(t, "active", claims.Status)
}

func TestGenerateAndValidateCustomerToken(t *testing.T) {
	mgr := newTestJWTManager()
	customerID := uuid.New()

	token, err := mgr.GenerateToken(RealmCustomer, customerID, "cust@test.com", "", "")
	require.NoError(t, err)

	claims, err := mgr.ValidateTokenForRealm(token, RealmCustomer)
	require.NoError(t, err)
	assert.Equal(t, RealmCustomer, claims.Realm)
	assert.Equal(t, "cust@test.com", claims.Email)
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	mgr := newTestJWTManager()
	adminID := uuid.New()

	token, err := mgr.GenerateToken(RealmAdmin, adminID, "admin@test.com", RoleSuperAdmin, "")
	require.NoError(t, err)

	claims, err := mgr.ValidateTokenForRealm(token, RealmAdmin)
	require.NoError(t, err)
	assert.Equal(t, RealmAdmin, claims.Realm)
	assert.Equal(t, RoleSuperAdmin, claims.Role)
}

func TestRealmMismatchRejected(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmCustomer, uuid.New(), "", "", "")
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, RealmAdmin)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected realm admin")
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1", 24*time.Hour, 8*time.Hour, 12*time.Hour)
	mgr2 := NewJWTManager("secret-2", 24*time.Hour, 8*time.Hour, 12*time.Hour)

	token, err := mgr1.GenerateToken(RealmCustomer, uuid.New(), "", "", "")
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewJWTManager("secret", 1*time.Millisecond, 1*time.Millisecond, 1*time.Millisecond)

	token, err := mgr.GenerateToken(RealmCustomer, uuid.New(), "", "", "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthenticatePartner_SuspendedForbidden(t *testing.T) {
	mgr := newTestJWTManager()
	token, err := mgr.GenerateToken(RealmPartner, uuid.New(), "", "", "suspended")
	require.NoError(t, err)

	handler := AuthenticatePartner(mgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticatePartner_SubjectInContext(t *testing.T) {
	mgr := newTestJWTManager()
	partnerID := uuid.New()
	token, err := mgr.GenerateToken(RealmPartner, partnerID, "", "", "active")
	require.NoError(t, err)

	var gotSubject string
	handler := AuthenticatePartner(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, partnerID.String(), gotSubject)
}

func TestAuthenticateCustomer_MissingHeaderUnauthorized(t *testing.T) {
	mgr := newTestJWTManager()
	handler := AuthenticateCustomer(mgr)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
