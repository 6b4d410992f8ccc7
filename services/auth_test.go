package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexflow/backend/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       "user-1",
		Email:    "analyst@example.com",
		FullName: "Test Analyst",
		Role:     "analyst",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")

	token, err := auth.generateAccessToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)
	assert.Equal(t, "analyst", claims.Role)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")

	token, err := auth.generateAccessToken(testUser())
	require.NoError(t, err)

	other := NewAuthService(nil, "different-secret")
	_, err = other.VerifyAccessToken(t.Context(), token)
	require.Error(t, err)
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")
	auth.accessExpiry = -time.Minute

	token, err := auth.generateAccessToken(testUser())
	require.NoError(t, err)

	_, err = auth.VerifyAccessToken(t.Context(), token)
	require.Error(t, err)
}

func TestHashToken(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")

	hash := auth.hashToken("raw-token")
	assert.Equal(t, hash, auth.hashToken("raw-token"))
	assert.NotEqual(t, hash, auth.hashToken("other-token"))
	assert.NotEqual(t, "raw-token", hash)
	assert.Len(t, hash, 64)
}

func TestMiddlewareRejectsWithoutCookies(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")

	called := false
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/agents", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestMiddlewareRejectsExpiredAccessToken(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")
	auth.accessExpiry = -time.Minute

	token, err := auth.generateAccessToken(testUser())
	require.NoError(t, err)

	called := false
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/api/v1/agents", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestSetAndClearAuthCookies(t *testing.T) {
	auth := NewAuthService(nil, "test-secret")

	rec := httptest.NewRecorder()
	auth.SetAuthCookies(rec, "access", "refresh", "permanent")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 3)
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	require.Contains(t, byName, "access_token")
	require.Contains(t, byName, "refresh_token")
	require.Contains(t, byName, "permanent_token")
	for _, c := range byName {
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Positive(t, c.MaxAge)
	}

	rec = httptest.NewRecorder()
	auth.ClearAuthCookies(rec)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
}
