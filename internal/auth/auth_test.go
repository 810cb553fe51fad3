package auth

import (
	"campusconnect/backend/internal/apperrors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateAndAuthenticate(t *testing.T) {
	m := NewTokenManager("secret", "campusconnect", time.Hour)

	token, err := m.Generate("user-1", "a@campus.edu")
	require.NoError(t, err)

	userID, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "a@campus.edu", claims.Email)
}

func TestAuthenticate_Rejects(t *testing.T) {
	m := NewTokenManager("secret", "campusconnect", time.Hour)
	other := NewTokenManager("other-secret", "campusconnect", time.Hour)
	foreign := NewTokenManager("secret", "someone-else", time.Hour)

	wrongKey, err := other.Generate("user-1", "")
	require.NoError(t, err)
	wrongIssuer, err := foreign.Generate("user-1", "")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campusconnect",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Authenticate(token)
			assert.ErrorIs(t, err, apperrors.ErrProtocolViolation)
		})
	}
}

func TestValidate_Expired(t *testing.T) {
	m := NewTokenManager("secret", "campusconnect", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.Generate("user-1", "")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	m := NewTokenManager("secret", "campusconnect", time.Hour)
	router := gin.New()
	router.GET("/me", m.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := m.Generate("user-7", "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-7")
}
