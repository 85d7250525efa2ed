package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(AdminSubjectKey)})
	})
	return r
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	token, err := GenerateAdminToken("ops", testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateAdminToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	t.Run("wrong secret fails", func(t *testing.T) {
		_, err := ValidateAdminToken(token, "another-secret")
		assert.Error(t, err)
	})

	t.Run("expired token fails", func(t *testing.T) {
		expired, err := GenerateAdminToken("ops", testSecret, -time.Minute)
		require.NoError(t, err)
		_, err = ValidateAdminToken(expired, testSecret)
		assert.Error(t, err)
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	r := newProtectedRouter()

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		token, err := GenerateAdminToken("ops", testSecret, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ops")
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
