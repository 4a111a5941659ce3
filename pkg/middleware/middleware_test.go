package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendlog/expense-api/db"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()

	d, err := db.New("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Create(&model.User{ID: "user1", Email: "a@x.com", PasswordHash: "x"}).Error)

	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.GET("/private", NewJWTMiddleware(d, secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})
	r.POST("/small", BodySizeLimiter(8), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return r
}

func withToken(t *testing.T, userID string, ttl time.Duration) *http.Request {
	t.Helper()

	tok, err := security.MakeAuthToken(secret, userID, ttl)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: tok})
	return req
}

func TestRequestID(t *testing.T) {
	r := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/small", nil))

	assert.Len(t, w.Header().Get("X-Request-ID"), 10)
}

func TestJWTMiddleware(t *testing.T) {
	r := newEngine(t)

	t.Run("valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withToken(t, "user1", time.Hour))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user1", w.Body.String())
	})

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "requestID")
	})

	t.Run("expired", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withToken(t, "user1", -time.Minute))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withToken(t, "ghost", time.Hour))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "User not found")
	})
}

func TestBodySizeLimiter(t *testing.T) {
	r := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/small", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/small", strings.NewReader("way too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
