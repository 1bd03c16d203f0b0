package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
	"github.com/tieubaoca/research-assistant/utils"
)

const testSecret = "test-secret"

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logging.Nop()))
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, SessionFrom(c).Username)
	})
	return r
}

func token(t *testing.T, issued time.Time) string {
	t.Helper()
	tok, err := utils.GenerateSessionToken(types.NewSession("alice", issued, time.Hour), testSecret)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware_Bearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, time.Now()))
	w := httptest.NewRecorder()
	newProtectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, time.Now())})
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	newProtectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := map[string]func(r *http.Request){
		"no credentials": func(*http.Request) {},
		"bad token": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		},
		"expired": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token(t, time.Now().Add(-2*time.Hour)))
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			setup(req)
			w := httptest.NewRecorder()
			newProtectedRouter().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
