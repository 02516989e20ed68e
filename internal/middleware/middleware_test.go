package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/models"
)

const cookieName = "parlor_session"

func init() {
	gin.SetMode(gin.TestMode)
}

type users map[string]uuid.UUID

func (u users) GetUser(name string) (*models.User, bool) {
	id, ok := u[name]
	if !ok {
		return nil, false
	}
	return &models.User{ID: id, Name: name}, true
}

func (u users) GetUserID(name string) (uuid.UUID, bool) {
	id, ok := u[name]
	return id, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func whoAmI(jwtService *auth.JWTService, known users) *gin.Engine {
	r := gin.New()
	r.Use(SessionMiddleware(jwtService, cookieName, known))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c))
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestSessionMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService("secret", 1)
	justinID := uuid.New()
	known := users{"Justin": justinID}
	r := whoAmI(jwtService, known)

	token, err := jwtService.GenerateToken(justinID, "Justin")
	require.NoError(t, err)
	stale, err := jwtService.GenerateToken(uuid.New(), "Ghost")
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{name: "anonymous", setup: func(*http.Request) {}, want: ""},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, want: "Justin"},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: token}) }, want: "Justin"},
		{name: "garbage token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, want: ""},
		{name: "unknown user", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+stale) }, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	req := require.New(t)
	r := whoAmI(auth.NewJWTService("secret", 1), users{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	req.Equal(http.StatusSeeOther, w.Code)
	req.Equal("/login", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	jsonReq := httptest.NewRequest(http.MethodGet, "/private", nil)
	jsonReq.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, jsonReq)
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	req := require.New(t)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://app.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	allowed := httptest.NewRequest(http.MethodGet, "/x", nil)
	allowed.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, allowed)
	req.Equal("http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/x", nil)
	other.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	req.Empty(w.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, preflight)
	req.Equal(http.StatusNoContent, w.Code)
}

type fakeShared struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeShared) AllowAction(context.Context, string, string, int, int) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func TestRateLimiter_Local(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, nil, discardLogger())
	ctx := context.Background()

	req.True(rl.Allow(ctx, "Justin", "post"))
	req.True(rl.Allow(ctx, "Justin", "post"))
	req.False(rl.Allow(ctx, "Justin", "post"), "burst is twice the rate")
	req.True(rl.Allow(ctx, "Vasu", "post"), "limits are per user")
}

func TestRateLimiter_Shared(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	denied := &fakeShared{allowed: false}
	req.False(NewRateLimiter(5, denied, discardLogger()).Allow(ctx, "Justin", "post"))
	req.Equal(1, denied.calls)

	broken := &fakeShared{err: errors.New("connection refused")}
	req.True(NewRateLimiter(5, broken, discardLogger()).Allow(ctx, "Justin", "post"))
}

func TestRateLimiter_Prune(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, nil, discardLogger())
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow(context.Background(), "Justin", "post")

	now = now.Add(limiterIdleTTL + time.Second)
	rl.prune()
	req.Empty(rl.limiters)
}

func TestRateLimitMiddleware(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, nil, discardLogger())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if name := c.GetHeader("X-Test-User"); name != "" {
			c.Set(ContextUsername, name)
		}
	})
	r.POST("/x", RateLimitMiddleware(rl, "post"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		hr := httptest.NewRequest(http.MethodPost, "/x", nil)
		hr.Header.Set("X-Test-User", "Justin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, hr)
		codes = append(codes, w.Code)
	}
	req.Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	req.Equal(http.StatusOK, w.Code, "anonymous requests are not limited")
}
