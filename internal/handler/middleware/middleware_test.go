package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestLoggerAndRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(RequestID(), Logger(log), Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, zap.InfoLevel, entries[1].Level)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/visits/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/visits/"+uuid.NewString(), nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/visits/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         time.Hour,
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func newJWT() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "cleftcare-test",
	})
}

func TestRequireAuthAndRole(t *testing.T) {
	jwt := newJWT()
	r := gin.New()
	r.Use(RequireAuth(jwt))
	r.GET("/me", func(c *gin.Context) {
		claims, _ := GetClaims(c)
		c.String(http.StatusOK, string(claims.Role))
	})
	r.DELETE("/visits", RequireRole(domain.RoleAdmin, domain.RoleClinician), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tokens := func(role domain.Role) *domain.TokenPair {
		pair, err := jwt.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Email: "x@example.org", Role: role})
		require.NoError(t, err)
		return pair
	}
	clinician := tokens(domain.RoleClinician)
	dataEntry := tokens(domain.RoleDataEntry)

	t.Run("missing token", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+clinician.AccessToken)
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "clinician", w.Body.String())
	})

	t.Run("query parameter", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me?access_token="+clinician.AccessToken, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+clinician.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})

	t.Run("role allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/visits", nil)
		req.Header.Set("Authorization", "Bearer "+clinician.AccessToken)
		assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	})

	t.Run("role denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/visits", nil)
		req.Header.Set("Authorization", "Bearer "+dataEntry.AccessToken)
		assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
	})
}

func TestIPRateLimiter(t *testing.T) {
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	limiter := NewIPRateLimiter("auth", PerMinute(2), 2, m)

	r := gin.New()
	r.POST("/login", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("auth")))

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, other).Code)
}

func TestPerMinute(t *testing.T) {
	assert.Equal(t, rate.Inf, PerMinute(0))
	assert.InDelta(t, 1.0, float64(PerMinute(60)), 1e-9)
}
