// Package handler assembles the HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/handler/middleware"
	v1 "github.com/dmehra2102/prod-golang-projects/cleftcare/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
)

type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Collector
	// MetricsHandler serves /metrics; defaults to the global registry.
	MetricsHandler http.Handler
	JWT            *auth.JWTManager

	Auth     v1.AuthService
	Visits   v1.VisitService
	Patients v1.PatientService
	Reports  v1.ReportService
	Imports  v1.ImportService
	Changes  v1.ChangeFeed

	// Ready reports whether dependencies such as the database respond.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Recovery(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Config.App.Version})
	})
	r.GET("/readyz", readiness(d.Ready))

	mh := d.MetricsHandler
	if mh == nil {
		mh = metrics.MetricsHandler()
	}
	r.GET("/metrics", gin.WrapH(mh))

	global := middleware.NewIPRateLimiter("global",
		rate.Limit(d.Config.RateLimit.RequestsPerSecond), d.Config.RateLimit.BurstSize, d.Metrics)
	login := middleware.NewIPRateLimiter("auth",
		middleware.PerMinute(d.Config.RateLimit.AuthRequestsPerMinute), d.Config.RateLimit.AuthRequestsPerMinute, d.Metrics)

	api := r.Group("/api/v1", global.Handler())

	authH := v1.NewAuthHandler(d.Auth)
	authG := api.Group("/auth")
	authG.POST("/login", login.Handler(), authH.Login)
	authG.POST("/refresh", login.Handler(), authH.Refresh)

	secured := api.Group("", middleware.RequireAuth(d.JWT))
	secured.POST("/auth/change-password", authH.ChangePassword)

	visits := v1.NewVisitHandler(d.Visits, d.Changes)
	vg := secured.Group("/visits")
	vg.GET("", visits.List)
	vg.POST("", visits.Create)
	vg.POST("/preview", visits.Preview)
	vg.GET("/changes", visits.Changes)
	vg.GET("/:id", visits.Get)
	vg.PATCH("/:id", visits.Update)
	vg.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin, domain.RoleClinician), visits.Delete)

	patients := v1.NewPatientHandler(d.Patients)
	pg := secured.Group("/patients")
	pg.GET("", patients.ListIDs)
	pg.POST("/generate-id", patients.GenerateID)
	pg.GET("/:patient_id/profile", patients.Profile)

	reports := v1.NewReportHandler(d.Reports, d.Config.Export.FileBaseName)
	rg := secured.Group("/reports")
	rg.GET("/summary", reports.Summary)
	rg.GET("/export.csv", reports.ExportCSV)
	rg.GET("/export.xlsx", reports.ExportXLSX)

	imports := v1.NewImportHandler(d.Imports, d.Config.Server.MaxUploadBytes)
	ig := secured.Group("/imports")
	ig.POST("/extract", imports.Extract)
	ig.POST("", imports.Commit)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: "route not found"})
	})

	return r
}

func readiness(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
