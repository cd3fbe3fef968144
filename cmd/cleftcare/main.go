package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/handler"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cleftcare",
		Short:        "Nutritional follow-up API for infants with orofacial clefts",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd(), exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var lockPolicy = repository.LockPolicy{MaxFailed: 5, LockFor: 15 * time.Minute}

// app holds what every subcommand needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(a)
		},
	}
}

func runServer(a *app) error {
	cfg, log := a.cfg, a.log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	m := metrics.NewCollector("cleftcare", prometheus.DefaultRegisterer)
	if err := database.Instrument(a.db, m.DBQueryDuration); err != nil {
		return err
	}
	go database.ReportPoolStats(ctx, a.db, 15*time.Second, func(open int) {
		m.DBConnections.Set(float64(open))
	})

	visits := repository.NewVisitRepository(a.db)
	auditSvc := service.NewAuditService(repository.NewAuditRepository(a.db), m, log)
	defer auditSvc.Shutdown()

	var (
		notifier events.Notifier = events.Nop{}
		changes  func(ctx context.Context) (<-chan events.Change, error)
	)
	if cfg.Redis.Enabled {
		rdb := events.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		notifier = events.NewRedisNotifier(rdb, cfg.Redis.Channel)
		changes = func(ctx context.Context) (<-chan events.Change, error) {
			return events.Subscribe(ctx, rdb, cfg.Redis.Channel, log)
		}
	}

	// A nil Extractor disables photo extraction.
	var extractor service.Extractor
	if cfg.Extraction.Enabled {
		client := extraction.NewClient(cfg.Extraction, log)
		client.OnRotate = m.ExtractionKeySwaps.Inc
		extractor = client
	}

	jwt := auth.NewJWTManager(cfg.JWT)
	router := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		JWT:      jwt,
		Auth:     service.NewAuthService(repository.NewUserRepository(a.db, lockPolicy), jwt, auditSvc, log),
		Visits:   service.NewVisitService(visits, visits, auditSvc, notifier, m, log),
		Patients: service.NewPatientService(visits, log),
		Reports:  service.NewReportService(visits, auditSvc, m, cfg.Export.SheetName, log),
		Imports:  service.NewImportService(extractor, visits, visits, auditSvc, notifier, m, log),
		Changes:  changes,
		Ready: func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
			zap.Bool("redis", cfg.Redis.Enabled),
			zap.Bool("extraction", cfg.Extraction.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	var adminEmail, adminName, adminPassword string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas and tables, optionally seeding an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(a.db, a.log); err != nil {
				return err
			}
			if adminEmail == "" {
				return nil
			}

			m := metrics.NewCollector("cleftcare", prometheus.NewRegistry())
			auditSvc := service.NewAuditService(repository.NewAuditRepository(a.db), m, a.log)
			defer auditSvc.Shutdown()

			authSvc := service.NewAuthService(
				repository.NewUserRepository(a.db, lockPolicy),
				auth.NewJWTManager(a.cfg.JWT), auditSvc, a.log,
			)
			u, err := authSvc.CreateUser(cmd.Context(), adminEmail, adminName, adminPassword, domain.RoleAdmin)
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Email of an admin account to create")
	cmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "Full name of the admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", os.Getenv("CLEFTCARE_ADMIN_PASSWORD"), "Password of the admin account")
	return cmd
}

func exportCmd() *cobra.Command {
	var format, out, patientID string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every visit with its derived fields to a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := service.ExportFormat(format)
			if f != service.FormatCSV && f != service.FormatXLSX {
				return fmt.Errorf("%w: %q", service.ErrUnsupportedFormat, format)
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if out == "" {
				out = fmt.Sprintf("%s_%s.%s", a.cfg.Export.FileBaseName, time.Now().Format("2006-01-02"), f)
			}
			m := metrics.NewCollector("cleftcare", prometheus.NewRegistry())
			reports := service.NewReportService(repository.NewVisitRepository(a.db), nil, m, a.cfg.Export.SheetName, a.log)
			err = writeFile(out, func(w io.Writer) error {
				return reports.Export(cmd.Context(), w, f, &visit.ListVisitsQuery{PatientID: patientID}, nil)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <basename>_<date>.<format>)")
	cmd.Flags().StringVar(&patientID, "patient", "", "Only export this patient's visits")
	return cmd
}

// writeFile creates path and fills it with write. On any failure the
// partial file is removed.
func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
