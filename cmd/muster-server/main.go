package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/config"
	"github.com/BrandonDHaskell/muster/internal/db"
	"github.com/BrandonDHaskell/muster/internal/health"
	"github.com/BrandonDHaskell/muster/internal/httpapi"
	"github.com/BrandonDHaskell/muster/internal/logging"
	"github.com/BrandonDHaskell/muster/internal/muster/audit"
	"github.com/BrandonDHaskell/muster/internal/muster/directory"
	"github.com/BrandonDHaskell/muster/internal/muster/evacuation"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/notify"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/service"
	"github.com/BrandonDHaskell/muster/internal/muster/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "muster-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "muster-server",
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env}, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Env == "dev" {
		err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{
			LedgerSheet:     cfg.Sheets.Ledger,
			LedgerHeader:    ledger.DefaultHeader,
			PersonnelSheet:  cfg.Sheets.Personnel,
			PersonnelHeader: directory.Header,
		})
		if err != nil {
			return fmt.Errorf("seed dev: %w", err)
		}
	}

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	// Stores
	wb := sqlite.NewWorkbook(sqlDB, writer)

	// Domain
	book := ledger.New(wb, cfg.Sheets.Ledger, loc)
	people := directory.New(wb, cfg.Sheets.Personnel)
	reconciler := occupancy.NewReconciler(book, logger, nil)
	auditWriter := audit.NewWriter(audit.Dependencies{
		Workbook: wb,
		Sheets: audit.Sheets{
			Real:      cfg.Sheets.Real,
			Simulated: cfg.Sheets.Simulated,
			Errors:    cfg.Sheets.Errors,
		},
		Location: loc,
		Logger:   logger,
	})

	deps := evacuation.Dependencies{
		Ledger:     book,
		Reconciler: reconciler,
		Directory:  people,
		Audit:      auditWriter,
		Logger:     logger,
	}
	if cfg.NotifyOnEvacuation {
		recipients := notify.Recipients(cfg.Recipients...)
		deps.Notifier = notify.NewDispatcher(notify.LogNotifier{Logger: logger}, recipients, loc, logger)
	}
	processor := evacuation.NewProcessor(deps)

	// Services
	occupancySvc := service.NewOccupancyService(reconciler, book)
	accessSvc := service.NewAccessService(book, people, logger, nil)
	statusSvc := service.NewStatusService(book, map[string]string{
		"ledger":    cfg.Sheets.Ledger,
		"personnel": cfg.Sheets.Personnel,
		"real":      cfg.Sheets.Real,
		"simulated": cfg.Sheets.Simulated,
		"errors":    cfg.Sheets.Errors,
	}, nil)

	pruner := service.NewErrorLogPruner(auditWriter, service.PrunerConfig{
		RetentionDays: cfg.ErrorRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// gRPC health
	healthSrv := health.NewServer(health.Config{Addr: cfg.GRPCAddr}, func(ctx context.Context) (bool, string) {
		st := statusSvc.Check(ctx)
		return st.OK, st.Message
	}, logger)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		AllowedOrigins:   cfg.AllowedOrigins,
		OccupancyService: occupancySvc,
		AccessService:    accessSvc,
		StatusService:    statusSvc,
		Evacuations:      processor,
		Audit:            auditWriter,
	})

	go func() {
		if err := healthSrv.Start(ctx); err != nil {
			logger.Error("grpc health server error", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	healthSrv.Stop()
	return nil
}
