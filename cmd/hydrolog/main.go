package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/PabloGalante/hydrolog/internal/adapters/chat/telegram"
	"github.com/PabloGalante/hydrolog/internal/adapters/forms"
	httpadapter "github.com/PabloGalante/hydrolog/internal/adapters/http"
	filestore "github.com/PabloGalante/hydrolog/internal/adapters/storage/file"
	firestorestore "github.com/PabloGalante/hydrolog/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/hydrolog/internal/adapters/storage/memory"
	pgstore "github.com/PabloGalante/hydrolog/internal/adapters/storage/postgres"
	"github.com/PabloGalante/hydrolog/internal/app/checkin"
	"github.com/PabloGalante/hydrolog/internal/app/schedule"
	"github.com/PabloGalante/hydrolog/internal/config"
	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.Logger()

	var (
		users   domain.UserStore
		records domain.RecordStore
	)

	switch cfg.StorageBackend {
	case "file":
		logger.Info("using file storage", "dir", cfg.DataDir)
		st, err := filestore.NewStore(
			filepath.Join(cfg.DataDir, "user_config.json"),
			filepath.Join(cfg.DataDir, "hydration_logs.json"),
		)
		if err != nil {
			log.Fatalf("error initializing file store: %v", err)
		}
		defer st.Close()
		users, records = st, st

	case "firestore":
		logger.Info("using firestore storage", "project", cfg.GCPProjectID)
		st, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing firestore store: %v", err)
		}
		defer st.Close()
		users, records = st, st

	case "postgres":
		logger.Info("using postgres storage")
		st, err := pgstore.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("error initializing postgres store: %v", err)
		}
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("error migrating postgres schema: %v", err)
		}
		defer st.Close()
		users, records = st, st

	default:
		logger.Info("using in-memory storage")
		users, records = memstore.NewUserStore(), memstore.NewRecordStore()
	}

	bot := telegram.NewBot(cfg.TelegramToken)
	formsClient := forms.NewClient(cfg.FormURL)

	svc := checkin.NewService(users, records, bot, formsClient, checkin.DefaultTimeouts())

	checkinSched := schedule.NewCheckin(users, svc)
	reportSched := schedule.NewReport(users, records, bot, cfg.ReportWeekday)

	go bot.Poll(ctx, svc)
	go checkinSched.Run(ctx)

	cronRunner := reportSched.Start()
	defer cronRunner.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpadapter.NewServer(users, records),
	}
	go func() {
		logger.Info("http server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
