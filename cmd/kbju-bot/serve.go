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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/kbju-bot/internal/adapters/barcode"
	httpadapter "github.com/PabloGalante/kbju-bot/internal/adapters/http"
	"github.com/PabloGalante/kbju-bot/internal/adapters/imagefile"
	"github.com/PabloGalante/kbju-bot/internal/adapters/kbju"
	"github.com/PabloGalante/kbju-bot/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/kbju-bot/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/kbju-bot/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/kbju-bot/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/kbju-bot/internal/adapters/telegram"
	"github.com/PabloGalante/kbju-bot/internal/app/dispatch"
	"github.com/PabloGalante/kbju-bot/internal/app/meallog"
	"github.com/PabloGalante/kbju-bot/internal/app/tracking"
	"github.com/PabloGalante/kbju-bot/internal/config"
	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the HTTP API",
		Long: `Runs the tracking state machine behind two transports:
- Telegram long polling (when a bot token is configured)
- the HTTP API on KBJU_PORT`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Nutrition service: mock or the real KBJU API
	var nutrition domain.NutritionClient
	if cfg.UseMockAPI {
		log.Info("using mock KBJU API")
		nutrition = kbju.NewMockClient()
	} else {
		log.Info("using KBJU API", "base_url", cfg.APIBaseURL)
		nutrition = kbju.NewClient(cfg.APIBaseURL)
	}

	// Storage: memory, sqlite or firestore
	var (
		convStore domain.ConversationStore
		mealStore domain.MealLogStore
		closer    io.Closer
	)
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return fmt.Errorf("initializing firestore store: %w", err)
		}
		// 1 store, implements 2 interfaces
		convStore, mealStore, closer = fsStore, fsStore, fsStore

	case config.StorageSQLite:
		log.Info("using sqlite storage", "path", cfg.SQLitePath)
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("initializing sqlite store: %w", err)
		}
		convStore, mealStore, closer = db.Conversations(), db.Meals(), db

	default:
		log.Info("using in-memory storage")
		convStore, mealStore = memstore.NewConversationStore(), memstore.NewMealLogStore()
	}
	if closer != nil {
		defer closer.Close()
	}

	// Decoding: local scanner pool, optionally backed by Gemini vision
	pool := barcode.NewPool(barcode.NewDecoder(), cfg.DecodeWorkers, cfg.DecodeTimeout)
	var decoder domain.BarcodeDecoder = pool
	if cfg.VisionFallback {
		vision, err := llm.NewVisionDecoder(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return fmt.Errorf("initializing vision decoder: %w", err)
		}
		vision.Timeout = cfg.DecodeTimeout
		decoder = barcode.Chain{Primary: pool, Fallback: vision}
		log.Info("vision fallback enabled", "model", cfg.ModelName)
	}

	svc := tracking.NewService(
		nutrition,
		convStore,
		decoder,
		imagefile.NewSpooler(cfg.TempDir),
		mealStore,
		tracking.Timeouts{
			Lookup:  cfg.LookupTimeout,
			Track:   cfg.TrackTimeout,
			Summary: cfg.SummaryTimeout,
		},
	)

	// jobs already queued finish even after a shutdown signal
	dispatcher := dispatch.New(context.WithoutCancel(ctx))
	defer dispatcher.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(svc, dispatcher, meallog.NewService(mealStore)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http api listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.BotToken != "" {
		bot, err := telegram.New(cfg.BotToken, svc, dispatcher)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			log.Info("telegram polling started")
			return bot.Run(gctx)
		})
	} else {
		log.Warn("no bot token configured, telegram transport disabled")
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}
