package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-quizgen/internal/api/http"
	"github.com/mind-engage/mindengage-quizgen/internal/attempt"
	auth "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/config"
	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/document"
	"github.com/mind-engage/mindengage-quizgen/internal/extract"
	"github.com/mind-engage/mindengage-quizgen/internal/generation"
	"github.com/mind-engage/mindengage-quizgen/internal/grading"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/ocr"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/points"
	"github.com/mind-engage/mindengage-quizgen/internal/quiz"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
	syncx "github.com/mind-engage/mindengage-quizgen/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", "driver", cfg.DBDriver, "err", err)
	}
	defer dbh.Close()

	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatal("blob store", "path", cfg.BlobBasePath, "err", err)
	}

	metrics.Init()
	events := syncx.NewEventRepo(dbh, cfg.SiteID)

	// --- pipeline ---
	extractor := extract.New(extract.Config{
		PDFToTextCmd:    cfg.PDFToTextCmd,
		MinPDFTextChars: cfg.PDFMinTextChars,
		Timeout:         cfg.OCRTimeout,
		OCR: ocr.Config{
			TesseractCmd: cfg.TesseractCmd,
			Langs:        cfg.OCRLangs,
			Timeout:      cfg.OCRTimeout,
			PDFToPPMCmd:  cfg.PDFToPPMCmd,
		},
	}, log)
	docs := document.NewService(document.NewSQLStore(dbh), blobs, extractor,
		document.WithEvents(events),
		document.WithLogger(log),
		document.WithWorkers(cfg.DocWorkers),
	)
	genClient := generation.NewClient(generation.Config{
		BaseURL:        cfg.GenBaseURL,
		Model:          cfg.GenModel,
		Timeout:        cfg.GenTimeout,
		OutputFormat:   generation.ParseOutputFormat(cfg.GenOutputFormat),
		MaxPromptChars: cfg.GenMaxPromptChars,
	}, generation.WithLogger(log))
	quizzes := quiz.NewSQLStore(dbh)
	gen := pipeline.New(pipeline.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MaxChunks:    cfg.GenMaxChunks,
	}, docs, genClient, quizzes, pipeline.WithEvents(events), pipeline.WithLogger(log))

	// --- attempts ---
	awarder := points.NewSQLAwarder(dbh)
	attemptStore := attempt.NewSQLStore(dbh)
	engine := attempt.NewEngine(attemptStore, quizzes, grading.NewDefaultGrader(), awarder,
		attempt.WithEvents(events),
		attempt.WithLogger(log),
	)
	if cfg.AttemptStaleAfter > 0 {
		go sweepStaleAttempts(ctx, attemptStore, cfg.AttemptStaleAfter, log)
	}

	// --- auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	users := auth.NewUserStore(dbh)
	if cfg.Mode == config.ModeOffline && cfg.EnableLocalAuth {
		if err := users.SeedDevUsers(ctx, log); err != nil {
			log.Warn("seed users", "err", err)
		}
	}

	router := api.NewRouter(api.Deps{
		DB:            dbh,
		Log:           log,
		Auth:          authSvc,
		Users:         users,
		Blobs:         blobs,
		Documents:     docs,
		Generator:     gen,
		Quizzes:       quizzes,
		Attempts:      engine,
		Progress:      awarder,
		Events:        events,
		CORSOrigins:   cfg.CORSOrigins,
		LocalAuth:     cfg.EnableLocalAuth,
		ClaimFallback: cfg.Mode == config.ModeOffline,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "model", cfg.GenModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", "err", err)
	}
	log.Info("stopped")
}

func sweepStaleAttempts(ctx context.Context, store *attempt.SQLStore, maxAge time.Duration, log *logger.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := store.MarkStaleAbandoned(ctx, time.Now().Add(-maxAge))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("stale attempt sweep failed", "err", err)
		case n > 0:
			log.Info("abandoned stale attempts", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
