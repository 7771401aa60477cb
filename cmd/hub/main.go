package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"trip-hub/assistant"
	"trip-hub/buffer"
	"trip-hub/dispatcher"
	httpserver "trip-hub/infrastructure/http"
	"trip-hub/internal"
	"trip-hub/moderation"
	"trip-hub/nlp"
	"trip-hub/polls"
	"trip-hub/repositories"
	"trip-hub/runtime"
	"trip-hub/runtime/workers"
	"trip-hub/services"
	"trip-hub/store"
)

// Exit codes give the service manager a meaningful status.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// Thin wrapper; run() owns initialization and shutdown so that defers
	// always execute before the process exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hub terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories
	messageRepository := repositories.NewMessageRepository(db, logger)
	contextRepository := repositories.NewContextRepository(db, logger)
	pollRepository := repositories.NewPollRepository(db, logger)
	moderationRepository := repositories.NewModerationRepository(db, logger)
	mediaRepository := repositories.NewMediaRepository(db, logger)
	directory := repositories.NewGroupDirectory(db, logger)

	// 4. Language components
	classifier, err := nlp.NewKeywordClassifier()
	if err != nil {
		return exitRuntime, fmt.Errorf("classifier init failed: %w", err)
	}
	extractor, err := nlp.NewLexiconExtractor(nil, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("extractor init failed: %w", err)
	}
	subtypes, err := nlp.NewSubtypeDetector()
	if err != nil {
		return exitRuntime, fmt.Errorf("subtype detector init failed: %w", err)
	}

	// 5. Signals; the dispatcher's timers live on this context
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Runtime & engines
	archive := store.NewExperienceArchive(blugeWriter)
	contexts := store.NewContextStore(contextRepository, archive, logger)
	buffers := buffer.NewExperiences()
	deferred := runtime.NewDeferred(logger)
	registry := runtime.NewRegistry()
	hub := runtime.NewHub(logger, config.BufferSize)

	gemini := assistant.NewGemini(config.GeminiAPIKey)
	weather := assistant.NewOpenWeather(config.WeatherAPIKey)

	disp := dispatcher.NewDispatcher(
		ctx,
		messageRepository, contexts, archive, buffers, hub, deferred,
		classifier, extractor, gemini, weather, subtypes,
		dispatcher.Timers{
			FlushSilence:    config.FlushSilence,
			FlushGrace:      config.FlushGrace,
			HelpDelay:       config.HelpDelay,
			HelpQuietWindow: config.HelpQuietWindow,
			GreetSilence:    config.GreetSilence,
		},
		logger,
	)

	pollEngine := polls.NewEngine(pollRepository, directory, hub, logger)
	moderationEngine := moderation.NewEngine(messageRepository, moderationRepository, directory, logger)

	chatService := services.NewChatService(
		registry, hub, disp, directory, messageRepository, mediaRepository,
		contexts, archive, gemini, logger)
	pollService := services.NewPollService(pollEngine, logger)
	moderationService := services.NewModerationService(moderationEngine, logger)

	// 7. Supervised workers: fanout delivery and badger GC
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewFanout(logger, hub.Events(), registry, config.SinkTimeout),
		workers.NewBadgerGC(db, logger, config.GCInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 8. HTTP server, plus the pprof listener on the debug port
	historyLimit := 0
	if config.LimitMessages != nil {
		historyLimit = *config.LimitMessages
	}
	server := httpserver.NewServer(chatService, pollService, moderationService,
		config.BufferSize, historyLimit, logger)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpSrv := &http.Server{Addr: address, Handler: server.Router()}

	if config.DebugPort > 0 {
		debugAddress := fmt.Sprintf("%s:%d", config.Host, config.DebugPort)
		go func() {
			logger.Info("Starting debug server", "address", debugAddress)
			if err := http.ListenAndServe(debugAddress, nil); err != nil {
				logger.Warn("Debug server stopped", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Graceful shutdown: stop accepting, let timers finish, drain workers
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown error", "error", err)
	}
	supervisor.Stop()
	<-supervisorDone
	deferred.Wait()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}
	return options
}
