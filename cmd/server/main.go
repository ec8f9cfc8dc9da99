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

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/cache"
	"go-gin-event-admission/internal/database"
	"go-gin-event-admission/internal/handler"
	"go-gin-event-admission/internal/media"
	"go-gin-event-admission/internal/metrics"
	"go-gin-event-admission/internal/moderation"
	"go-gin-event-admission/internal/queue"
	"go-gin-event-admission/internal/repository"
	"go-gin-event-admission/internal/service"
	"go-gin-event-admission/internal/worker"
	"go-gin-event-admission/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	rootCmd := cobra.Command{
		Use: "server",
	}
	rootCmd.AddCommand(
		startCommand(),
		tokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "start the HTTP server and the outcome worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.LoadConfig())
		},
	}
}

// tokenCommand signs a bearer token for local testing.
func tokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <principal>",
		Short: "issue a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			token, err := handler.IssueToken([]byte(cfg.Auth.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func run(cfg *config.Config) error {
	logger.SetLevel(cfg.Server.LogLevel)
	gin.SetMode(cfg.Server.GinMode)
	log := logger.WithComponent("main")
	defer logger.L.Sync()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.MigrateUp(&cfg.Database); err != nil {
		return err
	}

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	defer rdb.Close()

	var store repository.EventStore
	switch cfg.Store.Backend {
	case "redis":
		store = cache.NewRedisEventStore(rdb)
	case "postgres":
		store = repository.NewPostgresEventStore(pool)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}

	var mediaStore media.MediaStore
	switch cfg.Media.Backend {
	case "minio":
		mediaStore, err = media.NewMinioStore(ctx, &cfg.Media)
	case "disk":
		mediaStore, err = media.NewDiskStore(cfg.Media.Dir)
	default:
		err = fmt.Errorf("unknown MEDIA_BACKEND %q", cfg.Media.Backend)
	}
	if err != nil {
		return fmt.Errorf("initialize media store: %w", err)
	}

	detector, err := moderation.NewRekognitionDetector(ctx, cfg.AWS, cfg.Moderation.MaxLabels, cfg.Moderation.MinConfidence)
	if err != nil {
		return fmt.Errorf("initialize label service: %w", err)
	}
	classifier, err := moderation.NewGeminiClassifier(ctx, cfg.Gemini)
	if err != nil {
		return fmt.Errorf("initialize relevance classifier: %w", err)
	}

	outcomeQueue, err := newOutcomeQueue(ctx, cfg.Outcome, rdb)
	if err != nil {
		return err
	}
	outcomeRepo := repository.NewOutcomeRepository(pool)

	eventService := service.NewEventService(store, outcomeRepo, mediaStore)
	admissionService := service.NewAdmissionService(store, cfg.Store)
	moderationService := service.NewModerationService(store, mediaStore, detector, classifier,
		outcomeQueue, cfg.Moderation, cfg.Upload)

	router := gin.New()
	// c.Done()/c.Err() 跟著 request context，客戶端斷線時取消外部呼叫
	router.ContextWithFallback = true
	router.Use(gin.Recovery(), metrics.GinMiddleware())
	router.MaxMultipartMemory = cfg.Upload.MaxFileSize
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", handler.Authenticate([]byte(cfg.Auth.JWTSecret)))
	handler.NewEventHandler(eventService).RegisterRoutes(api)
	handler.NewRegistrationHandler(admissionService).RegisterRoutes(api)
	handler.NewMediaHandler(moderationService, cfg.Upload.MaxFileSize).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.NewOutcomeWorker(outcomeRepo, outcomeQueue).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

func newOutcomeQueue(ctx context.Context, cfg config.OutcomeConfig, rdb *redis.Client) (queue.OutcomeQueue, error) {
	switch cfg.Backend {
	case "memory":
		return queue.NewMemoryOutcomeQueue(cfg.BufferSize), nil
	case "redis":
		q, err := queue.NewRedisStreamOutcomeQueue(ctx, rdb, cfg.ConsumerID, nil)
		if err != nil {
			return nil, fmt.Errorf("initialize outcome stream: %w", err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown OUTCOME_QUEUE %q", cfg.Backend)
	}
}
