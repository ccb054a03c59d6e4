package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algojudge/internal/common/cache"
	"algojudge/internal/common/db"
	commonmw "algojudge/internal/common/http/middleware"
	"algojudge/internal/common/mq"
	"algojudge/internal/common/storage"
	"algojudge/internal/submission/controller"
	"algojudge/internal/submission/executor"
	"algojudge/internal/submission/notify"
	"algojudge/internal/submission/repository"
	"algojudge/internal/submission/service"
	"algojudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	var archive service.ResultArchiver
	if appCfg.MinIO.Enabled() {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
		archive = repository.NewResultArchive(objStorage, appCfg.Judge.ResultBucket)
	} else {
		logger.Warn(context.Background(), "minio not configured, per-case detail is kept in the database only")
	}

	engine, err := executor.NewCXEClient(appCfg.Engine)
	if err != nil {
		logger.Error(context.Background(), "init execution engine client failed", zap.Error(err))
		return
	}

	questionRepo := repository.NewQuestionRepositoryWithTTL(mysqlDB, redisCache, appCfg.Judge.QuestionTTL, appCfg.Judge.QuestionEmptyTTL)
	submissionRepo := repository.NewSubmissionRepository(mysqlDB)
	statusPublisher := repository.NewMQStatusEventPublisher(mqClient, appCfg.Queue.StatusTopic)
	statusRepo := repository.NewStatusRepository(redisCache, submissionRepo, appCfg.Judge.StatusTTL, appCfg.Judge.StatusEmptyTTL, statusPublisher)
	oracle := executor.NewOracleRunner(questionRepo, engine)
	hub := notify.NewHub()

	processor, err := service.NewProcessor(service.ProcessorConfig{
		Submissions:      submissionRepo,
		Questions:        questionRepo,
		Statuses:         statusRepo,
		Adapter:          engine,
		Oracle:           oracle,
		Notifier:         hub,
		Archive:          archive,
		WorkerID:         appCfg.Judge.WorkerID,
		ExecutionTimeout: appCfg.Judge.ExecutionTimeout,
		StatusTimeout:    appCfg.Judge.StatusTimeout,
	})
	if err != nil {
		logger.Error(context.Background(), "init processor failed", zap.Error(err))
		return
	}
	submitService, err := service.NewSubmitService(service.SubmitConfig{
		Submissions:   submissionRepo,
		Statuses:      statusRepo,
		Producer:      mqClient,
		Topic:         appCfg.Queue.SubmissionTopic,
		Archive:       archive,
		MaxCodeBytes:  appCfg.Judge.MaxCodeBytes,
		StatusTimeout: appCfg.Judge.StatusTimeout,
	})
	if err != nil {
		logger.Error(context.Background(), "init submit service failed", zap.Error(err))
		return
	}
	guard, err := service.NewRunGuard(appCfg.Run)
	if err != nil {
		logger.Error(context.Background(), "init run guard failed", zap.Error(err))
		return
	}
	runService, err := service.NewRunService(service.RunConfig{
		Questions:        questionRepo,
		Adapter:          engine,
		Oracle:           oracle,
		Guard:            guard,
		ExecutionTimeout: appCfg.Judge.ExecutionTimeout,
	})
	if err != nil {
		logger.Error(context.Background(), "init run service failed", zap.Error(err))
		return
	}

	opts := appCfg.Queue.subscribeOptions()
	if err := mqClient.SubscribeWithOptions(context.Background(), appCfg.Queue.SubmissionTopic, processor.HandleMessage, &opts); err != nil {
		logger.Error(context.Background(), "subscribe submission topic failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go runJanitor(shutdownCtx, guard, appCfg.Judge.JanitorInterval)

	httpServer := buildHTTPServer(appCfg.Server,
		controller.NewSubmissionController(submitService, hub),
		controller.NewRunController(runService),
	)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	hub.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
}

// runJanitor drops expired RUN rate windows until ctx is done.
func runJanitor(ctx context.Context, guard *service.RunGuard, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := guard.CleanupExpired(); removed > 0 {
				logger.Debug(ctx, "expired run windows removed", zap.Int("removed", removed), zap.Int("tracked", guard.Tracked()))
			}
		}
	}
}

func buildHTTPServer(cfg ServerConfig, submissions *controller.SubmissionController, runs *controller.RunController) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())
	controller.Register(router, submissions, runs)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
