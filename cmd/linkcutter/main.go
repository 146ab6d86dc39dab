package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/cache"
	"github.com/morgath/linkcutter/internal/config"
	"github.com/morgath/linkcutter/internal/database"
	"github.com/morgath/linkcutter/internal/handlers"
	"github.com/morgath/linkcutter/internal/repositories"
	"github.com/morgath/linkcutter/internal/router"
	"github.com/morgath/linkcutter/internal/service"
	"github.com/morgath/linkcutter/internal/shortcode"
	"github.com/morgath/linkcutter/internal/tasks"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Инициализация конфигурации
	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
		logger.Fatal("Ошибка применения миграций", zap.Error(err))
	}

	db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("Ошибка подключения к БД", zap.Error(err))
	}
	defer db.Close()

	repo := repositories.NewLinkRepository(db)

	// Кэш опционален: без Redis резолвер ходит напрямую в БД
	var linkCache service.Cache
	rdb, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Кэш недоступен, работаем без него", zap.Error(err))
	} else if rdb != nil {
		defer rdb.Close()
		linkCache = cache.NewLinkCache(rdb, cfg.CacheTimeout)
		logger.Info("Кэш подключен", zap.String("addr", cfg.RedisAddr))
	}

	// Раннер переживает запросы: отложенные инкременты и заполнение
	// кэша выполняются после уже отправленного ответа
	runner := tasks.NewRunner(cfg.TaskWorkers, cfg.TaskQueueSize, logger)

	svc := service.NewShortenerService(repo, linkCache, shortcode.NewGenerator(), runner, logger, cfg.StoreTimeout)
	handler := handlers.NewHandler(svc, logger)

	r := router.NewRouter(handler, logger)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: r,
	}

	go func() {
		logger.Info("Сервер запущен", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка при запуске сервера", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}

	// Дорабатываем очередь отложенных задач перед выходом;
	// при аварийном завершении процесса эти клики теряются — это
	// осознанный компромисс, а не дефект
	runner.Stop()
	logger.Info("Фоновые задачи завершены, выходим")
}
