package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/LeeIsaac1201/gaole/api/rest"
	apiws "github.com/LeeIsaac1201/gaole/api/ws"
	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/cache"
	"github.com/LeeIsaac1201/gaole/config"
	dbadapter "github.com/LeeIsaac1201/gaole/db"
	"github.com/LeeIsaac1201/gaole/game/arcade"
	"github.com/LeeIsaac1201/gaole/model"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/LeeIsaac1201/gaole/scheduler"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	// ---- Logger ----
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer c.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Species catalog ----
	cat := resource.LoadCatalog(cfg.Arcade.CatalogPath, logger)

	// ---- Services ----
	trainers := store.NewTrainerStore(db, logger)
	auditSvc := audit.New(db, logger)

	acfg := arcade.FromConfig(cfg.Arcade)
	acfg.Logger = logger
	acfg.Saver = trainers
	acfg.Audit = auditSvc
	hall := arcade.NewHall(trainers, cat, acfg)

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r, rankH := apirest.NewRouter(ctx, apirest.Deps{
		Config:  cfg,
		DB:      db,
		Cache:   c,
		Store:   trainers,
		Hall:    hall,
		Catalog: cat,
		Audit:   auditSvc,
		Logger:  logger,
	})

	// ---- Interactive console ----
	wsH := apiws.NewHandler(hall, c, cfg.Security, cfg.Arcade.PromptTimeout, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- Periodic jobs ----
	sched := scheduler.New(logger)
	sched.Every("ranking_refresh", cfg.Jobs.RankingRefresh, true, func(ctx context.Context) error {
		_, err := rankH.Refresh(ctx)
		return err
	})
	sched.Every("hall_sweep", cfg.Jobs.HallSweep, false, func(ctx context.Context) error {
		hall.Sweep(ctx, cfg.Arcade.IdleTimeout)
		return nil
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	hall.CloseAll(shutdownCtx)
	auditSvc.Stop(shutdownCtx)
}

// newLogger builds the development or production zap logger, teed into
// a rotating file when log.file is set.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Server.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil || cfg.Log.File == "" {
		return logger, err
	}

	level := zapcore.InfoLevel
	if cfg.Server.Debug {
		level = zapcore.DebugLevel
	}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		}),
		level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, file)
	})), nil
}
