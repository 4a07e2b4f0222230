package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/config"
	"github.com/sil-vella/recall-sub014/internal/database"
	"github.com/sil-vella/recall-sub014/internal/history"
	"github.com/sil-vella/recall-sub014/internal/server"
	"github.com/sil-vella/recall-sub014/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file, continuing with environment")
	}

	cfg, err := config.Load(os.Getenv("RECALL_CONFIG"))
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.PostgresDSN != "" {
		db, err = database.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to postgres")
		}
		defer db.Close()
	}

	var hist *history.Publisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		hist = history.NewPublisher(rdb)
	}

	srv := server.New(cfg, store.New(), db, hist)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logrus.WithField("addr", cfg.ListenAddr).Info("recall server listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Fatal("server exited")
	}
	logrus.Info("server stopped")
}
