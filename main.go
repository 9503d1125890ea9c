package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/loginbridge/loginbridge/internal/config"
	"github.com/loginbridge/loginbridge/internal/logging"
	"github.com/loginbridge/loginbridge/internal/server"
	"github.com/loginbridge/loginbridge/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := logging.LoadLevel(); err != nil {
		logrus.WithError(err).Warn("failed to load log level")
	}

	conf, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	client := store.NewRedisClient(store.RedisOptions{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}

	st := store.NewRedisStore(client, conf.SessionTTL())
	srv, err := server.New(conf, st)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build server")
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logrus.WithField("signal", sig.String()).Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
