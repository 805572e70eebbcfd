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

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aquanex/aquachat/internal/cache"
	"github.com/aquanex/aquachat/internal/chat"
	"github.com/aquanex/aquachat/internal/config"
	"github.com/aquanex/aquachat/internal/gateway"
	"github.com/aquanex/aquachat/internal/provider"
)

var version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:   "aquachat",
		Short: "Domain-restricted streaming chat backend",
	}
	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("aquachat " + version)
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg)

	if cfg.OpenAIAPIKey == "" {
		return errors.New("AQUA_OPENAI_API_KEY is required")
	}

	respCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "cache_disabled",
			"error": err.Error(),
		}).Warn("Continuing without response cache")
		respCache = nil
	}
	defer respCache.Close()

	client := provider.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	fallback := chat.NewFallbackSource()
	streamer := chat.NewStreamer(client, fallback, chat.StreamerConfig{
		BufferSize:    cfg.TokenBufferSize,
		FlushInterval: cfg.TokenFlushInterval,
	})

	handler := gateway.NewHandler(streamer, fallback, respCache, cfg.AppName, cfg.OpenAIModel)
	router := gateway.NewRouter(cfg, handler)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"event": "listening",
			"addr":  cfg.ListenAddr,
		}).Infof("%s starting on %s", cfg.AppName, cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.WithField("event", "shutdown").Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(cfg *config.Settings) {
	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}
