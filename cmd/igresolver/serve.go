package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igresolver/internal/downloader"
	"igresolver/internal/server"
	"igresolver/pkg/fetcher"
	"igresolver/pkg/instagram"
	"igresolver/pkg/logger"
	"igresolver/pkg/materialize"
	"igresolver/pkg/ratelimit"
	"igresolver/pkg/resolver"
	"igresolver/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolver HTTP service",
	Long: `Start the HTTP service exposing /health, /post_info and /download_post.

Session credentials are loaded once at startup from the configured session
file, the encrypted store, the system keyring or the environment, in that
order. A failed load degrades the service to anonymous access; it never
prevents startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()

	sess := session.Load(&cfg.Instagram, session.DefaultStores(&cfg.Instagram, log), log)

	client := instagram.NewClient(cfg.Instagram.BaseURL, cfg.Instagram.RequestTimeout, cfg.Instagram.UserAgent, log)
	if creds := sess.Credentials(); creds != nil {
		client.UseSession(creds.SessionID, creds.CSRFToken, creds.UserAgent)
	}
	sess.SetChecker(client)

	// One limiter paces every upstream call, metadata and media alike.
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)

	pool := downloader.NewWorkerPool(cfg.Download.ConcurrentDownloads, client, limiter, log)
	res := resolver.New(
		fetcher.New(client, limiter, &cfg.RateLimit, log),
		materialize.New(pool, cfg.Download.TempDir, log),
		log,
	)

	srv := server.New(&cfg.Server, res, sess, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-quit:
		log.InfoWithFields("shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			return err
		}
	}

	return nil
}
