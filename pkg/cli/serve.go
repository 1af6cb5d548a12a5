package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/cli/config"
	httpctrl "github.com/talaria-bot/talaria/pkg/controller/http"
	"github.com/talaria-bot/talaria/pkg/service/responder"
	"github.com/talaria-bot/talaria/pkg/service/search"
	"github.com/talaria-bot/talaria/pkg/service/worker"
	"github.com/talaria-bot/talaria/pkg/usecase"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var poolSize int
	var queueSize int
	var rateLimitCount int
	var rateLimitWindow time.Duration
	var searchTopK int
	var searchThreshold float64
	var healthInterval time.Duration
	var dispatchAttempts int
	var dispatchBackoff time.Duration
	var storeCfg config.Store
	var llmCfg config.LLM
	var gatewayCfg config.Gateway
	var profileCfg config.Profile

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TALARIA_ADDR"),
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "pool-size",
			Usage:       "Number of worker lanes processing inbound events",
			Value:       worker.DefaultPoolSize,
			Sources:     cli.EnvVars("TALARIA_POOL_SIZE"),
			Destination: &poolSize,
		},
		&cli.IntFlag{
			Name:        "pool-queue-size",
			Usage:       "Queue capacity of each worker lane",
			Value:       worker.DefaultQueueSize,
			Sources:     cli.EnvVars("TALARIA_POOL_QUEUE_SIZE"),
			Destination: &queueSize,
		},
		&cli.IntFlag{
			Name:        "rate-limit",
			Usage:       "Messages accepted per sender per window (0 disables the limit)",
			Value:       usecase.DefaultRateLimitCount,
			Sources:     cli.EnvVars("TALARIA_RATE_LIMIT"),
			Destination: &rateLimitCount,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-window",
			Usage:       "Window of the per-sender rate limit",
			Value:       usecase.DefaultRateLimitWindow,
			Sources:     cli.EnvVars("TALARIA_RATE_LIMIT_WINDOW"),
			Destination: &rateLimitWindow,
		},
		&cli.IntFlag{
			Name:        "search-topk",
			Usage:       "Passages retrieved per inbound message",
			Value:       search.DefaultTopK,
			Sources:     cli.EnvVars("TALARIA_SEARCH_TOPK"),
			Destination: &searchTopK,
		},
		&cli.FloatFlag{
			Name:        "search-threshold",
			Usage:       "Minimum similarity score of a usable passage",
			Value:       search.DefaultThreshold,
			Sources:     cli.EnvVars("TALARIA_SEARCH_THRESHOLD"),
			Destination: &searchThreshold,
		},
		&cli.DurationFlag{
			Name:        "health-interval",
			Usage:       "Interval of store and gateway health probes",
			Value:       worker.DefaultHealthInterval,
			Sources:     cli.EnvVars("TALARIA_HEALTH_INTERVAL"),
			Destination: &healthInterval,
		},
		&cli.IntFlag{
			Name:        "dispatch-attempts",
			Usage:       "Send attempts per reply before the event fails",
			Value:       usecase.DefaultDispatchAttempts,
			Sources:     cli.EnvVars("TALARIA_DISPATCH_ATTEMPTS"),
			Destination: &dispatchAttempts,
		},
		&cli.DurationFlag{
			Name:        "dispatch-backoff",
			Usage:       "Initial backoff before a dispatch retry",
			Value:       usecase.DefaultDispatchBackoff,
			Sources:     cli.EnvVars("TALARIA_DISPATCH_BACKOFF"),
			Destination: &dispatchBackoff,
		},
	}

	// Add shared config flags
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, gatewayCfg.Flags()...)
	flags = append(flags, profileCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize the document store
			repo, err := storeCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize store")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close store", "error", err.Error())
				}
			}()

			// Load the bot profile (nil keeps the default persona)
			profile, err := profileCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load bot profile")
			}
			if profile != nil {
				logging.Default().Info("Bot profile loaded",
					"path", profileCfg.Path(),
					"name", profile.Name,
					"menu_buttons", len(profile.Menu))
			}

			// The LLM client powers both embeddings and reply generation
			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}
			if llmClient == nil {
				return goerr.New("LLM configuration is required: set --gemini-project or --openai-api-key")
			}
			logging.Default().Info("LLM client ready", "llm", llmCfg)

			responderSvc, err := responder.New(llmClient, profile,
				responder.WithDimension(storeCfg.Dimension()))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize responder")
			}

			searchSvc, err := search.New(repo.Document())
			if err != nil {
				return goerr.Wrap(err, "failed to initialize search engine")
			}

			// Messaging gateway
			gateway, err := gatewayCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize WhatsApp gateway")
			}
			if gateway == nil {
				return goerr.New("WhatsApp credentials are required: set --whatsapp-access-token and --whatsapp-phone-number-id")
			}
			if gatewayCfg.VerifyToken() == "" {
				logging.Default().Warn("Verify token not configured, webhook handshake will be refused")
			}
			if gatewayCfg.AppSecret() == "" {
				logging.Default().Warn("App secret not configured, webhook signature verification disabled")
			}
			logging.Default().Info("WhatsApp gateway ready", "gateway", gatewayCfg)

			// Conversation-keyed worker pool
			pool := worker.NewPool(poolSize, queueSize)
			if err := pool.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start worker pool")
			}

			// Health worker probes the store and the gateway and gates dispatch
			healthWorker := worker.NewHealthWorker(repo, gateway, healthInterval)
			if err := healthWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start health worker")
			}

			uc := usecase.New(repo,
				usecase.WithSearch(searchSvc),
				usecase.WithResponder(responderSvc),
				usecase.WithGateway(gateway),
				usecase.WithPool(pool),
				usecase.WithHealthGate(healthWorker),
				usecase.WithProfile(profile),
				usecase.WithVerifyToken(gatewayCfg.VerifyToken()),
				usecase.WithRateLimit(rateLimitCount, rateLimitWindow),
				usecase.WithSearchDefaults(searchTopK, searchThreshold),
				usecase.WithDispatchRetry(dispatchAttempts, dispatchBackoff),
			)

			httpOpts := []httpctrl.Options{
				httpctrl.WithHealthSource(healthWorker),
			}
			if gatewayCfg.AppSecret() != "" {
				httpOpts = append(httpOpts, httpctrl.WithAppSecret(gatewayCfg.AppSecret()))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"pool_size", poolSize,
					"rate_limit", rateLimitCount)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop intake first so no new events are queued, then drain
				// the lanes before closing the backends
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					logging.Default().Error("failed to shutdown server gracefully", "error", err.Error())
				}

				pool.Stop()
				healthWorker.Stop()

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
