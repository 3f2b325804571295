package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/channel"
	"github.com/fyrsmithlabs/governd/internal/classify"
	"github.com/fyrsmithlabs/governd/internal/config"
	"github.com/fyrsmithlabs/governd/internal/logging"
	"github.com/fyrsmithlabs/governd/internal/meeting"
	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/persist"
	"github.com/fyrsmithlabs/governd/internal/principal"
	"github.com/fyrsmithlabs/governd/internal/server"
	"github.com/fyrsmithlabs/governd/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the governd daemon",
	Long: `Start the governd HTTP server.

Configuration is read from the YAML file (--config) and overridden by
GOVERND_-prefixed environment variables. When OPENAI_API_KEY is set, input
reformulation uses the model provider; otherwise the built-in keyword rules
apply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// runServe wires the full stack and blocks until SIGINT/SIGTERM.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting governd",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store_path", cfg.Store.Path))

	tel, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	resolver, roster, err := buildPrincipals(cfg.Principals)
	if err != nil {
		return fmt.Errorf("registering principals: %w", err)
	}

	sink, err := persist.NewChromemSink(persist.ChromemConfig{
		Path:     cfg.Store.Path,
		Compress: cfg.Store.Compress,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing memory store: %w", err)
	}

	gate, err := memorygate.NewGate(classify.NewRuleClassifier(), resolver, sink, logger)
	if err != nil {
		return fmt.Errorf("initializing memory gate: %w", err)
	}

	meetings, err := meeting.NewService(resolver, roster, gate, logger)
	if err != nil {
		return fmt.Errorf("initializing meeting service: %w", err)
	}

	reformulator, err := buildReformulator(logger)
	if err != nil {
		return fmt.Errorf("initializing reformulator: %w", err)
	}

	starter := server.NewMeetingStarter(meetings, cfg.Meeting)
	sessions, err := channel.NewRegistry(reformulator, starter, logger)
	if err != nil {
		return fmt.Errorf("initializing channel registry: %w", err)
	}

	srv, err := server.NewServer(sessions, meetings, gate, logger, cfg.Server)
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildPrincipals populates the resolver and roster from configuration.
func buildPrincipals(cfg config.PrincipalsConfig) (*principal.StaticResolver, *meeting.StaticRoster, error) {
	resolver := principal.NewStaticResolver()
	roster := meeting.NewStaticRoster()

	for _, u := range cfg.Users {
		if err := resolver.RegisterUser(u.ID, u.Name); err != nil {
			return nil, nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	for _, a := range cfg.Agents {
		if err := resolver.RegisterAgent(a.ID, a.Name); err != nil {
			return nil, nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
		ref := principal.AgentRef{ID: a.ID, Name: a.Name, Role: a.Role}
		for _, kind := range a.Meetings {
			roster.Add(meeting.Kind(kind), ref)
		}
	}
	return resolver, roster, nil
}

// buildReformulator picks the LLM-backed reformulator when a provider key is
// available, falling back to the keyword rules.
func buildReformulator(logger *zap.Logger) (channel.Reformulator, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		logger.Info("using rule-based reformulator")
		return channel.NewRuleReformulator(), nil
	}

	llm, err := openai.New()
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	logger.Info("using llm-backed reformulator")
	return channel.NewLLMReformulator(llm)
}
