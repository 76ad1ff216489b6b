package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/cache"
	"github.com/matzehuels/formulascope/pkg/config"
	"github.com/matzehuels/formulascope/pkg/observability"
	"github.com/matzehuels/formulascope/pkg/server"
	"github.com/matzehuels/formulascope/pkg/solution"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Serves the stored solutions, their dependency trees, expression graphs and
partial derivatives, plus POST /api/analyze for formula maps sent in the
request. Store, cache and telemetry come from the config file; the
MONGODB_URI, REDIS_ADDR, FORMULASCOPE_ADDR and OTEL_EXPORTER_OTLP_ENDPOINT
environment variables override it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg, noStore)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "serve only /api/analyze, without a solution store")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config, noStore bool) (err error) {
	logger := c.Logger

	if cfg.Telemetry.Enabled {
		var shutdown func(context.Context) error
		shutdown, err = observability.Install(ctx, observability.ExportOptions{
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("install telemetry: %w", err)
		}
		defer flushTelemetry(shutdown, &err)
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	ch, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api")
	runner := analysis.NewRunner(ch, keyer, logger)
	defer runner.Close()

	var st solution.Store
	if !noStore {
		if st, err = newStore(ctx, cfg.Store); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}
	logger.Info("starting server",
		"store", storeLabel(cfg.Store, noStore),
		"cache", cfg.Cache.Backend,
		"max_depth", cfg.Engine.MaxDepth,
		"method", cfg.Engine.Method)

	srv := server.New(server.Config{
		Store:    st,
		Runner:   runner,
		Cache:    ch,
		Keyer:    keyer,
		MaxDepth: analysis.Depth(cfg.Engine.MaxDepth),
		Method:   cfg.Engine.Method,
		Logger:   logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr,
		cfg.Server.ReadTimeout.Duration,
		cfg.Server.WriteTimeout.Duration,
		cfg.Server.ShutdownTimeout.Duration)
}

// telemetryFlushTimeout bounds the final export after the server stops.
const telemetryFlushTimeout = 5 * time.Second

// flushTelemetry runs shutdown on a fresh context and joins its error into
// *errp, so a failed flush surfaces even when serving succeeded.
func flushTelemetry(shutdown func(context.Context) error, errp *error) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	*errp = errors.Join(*errp, shutdown(ctx))
}

func storeLabel(s config.Store, disabled bool) string {
	if disabled {
		return "none"
	}
	return s.Backend
}
