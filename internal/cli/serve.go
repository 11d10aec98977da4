package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nodemedic/nodemedic/pkg/api"
	"github.com/nodemedic/nodemedic/pkg/cache"
	"github.com/nodemedic/nodemedic/pkg/config"
	"github.com/nodemedic/nodemedic/pkg/deps"
	"github.com/nodemedic/nodemedic/pkg/deps/metadata"
	"github.com/nodemedic/nodemedic/pkg/integrations/github"
	"github.com/nodemedic/nodemedic/pkg/integrations/osv"
	"github.com/nodemedic/nodemedic/pkg/observability"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noEnrich bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the nodemedic backend",
		Long: `Run the HTTP backend the explorer talks to.

Dependency graphs are resolved from the npm registry and annotated with OSV
advisories and GitHub repository statistics (set GITHUB_TOKEN for higher
rate limits). Responses are cached in the configured backend: files, Redis
(NODEMEDIC_REDIS_ADDR) or MongoDB (NODEMEDIC_MONGO_URI). Typosquat lookups
search the local name index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if noEnrich {
				cfg.Resolve.Enrich = false
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.EnvServerAddr+")")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip OSV and GitHub lookups")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observability.NewPrometheus(reg).Install()
	defer observability.Reset()

	store, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	srv, closeIndex := c.newServer(ctx, cfg, store, reg)
	defer closeIndex()

	logger.Info("starting backend", "addr", cfg.Server.Addr, "cache", cfg.Cache.Backend, "enrich", cfg.Resolve.Enrich)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newServer assembles the API from cfg. The returned func closes the
// typosquat index.
func (c *CLI) newServer(ctx context.Context, cfg config.Config, store cache.Cache, reg *prometheus.Registry) (*api.Server, func()) {
	logger := loggerFromContext(ctx)
	ttl := cfg.Cache.TTL

	var enrichers []deps.Enricher
	if cfg.Resolve.Enrich {
		enrichers = append(enrichers, metadata.NewComposite(
			metadata.NewOSV(osv.NewClient(store, ttl)),
			metadata.NewGitHub(github.NewClient(store, cfg.GitHub.Token, ttl)),
		))
	}

	resolve := deps.Options{
		MaxNodes:  cfg.Resolve.MaxNodes,
		CacheTTL:  ttl,
		Enrichers: enrichers,
	}
	opts := api.Options{
		Resolver:     deps.NewNPMFromCache(store, resolve),
		Cache:        store,
		Keyer:        cfg.Keyer(),
		GraphTTL:     ttl,
		Resolve:      resolve,
		DefaultDepth: cfg.Resolve.Depth,
		MaxDepth:     cfg.Server.MaxDepth,
		Gatherer:     reg,
		Logger:       logger,
	}

	closeIndex := func() {}
	idx, err := c.openLocalIndex(ctx)
	switch {
	case err != nil:
		logger.Warn("typosquat lookups disabled", "err", err)
	default:
		closeIndex = func() { idx.Close() }
		if n, err := idx.Count(ctx); err == nil && n == 0 {
			logger.Warn("typosquat index is empty; run \"nodemedic index build\"", "path", idx.Path())
		}
		opts.Finder = typosquat.NewDetector(idx, cfg.Typosquat.Limit)
	}

	return api.New(opts), closeIndex
}
