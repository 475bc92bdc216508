package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/internal/config"
	"github.com/matzehuels/forcetree/internal/server"
	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/store"
)

// serveCommand creates the serve command, which hosts the HTTP API and live
// views.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		lf layoutFlags
		sf = config.Default().Server
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API and live views over HTTP",
		Long: `Serve the render API and live views over HTTP.

  POST /render          render an ecosystem body (?format=svg|html|json|dot|...)
  POST /views           start a live view; open /views/{id} in a browser
  GET  /layouts         list layouts saved with POST /views/{id}/snapshot

Rendered outputs are cached in Redis when --redis is set, otherwise in the
local cache directory. Snapshots go to MongoDB when --mongo is set, otherwise
they are kept in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := c.pipelineOptions(cmd, &lf)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), mergeServerFlags(cmd, c.config().Server, sf), defaults)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&sf.Addr, "addr", sf.Addr, "listen address")
	fl.StringVar(&sf.RedisURL, "redis", "", "Redis URL for the render cache, e.g. redis://localhost:6379/0")
	fl.StringVar(&sf.RedisPrefix, "redis-prefix", sf.RedisPrefix, "Redis key prefix")
	fl.StringVar(&sf.MongoURI, "mongo", "", "MongoDB URI for saved layouts")
	fl.StringVar(&sf.MongoDB, "mongo-db", sf.MongoDB, "MongoDB database")
	fl.IntVar(&sf.MaxViews, "max-views", sf.MaxViews, "maximum number of live views")
	fl.StringVar(&sf.ViewIdle, "view-idle", sf.ViewIdle, "dispose unwatched views after this long (empty: never)")
	lf.register(cmd)

	return cmd
}

// mergeServerFlags overrides the configured server settings with the flags
// set on cmd.
func mergeServerFlags(cmd *cobra.Command, sc, flags config.ServerConfig) config.ServerConfig {
	fl := cmd.Flags()
	for name, pair := range map[string]struct{ dst, src *string }{
		"addr":         {&sc.Addr, &flags.Addr},
		"redis":        {&sc.RedisURL, &flags.RedisURL},
		"redis-prefix": {&sc.RedisPrefix, &flags.RedisPrefix},
		"mongo":        {&sc.MongoURI, &flags.MongoURI},
		"mongo-db":     {&sc.MongoDB, &flags.MongoDB},
		"view-idle":    {&sc.ViewIdle, &flags.ViewIdle},
	} {
		if fl.Changed(name) {
			*pair.dst = *pair.src
		}
	}
	if fl.Changed("max-views") {
		sc.MaxViews = flags.MaxViews
	}
	return sc
}

func (c *CLI) runServe(ctx context.Context, sc config.ServerConfig, defaults pipeline.Options) error {
	idle, err := sc.IdleTimeout()
	if err != nil {
		return err
	}

	ch, err := c.serverCache(ctx, sc)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(ch, keyer(), c.Logger)
	defer runner.Close()

	st, err := c.serverStore(ctx, sc)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			c.Logger.Warn("close store", "err", err)
		}
	}()

	srv := server.New(server.Options{
		Runner:      runner,
		Store:       st,
		Logger:      c.Logger,
		Defaults:    defaults,
		ViewOptions: c.config().RenderOptions(),
		MaxViews:    sc.MaxViews,
		IdleTimeout: idle,
	})

	printSuccess("Serving on %s", sc.Addr)
	printNextStep("Try", fmt.Sprintf("curl -X POST --data-binary @ecosystem.json 'http://localhost%s/render?format=svg'", sc.Addr))
	return srv.ListenAndServe(ctx, sc.Addr)
}

func (c *CLI) serverCache(ctx context.Context, sc config.ServerConfig) (cache.Cache, error) {
	if sc.RedisURL == "" {
		return c.newCache(false)
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{URL: sc.RedisURL, Prefix: sc.RedisPrefix})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Logger.Info("using redis cache", "prefix", sc.RedisPrefix)
	return rc, nil
}

func (c *CLI) serverStore(ctx context.Context, sc config.ServerConfig) (store.Store, error) {
	if sc.MongoURI == "" {
		return store.NewMemory(), nil
	}
	ms, err := store.NewMongo(ctx, store.MongoOptions{URI: sc.MongoURI, Database: sc.MongoDB})
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c.Logger.Info("using mongo store", "database", sc.MongoDB)
	return ms, nil
}
