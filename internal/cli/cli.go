// Package cli implements the nodemedic command-line interface.
//
// # Commands
//
//   - explore: interactive terminal explorer for a package or graph file
//   - fetch: resolve a package through the backend and export the graph
//   - typosquat: list likely typosquats of a package name
//   - serve: run the backend API
//   - index: manage the local typosquat name index
//   - cache: manage the response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// carried through context.Context; see loggerFromContext.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nodemedic/nodemedic/pkg/buildinfo"
	"github.com/nodemedic/nodemedic/pkg/client"
	"github.com/nodemedic/nodemedic/pkg/config"
	"github.com/nodemedic/nodemedic/pkg/httputil"
)

const appName = "nodemedic"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	apiURL     string
	indexPath  string
	cfg        config.Config

	// loadConfig is replaced in tests.
	loadConfig func(path string) (config.Config, error)
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		cfg:        config.Default(),
		loadConfig: config.Load,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the settings in effect for the running command.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "nodemedic inspects npm dependency graphs",
		Long:         `nodemedic resolves npm dependency graphs and lets you explore them: maintainers, known vulnerabilities, repository health and likely typosquats for every package.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(cmd); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&c.apiURL, "api-url", "", "backend base URL (overrides config and "+config.EnvAPIURL+")")

	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.typosquatCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.indexCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and applies global flags over it.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.URL = c.apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "api", cfg.API.URL, "cache", cfg.Cache.Backend)
	return nil
}

// newClient returns a backend client for the configured API URL.
func (c *CLI) newClient() (*client.Client, error) {
	return client.New(c.cfg.API.URL,
		client.WithHTTPClient(httputil.NewClient(c.cfg.API.Timeout)),
		client.WithLogger(c.Logger),
	)
}

// stdinIsPipe reports whether stdin is redirected rather than a terminal.
func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}
