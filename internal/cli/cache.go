package cli

import (
	"github.com/spf13/cobra"

	"github.com/nodemedic/nodemedic/pkg/cache"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

// cacheDir is the file cache root in effect.
func (c *CLI) cacheDir() string {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir
	}
	return cache.DefaultDir()
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached registry and graph responses",
		Long: `Delete all entries of the local file cache.

Redis and MongoDB caches expire on their own and are not touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch c.cfg.Cache.Backend {
			case "", cache.BackendFile:
			case cache.BackendNone:
				printInfo(out, "Caching is disabled")
				return nil
			default:
				return errs.New(errs.ErrCodeUnsupported, "cache clear only supports the file backend, configured: %s", c.cfg.Cache.Backend)
			}

			fc, err := cache.NewFileCache(c.cacheDir())
			if err != nil {
				return err
			}
			if err := fc.Clear(); err != nil {
				return err
			}
			printSuccess(out, "Cache cleared")
			printDetail(out, "Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(c.cacheDir())
			return nil
		},
	}
}
