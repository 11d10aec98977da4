package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

func (c *CLI) indexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the local typosquat name index",
		Long: `Manage the SQLite index of npm package names that typosquat detection
searches. "nodemedic serve" and "nodemedic typosquat --local" read it.`,
	}
	cmd.PersistentFlags().StringVar(&c.indexPath, "index", "", "index database (default from config)")
	cmd.AddCommand(c.indexBuildCommand())
	cmd.AddCommand(c.indexInfoCommand())
	return cmd
}

func (c *CLI) indexBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build <names-file>",
		Short: "Add package names to the index",
		Long: `Add package names to the index, one per line. Blank lines and lines
starting with '#' are skipped; names already present are ignored. Use - to
read names from stdin.`,
		Example: `  nodemedic index build names.txt
  curl -s https://example.com/all-names.txt | nodemedic index build -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))

			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			names, err := typosquat.ReadNames(bytes.NewReader(data))
			if err != nil {
				return errs.Wrap(errs.ErrCodeInvalidInput, err, "read names")
			}

			idx, err := c.openLocalIndex(ctx)
			if err != nil {
				return err
			}
			defer idx.Close()

			added, err := idx.Add(ctx, names)
			if err != nil {
				return errs.Wrap(errs.ErrCodeInternal, err, "add names")
			}
			total, err := idx.Count(ctx)
			if err != nil {
				return errs.Wrap(errs.ErrCodeInternal, err, "count names")
			}
			prog.done("Indexed names", "read", len(names), "added", added)

			out := cmd.OutOrStdout()
			printSuccess(out, "Added %s", plural(added, "name"))
			printDetail(out, "%s indexed in total", plural(total, "name"))
			printFile(out, idx.Path())
			return nil
		},
	}
}

func (c *CLI) indexInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the index location and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := c.localIndexPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				printWarning(out, "No index at %s", path)
				printNextStep(out, "Build one with", "nodemedic index build <names-file>")
				return nil
			}

			idx, err := c.openLocalIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer idx.Close()
			n, err := idx.Count(cmd.Context())
			if err != nil {
				return errs.Wrap(errs.ErrCodeInternal, err, "count names")
			}
			printKeyValue(out, "Path", idx.Path())
			printKeyValue(out, "Names", StyleNumber.Render(plural(n, "name")))
			return nil
		},
	}
}

func (c *CLI) localIndexPath() string {
	if c.indexPath != "" {
		return c.indexPath
	}
	return c.cfg.Typosquat.Index
}

// openLocalIndex opens the index, creating its directory when needed.
func (c *CLI) openLocalIndex(ctx context.Context) (*typosquat.SQLiteIndex, error) {
	path := c.localIndexPath()
	if path == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no typosquat index configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "create index directory")
	}
	idx, err := typosquat.OpenSQLiteIndex(ctx, path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "open typosquat index")
	}
	return idx, nil
}
