package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nodemedic/nodemedic/pkg/client"
	"github.com/nodemedic/nodemedic/pkg/deps"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/explorer"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

type exploreOpts struct {
	depth   int
	file    string
	offline bool
	logFile string
}

func (c *CLI) exploreCommand() *cobra.Command {
	var opts exploreOpts

	cmd := &cobra.Command{
		Use:   "explore [package]",
		Short: "Explore a dependency graph in the terminal",
		Long: `Open the interactive explorer on an npm package or a graph file.

Move with the arrow keys and press enter to inspect a package: its
maintainers, known vulnerabilities, direct dependencies and dependents,
repository statistics and possible typosquats. Esc clears the selection.

Graph files may be nodemedic graph JSON (bare or wrapped in "data" records)
or the output of "npm ls --json --all". Use --file - to read from stdin.`,
		Example: `  nodemedic explore express
  nodemedic explore react --depth 3
  nodemedic explore --file graph.json
  npm ls --json --all | nodemedic explore --file -
  nodemedic explore --file tree.json --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.depth == 0 {
				opts.depth = c.cfg.Resolve.Depth
			}
			if len(args) == 0 && opts.file == "" && stdinIsPipe() {
				opts.file = "-"
			}
			return c.runExplore(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "dependency depth below the package (default from config)")
	cmd.Flags().StringVar(&opts.file, "file", "", "graph file to load instead of a package (- for stdin)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "load --file locally and use the local typosquat index")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file while the explorer runs")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, cmd *cobra.Command, args []string, opts exploreOpts) error {
	logger, closeLog, err := c.exploreLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cl, err := c.newClient()
	if err != nil {
		return err
	}
	src, err := exploreSource(cmd.InOrStdin(), cl, args, opts)
	if err != nil {
		return err
	}

	var finder typosquat.Finder = cl
	if opts.offline {
		finder = nil
		if idx, err := c.openLocalIndex(ctx); err == nil {
			defer idx.Close()
			finder = typosquat.NewDetector(idx, c.cfg.Typosquat.Limit)
		} else {
			logger.Warn("typosquat index unavailable", "err", err)
		}
	}

	engine := &termEngine{}
	session := explorer.New(ctx, engine, explorer.Options{
		Logger:   logger,
		Finder:   finder,
		Dispatch: engine.dispatch,
	})
	defer session.Close()

	p := tea.NewProgram(newExploreModel(ctx, session, engine, src),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return ctx.Err()
}

// exploreSource picks where the first graph comes from.
func exploreSource(stdin io.Reader, cl *client.Client, args []string, opts exploreOpts) (explorer.Source, error) {
	switch {
	case len(args) == 1 && opts.file != "":
		return nil, errs.New(errs.ErrCodeInvalidInput, "give either a package or --file, not both")
	case len(args) == 1:
		if opts.offline {
			return nil, errs.New(errs.ErrCodeInvalidInput, "--offline needs --file")
		}
		if err := errs.ValidateNpmPackageName(args[0]); err != nil {
			return nil, err
		}
		return explorer.FromPackage(cl, args[0], opts.depth), nil
	case opts.file == "":
		return nil, errs.New(errs.ErrCodeInvalidInput, "give a package name or --file")
	}

	if opts.offline {
		data, err := readInput(stdin, opts.file)
		if err != nil {
			return nil, err
		}
		return localSource(data)
	}
	if opts.file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read stdin")
		}
		return explorer.FromPaste(cl, string(data)), nil
	}
	return explorer.FromFile(cl, opts.file), nil
}

// localSource loads a payload without the backend, converting npm ls
// output the way the upload endpoint does.
func localSource(data []byte) (explorer.Source, error) {
	if !deps.IsTree(data) {
		return explorer.FromBytes(data), nil
	}
	g, err := deps.FromTree(data)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(g)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode tree")
	}
	return explorer.FromBytes(payload), nil
}

// readInput reads path, or stdin for "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}

// exploreLogger returns the logger used while the explorer owns the
// terminal: a file logger with --log-file, otherwise a discarding one.
func (c *CLI) exploreLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.NewWithOptions(io.Discard, log.Options{}), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open log file %s", path)
	}
	return newLogger(f, c.Logger.GetLevel()), func() { f.Close() }, nil
}
