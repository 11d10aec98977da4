package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/layout"
)

// Export formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var exportFormats = []string{formatJSON, formatYAML, formatDOT, formatSVG}

type fetchOpts struct {
	depth    int
	format   string
	output   string
	detailed bool
}

func (c *CLI) fetchCommand() *cobra.Command {
	var opts fetchOpts

	cmd := &cobra.Command{
		Use:   "fetch <package>",
		Short: "Resolve a package through the backend and export its graph",
		Long: `Resolve an npm package's dependency graph through the nodemedic backend
and write it as JSON, YAML, Graphviz DOT or SVG.`,
		Example: `  nodemedic fetch express
  nodemedic fetch @types/node --depth 3 --format yaml
  nodemedic fetch react --format svg -o react.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.depth == 0 {
				opts.depth = c.cfg.Resolve.Depth
			}
			return c.runFetch(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "dependency depth below the package (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: "+strings.Join(exportFormats, ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include versions and risk counts in dot/svg labels")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(exportFormats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, cmd *cobra.Command, name string, opts fetchOpts) error {
	if !slices.Contains(exportFormats, opts.format) {
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want %s)", opts.format, strings.Join(exportFormats, ", "))
	}
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return err
	}
	cl, err := c.newClient()
	if err != nil {
		return err
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	spin := newSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Resolving %s@depth%d...", name, opts.depth))
	spin.Start()
	data, err := cl.FetchDependencies(ctx, name, opts.depth)
	spin.Stop()
	if err != nil {
		return err
	}
	g, err := graph.Normalize(data)
	if err != nil {
		return err
	}
	prog.done("Resolved", "package", name, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if opts.output == "" {
		return writeGraph(ctx, cmd.OutOrStdout(), g, opts.format, opts.detailed)
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "create %s", opts.output)
	}
	if err := writeGraph(ctx, f, g, opts.format, opts.detailed); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	printSuccess(out, "Exported %s", name)
	printStats(out, g)
	printFile(out, opts.output)
	return nil
}

// writeGraph encodes g in format.
func writeGraph(ctx context.Context, w io.Writer, g *graph.Graph, format string, detailed bool) error {
	switch format {
	case formatJSON:
		return graph.WriteJSON(g, w)
	case formatYAML:
		return graph.WriteYAML(g, w)
	case formatDOT:
		_, err := io.WriteString(w, layout.ToDOT(g, layout.DOTOptions{Detailed: detailed}))
		return err
	case formatSVG:
		svg, err := layout.RenderSVG(ctx, layout.ToDOT(g, layout.DOTOptions{Detailed: detailed}))
		if err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "render svg")
		}
		_, err = w.Write(svg)
		return err
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q", format)
	}
}
