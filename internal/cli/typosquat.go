package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

func (c *CLI) typosquatCommand() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "typosquat <package>",
		Short: "List package names that look like typosquats of a package",
		Long: `List registry names one or two edits away from a package name, scored by
similarity. Scoped names from @types, @nestjs, @nx, @vitejs and @angular are
never reported, nor are names containing '-' or '/'.

By default the backend answers; --local searches the local name index built
with "nodemedic index build".`,
		Example: `  nodemedic typosquat react
  nodemedic typosquat lodash --local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if err := errs.ValidateNpmPackageName(name); err != nil {
				return err
			}

			finder, closeFinder, err := c.typosquatFinder(ctx, local)
			if err != nil {
				return err
			}
			defer closeFinder()

			suggestions, err := finder.Find(ctx, name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				printSuccess(out, "No likely typosquats of %s", StyleHighlight.Render(name))
				return nil
			}
			printWarning(out, "%s that look like %s", plural(len(suggestions), "package"), name)
			fmt.Fprintln(out, suggestionTable(suggestions))
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "search the local name index instead of the backend")
	return cmd
}

// typosquatFinder returns the backend client or a detector over the local
// index, and a func releasing it.
func (c *CLI) typosquatFinder(ctx context.Context, local bool) (typosquat.Finder, func(), error) {
	if !local {
		cl, err := c.newClient()
		if err != nil {
			return nil, nil, err
		}
		return cl, func() {}, nil
	}
	idx, err := c.openLocalIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	return typosquat.NewDetector(idx, c.cfg.Typosquat.Limit), func() { idx.Close() }, nil
}

func suggestionTable(suggestions []typosquat.Suggestion) string {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		score := "—"
		if s.Score != nil {
			score = fmt.Sprintf("%.2f", *s.Score)
		}
		rows = append(rows, []string{s.Name, score})
	}

	header := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Package", "Score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return header
			case col == 0:
				return StyleWarning
			default:
				return StyleNumber
			}
		}).
		Render()
}
