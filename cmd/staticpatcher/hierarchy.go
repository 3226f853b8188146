package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/studioph/StaticPatcher/internal/catalog"
	"github.com/studioph/StaticPatcher/internal/category"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = cellStyle.Foreground(lipgloss.Color("245"))
)

func init() {
	rootCmd.AddCommand(hierarchyCmd)
}

// hierarchyCmd prints the ordering policy of a hierarchy
var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [locations|statics]",
	Short: "Show a category hierarchy in priority order",
	Long: `Show the categories of a hierarchy in priority order. The first category
that matches a record wins, so earlier rows take precedence over later ones.
Composite categories list every category they subsume.

Examples:
  # Built-in location hierarchy
  staticpatcher hierarchy locations

  # Statics hierarchy from the file named in config
  staticpatcher hierarchy statics --config staticpatcher.yaml`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{catalog.KindLocations, catalog.KindStatics},
	RunE:      runHierarchy,
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	h, err := a.hierarchy(category.Normalize(args[0]))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHierarchy(h))
	return err
}

// renderHierarchy lays h out as a table: priority, name, type, criteria.
func renderHierarchy(h *category.Hierarchy) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "CATEGORY", "TYPE", "CRITERIA").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3:
				return dimStyle
			default:
				return cellStyle
			}
		})

	for i, c := range h.Categories() {
		t.Row(strconv.Itoa(i+1), c.Name(), categoryType(c), criteria(c))
	}
	return fmt.Sprintf("%s hierarchy (%d categories)\n%s", h.Kind(), h.Len(), t.Render())
}

func categoryType(c *category.Category) string {
	if c.IsComposite() {
		return "composite"
	}
	return "leaf"
}

func criteria(c *category.Category) string {
	if c.IsComposite() {
		subs := make([]string, 0, len(c.Subsumes()))
		for _, key := range c.Subsumes() {
			if key != c.Key() {
				subs = append(subs, key)
			}
		}
		return "subsumes: " + strings.Join(subs, ", ")
	}

	parts := make([]string, 0, 3)
	if n := len(c.Members()); n > 0 {
		parts = append(parts, fmt.Sprintf("members: %d", n))
	}
	if kws := c.Keywords(); len(kws) > 0 {
		names := make([]string, len(kws))
		for i, kw := range kws {
			names[i] = string(kw)
		}
		parts = append(parts, "keywords: "+strings.Join(names, ", "))
	}
	if hints := c.NameHints(); len(hints) > 0 {
		parts = append(parts, "names: "+strings.Join(hints, ", "))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
