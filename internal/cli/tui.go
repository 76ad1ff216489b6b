package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/deptree"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
	"github.com/matzehuels/formulascope/pkg/formula"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// exploreCommand creates the explore command, an interactive view of a
// formula's expression graph in which variables are expanded and collapsed.
func (c *CLI) exploreCommand() *cobra.Command {
	var source sourceFlags

	cmd := &cobra.Command{
		Use:   "explore [formula]",
		Short: "Interactively expand a formula's expression graph",
		Long: `Interactively expand a formula's expression graph.

Lists every variable of the graph that has a formula of its own. Toggling a
variable expands it into its subgraph, which may reveal further expandable
variables. On exit the matching render command is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.load(cmd.Context(), source, args)
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(newExploreModel(src.Formulas, src.Root), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("explore: %w", err)
			}
			m := final.(ExploreModel)
			if len(m.Expanded) == 0 {
				return nil
			}
			printNextStep("Render this view", fmt.Sprintf("%s render %s --expand %s", appName, src.Root, strings.Join(m.Expanded, ",")))
			return nil
		},
	}

	source.register(cmd)
	return cmd
}

// =============================================================================
// ExploreModel - Interactive expansion of an expression graph
// =============================================================================

// ExploreModel is the bubbletea model for the explore command.
type ExploreModel struct {
	Formulas formula.Map
	Root     string
	// Expanded holds the expanded names in the order they were toggled on.
	Expanded []string

	Graph      exprgraph.Graph
	Expandable []string
	Tree       deptree.Stats

	Cursor int
	Height int
	Offset int
}

func newExploreModel(m formula.Map, root string) ExploreModel {
	model := ExploreModel{
		Formulas: m,
		Root:     root,
		Height:   12,
		Tree:     deptree.Summarize(deptree.Build(root, m, deptree.WithMaxDepth(analysis.DefaultMaxDepth))),
	}
	model.relayout()
	return model
}

// relayout recomputes the graph for the current expansion set. Expanded
// names that are no longer reachable stay in the set; Layout ignores them
// until they reappear.
func (m *ExploreModel) relayout() {
	m.Graph = exprgraph.Layout(m.Root, m.Formulas, m.Expanded)
	m.Expandable = m.Graph.Expandable(m.Formulas.Has)
	if m.Cursor >= len(m.Expandable) {
		m.Cursor = max(len(m.Expandable)-1, 0)
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// toggle flips the expansion of name.
func (m *ExploreModel) toggle(name string) {
	if i := slices.Index(m.Expanded, name); i >= 0 {
		m.Expanded = slices.Delete(m.Expanded, i, i+1)
	} else {
		m.Expanded = append(m.Expanded, name)
	}
	m.relayout()
}

func (m ExploreModel) isExpanded(name string) bool {
	return slices.Contains(m.Expanded, name)
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Expandable)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			if len(m.Expandable) > 0 {
				m.toggle(m.Expandable[m.Cursor])
			}
		case "c":
			m.Expanded = nil
			m.relayout()
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
	}
	return m, nil
}

func (m ExploreModel) View() string {
	var b strings.Builder

	expr, _ := m.Formulas.Lookup(m.Root)
	b.WriteString(StyleTitle.Render(m.Root))
	b.WriteString(" " + listDimStyle.Render("= "+expr))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand/collapse  c collapse all  q quit"))
	b.WriteString("\n\n")

	if len(m.Expandable) == 0 {
		b.WriteString(listNormalStyle.Render("  Nothing to expand: every variable is an input."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	stats := []string{
		fmt.Sprintf("%d nodes", len(m.Graph.Nodes)),
		fmt.Sprintf("%d edges", len(m.Graph.Edges)),
		fmt.Sprintf("%d expanded", len(m.Expanded)),
		fmt.Sprintf("tree: %d formulas, %d inputs", m.Tree.Formulas, m.Tree.Leaves),
	}
	b.WriteString(listDimStyle.Render("  " + strings.Join(stats, " · ")))
	if m.Graph.Fallback {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render("  " + m.Root + " did not parse; showing a flat graph"))
	}
	return b.String()
}

func (m ExploreModel) table() string {
	end := min(m.Offset+m.Height, len(m.Expandable))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		name := m.Expandable[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		state := "+"
		if m.isExpanded(name) {
			state = "−"
		}
		expr, _ := m.Formulas.Lookup(name)
		rows = append(rows, []string{cursor, state, name, truncate(expr, 48)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Variable", "Formula").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Expandable) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 3 {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return listSelectedStyle.Inherit(base)
			}
			if m.isExpanded(m.Expandable[idx]) {
				return base.Foreground(colorGreen)
			}
			return base
		})

	return t.Render() + "\n" + listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Expandable)))
}

// =============================================================================
// Helpers
// =============================================================================

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
