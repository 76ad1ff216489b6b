package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	// Dependency tree node kinds.
	styleFormula  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLeaf     = lipgloss.NewStyle().Foreground(colorWhite)
	styleCircular = lipgloss.NewStyle().Foreground(colorRed)
	stylePath     = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess  = "✓"
	iconError    = "✗"
	iconWarning  = "!"
	iconInfo     = "›"
	iconArrow    = "→"
	iconCached   = "cached"
	iconFresh    = "fresh"
	iconCircular = "↺"
)

// out is where the print helpers write. Tests replace it.
var out io.Writer = os.Stdout

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconError.Render(iconError)+" "+msg)
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, "  "+StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printTitle prints a heading.
func printTitle(title string) {
	fmt.Fprintln(out, StyleTitle.Render(title))
}

// printStats prints counts on a single line followed by the cache status.
func printStats(counts []string, cached bool) {
	parts := append([]string(nil), counts...)

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(out, line)
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(out, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(out)
}

// =============================================================================
// Dependency Trees
// =============================================================================

// renderTree draws root with box-drawing connectors. Names on highlight
// are emphasised, which is how a FindPath result is shown.
func renderTree(root *deptree.Node, highlight []*deptree.Node) string {
	onPath := make(map[*deptree.Node]bool, len(highlight))
	for _, n := range highlight {
		onPath[n] = true
	}
	var b strings.Builder
	b.WriteString(treeLabel(root, onPath[root]))
	b.WriteString("\n")
	for i, child := range root.Children {
		writeSubtree(&b, child, "", i == len(root.Children)-1, onPath)
	}
	return b.String()
}

func writeSubtree(b *strings.Builder, n *deptree.Node, prefix string, last bool, onPath map[*deptree.Node]bool) {
	connector, next := "├── ", "│   "
	if last {
		connector, next = "└── ", "    "
	}
	b.WriteString(StyleDim.Render(prefix + connector))
	b.WriteString(treeLabel(n, onPath[n]))
	b.WriteString("\n")
	for i, child := range n.Children {
		writeSubtree(b, child, prefix+next, i == len(n.Children)-1, onPath)
	}
}

func treeLabel(n *deptree.Node, highlighted bool) string {
	var name string
	switch n.Kind {
	case deptree.KindFormula:
		name = styleFormula.Render(n.Name)
		name += " " + StyleDim.Render("= "+n.Expression)
		if n.Fallback {
			name += " " + StyleWarning.Render("(unparsed)")
		}
	case deptree.KindCircular:
		name = styleCircular.Render(iconCircular + " " + n.Name)
	default:
		name = styleLeaf.Render(n.Name)
	}
	if highlighted {
		return stylePath.Render("▸ ") + name
	}
	return name
}

// =============================================================================
// Tables
// =============================================================================

// newTable returns a table in the CLI's border and header style.
func newTable(headers ...string) *table.Table {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return cellStyle
		})
}

// renderPartials draws one row per partial derivative.
func renderPartials(partials []derivative.Partial) string {
	t := newTable("Variable", "∂", "Impact", "Sensitivity", "Type")
	for _, p := range partials {
		t.Row(p.Variable, p.Expression, p.ImpactLabel(), p.SensitivityLabel(), p.TypeLabel())
	}
	return t.Render()
}
