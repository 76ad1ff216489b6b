package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/solution"
)

// solutionsCommand creates the solutions command group, which reads the
// configured solution store.
func (c *CLI) solutionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "solutions",
		Aliases: []string{"sol"},
		Short:   "List, show and import stored solutions",
		Long: `List, show and import stored solutions.

The store is chosen by the [store] section of the config file: MongoDB (the
platform database), a local SQLite file, or a YAML fixture.`,
	}

	cmd.AddCommand(c.solutionsListCommand())
	cmd.AddCommand(c.solutionsShowCommand())
	cmd.AddCommand(c.solutionsImportCommand())

	return cmd
}

func (c *CLI) solutionsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored solutions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			sols, err := st.List(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				sums := make([]solution.Summary, len(sols))
				for i, s := range sols {
					sums[i] = s.Summarize()
				}
				return encodeJSON(sums)
			}
			if len(sols) == 0 {
				printInfo("No solutions")
				return nil
			}

			t := newTable("ID", "Name", "Status", "Params", "Calcs", "Updated")
			for _, s := range sols {
				sum := s.Summarize()
				t.Row(sum.ID, truncate(sum.Name, 40), sum.Status,
					strconv.Itoa(sum.Parameters), strconv.Itoa(sum.Calculations),
					solution.FormatDate(sum.UpdatedAt))
			}
			fmt.Fprintln(out, t.Render())
			printDetail("%d solutions", len(sols))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")
	return cmd
}

func (c *CLI) solutionsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a solution's parameters and calculations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			sol, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return encodeJSON(sol)
			}
			showSolution(ctx, st, sol)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the solution document as JSON")
	return cmd
}

func showSolution(ctx context.Context, st solution.Store, sol *solution.Solution) {
	names := solution.ResolveNames(ctx, st, sol)

	printTitle(sol.Name)
	if sol.Description != "" {
		printDetail("%s", sol.Description)
	}
	printNewline()
	printKeyValue("ID", sol.ID)
	printKeyValue("Status", sol.Status)
	printKeyValue("Industry", orDash(names.Industry))
	printKeyValue("Technology", orDash(names.Technology))
	printKeyValue("Created by", orDash(names.CreatedBy))
	printKeyValue("Updated", solution.FormatDateTime(sol.UpdatedAt))
	printNewline()

	if len(sol.Parameters) > 0 {
		t := newTable("Parameter", "Value", "Unit", "Category")
		for _, p := range sol.Parameters {
			t.Row(p.Name, p.Value, p.Unit, p.Category.Name)
		}
		fmt.Fprintln(out, t.Render())
	}

	if len(sol.Calculations) > 0 {
		t := newTable("Calculation", "Formula", "Level", "Output")
		formulas := 0
		for _, calc := range sol.Calculations {
			expr := truncate(calc.Formula, 60)
			if calc.IsFormula() {
				formulas++
			} else {
				expr = StyleDim.Render(orDash(expr))
			}
			output := ""
			if calc.Output {
				output = iconSuccess
			}
			t.Row(calc.Name, expr, strconv.Itoa(calc.Level), output)
		}
		fmt.Fprintln(out, t.Render())
		printStats([]string{
			fmt.Sprintf("%d parameters", len(sol.Parameters)),
			fmt.Sprintf("%d calculations", len(sol.Calculations)),
			fmt.Sprintf("%d formulas", formulas),
		}, false)
	}
	printNewline()
	printNextStep("Explore a calculation", fmt.Sprintf("%s tree <name> --solution %s", appName, sol.ID))
}

func (c *CLI) solutionsImportCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy every solution into a local SQLite store",
		Long: `Copy every solution, and the industries, technologies and users they
reference, from the configured store into a local SQLite file. Point the
config's [store] section at the file to work offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := solution.NewSQLiteStore(solution.SQLiteStoreConfig{DSN: to})
			if err != nil {
				return err
			}
			defer dst.Close()

			rep, err := spin(ctx, "Importing solutions...", "Import failed", func() (solution.ImportReport, error) {
				return solution.Import(ctx, dst, src)
			})
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			printSuccess("Imported %d solutions and %d entities", rep.Solutions, rep.Entities)
			printFile(to)
			printDetail("Import %s took %s", rep.ID, rep.Duration.Round(time.Millisecond))
			printNewline()
			printNextStep("Use it", "set [store] backend = \"sqlite\" and sqlite_path = \""+to+"\" in "+displayConfigPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "solutions.db", "SQLite file to import into")
	return cmd
}

func encodeJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
