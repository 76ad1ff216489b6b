package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/formula"
	fio "github.com/matzehuels/formulascope/pkg/io"
)

// sourceFlags select where a command's formula map comes from. They can be
// combined: --formula entries are layered over the file or solution.
type sourceFlags struct {
	file     string
	solution string
	formulas []string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "formula map file (.yaml, .toml, .json)")
	cmd.Flags().StringVarP(&s.solution, "solution", "s", "", "id of a stored solution")
	cmd.Flags().StringArrayVar(&s.formulas, "formula", nil, "formula as name=expression (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("file", "solution")

	_ = cmd.RegisterFlagCompletionFunc("file", completeFormulaFiles)
	cmd.ValidArgsFunction = s.completeFormulaNames
}

// formulaSource is a loaded formula map and the root to analyse.
type formulaSource struct {
	Formulas formula.Map
	Root     string
	// Label describes the source for output, e.g. a path or solution name.
	Label string
}

// load reads the formula map and picks the root: args[0] if given, then
// the file's root, then the only --formula entry.
func (c *CLI) load(ctx context.Context, s sourceFlags, args []string) (formulaSource, error) {
	src := formulaSource{Formulas: formula.Map{}}

	switch {
	case s.file != "":
		doc, err := fio.Import(s.file)
		if err != nil {
			return src, err
		}
		src.Formulas, src.Root, src.Label = doc.Formulas, doc.Root, s.file
	case s.solution != "":
		st, err := c.openStore(ctx)
		if err != nil {
			return src, err
		}
		defer st.Close()
		sol, err := st.Get(ctx, s.solution)
		if err != nil {
			return src, err
		}
		src.Formulas, src.Label = sol.Formulas(), sol.Name
	}

	for _, f := range s.formulas {
		name, expr, err := parseFormulaFlag(f)
		if err != nil {
			return src, err
		}
		src.Formulas[name] = expr
		if len(s.formulas) == 1 && src.Root == "" {
			src.Root = name
		}
	}
	if len(src.Formulas) == 0 {
		return src, apperrors.New(apperrors.ErrCodeInvalidInput, "no formulas: use --file, --solution or --formula")
	}
	if src.Label == "" {
		src.Label = "command line"
	}

	if len(args) > 0 {
		src.Root = args[0]
	}
	if src.Root == "" {
		return src, apperrors.New(apperrors.ErrCodeInvalidInput, "no root formula: pass one of %s", strings.Join(src.Formulas.Names(), ", "))
	}
	if err := apperrors.ValidateFormulaName(src.Root); err != nil {
		return src, err
	}
	if _, ok := src.Formulas.Lookup(src.Root); !ok {
		return src, apperrors.New(apperrors.ErrCodeFormulaNotFound, "no formula named %q in %s", src.Root, src.Label)
	}
	loggerFromContext(ctx).Debug("loaded formulas", "source", src.Label, "count", len(src.Formulas), "root", src.Root)
	return src, nil
}

// parseFormulaFlag splits "name=expression".
func parseFormulaFlag(s string) (name, expr string, err error) {
	name, expr, ok := strings.Cut(s, "=")
	name, expr = strings.TrimSpace(name), strings.TrimSpace(expr)
	if !ok || expr == "" {
		return "", "", apperrors.New(apperrors.ErrCodeInvalidInput, "--formula %q: want name=expression", s)
	}
	if !formula.IsIdentifier(name) {
		return "", "", apperrors.New(apperrors.ErrCodeInvalidInput, "--formula %q: %q is not an identifier", s, name)
	}
	return name, expr, nil
}
