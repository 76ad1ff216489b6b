// Package solution models solution configurations and the stores they are
// read from.
//
// A [Solution] is an industry- and technology-scoped cost model: a list of
// input [Parameter] values and a list of named [Calculation] formulas. The
// engine only needs the calculations, via [Solution.Formulas]:
//
//	sol, err := store.Get(ctx, "64f1c0ffee0000000000beef")
//	tree := deptree.Build("Total_Cost", sol.Formulas())
//
// # Stores
//
// [Store] is the read interface used by the CLI and the HTTP server. Three
// implementations exist:
//
//   - [MongoStore]: the platform database (clients_solutions, industry,
//     technologies, clients, users collections)
//   - [SQLiteStore]: an offline copy, filled by [Import]
//   - [MemoryStore]: fixtures loaded from YAML or JSON files
//
// Stores report failures as coded errors from pkg/errors: a malformed id is
// INVALID_ID, a missing solution is SOLUTION_NOT_FOUND and a backend failure
// is STORE_ERROR.
//
// # Display names
//
// Solutions reference their industry, technology and author by id.
// [ResolveNames] looks each one up and falls back to the id itself when the
// lookup fails, so callers always have something to show.
package solution
