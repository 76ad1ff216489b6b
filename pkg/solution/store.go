package solution

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
)

// Store reads solutions and the entities they reference.
type Store interface {
	// Get returns the solution with the given hex id.
	Get(ctx context.Context, id string) (*Solution, error)

	// List returns every solution, most recently updated first.
	List(ctx context.Context) ([]*Solution, error)

	// Entity returns the entity of the given kind and id.
	Entity(ctx context.Context, kind EntityKind, id string) (Entity, error)

	// Close releases the store's resources.
	Close() error
}

// Writer is implemented by stores that accept imported records.
type Writer interface {
	// PutSolution inserts or replaces a solution.
	PutSolution(ctx context.Context, s *Solution) error

	// PutEntity inserts or replaces an entity.
	PutEntity(ctx context.Context, e Entity) error
}

// errNotFound returns the not-found error for an entity kind.
func errNotFound(kind EntityKind, id string) error {
	return apperrors.New(apperrors.ErrCodeNotFound, "%s %s not found", kind, id)
}

func errSolutionNotFound(id string) error {
	return apperrors.New(apperrors.ErrCodeSolutionNotFound, "solution %s does not exist", id)
}

// Names holds the display names of a solution's references.
type Names struct {
	Industry   string `json:"industry"`
	Technology string `json:"technology"`
	CreatedBy  string `json:"created_by"`
}

// ResolveNames looks up the display names of s's industry, technology and
// author. A failed lookup leaves the id in place; ResolveNames never fails.
func ResolveNames(ctx context.Context, st Store, s *Solution) Names {
	lookup := func(kind EntityKind, id string) string {
		if id == "" {
			return ""
		}
		e, err := st.Entity(ctx, kind, id)
		if err != nil {
			return id
		}
		e.Kind = kind
		return e.DisplayName()
	}
	return Names{
		Industry:   lookup(KindIndustry, s.IndustryID),
		Technology: lookup(KindTechnology, s.TechnologyID),
		CreatedBy:  lookup(KindUser, s.CreatedBy),
	}
}

// ImportReport summarises one [Import] run.
type ImportReport struct {
	ID        string        `json:"id"`
	Solutions int           `json:"solutions"`
	Entities  int           `json:"entities"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Import copies every solution in src, plus the entities they reference,
// into dst. Entities that cannot be found are skipped.
func Import(ctx context.Context, dst Writer, src Store) (ImportReport, error) {
	rep := ImportReport{ID: uuid.New().String(), StartedAt: time.Now().UTC()}

	sols, err := src.List(ctx)
	if err != nil {
		return rep, err
	}

	seen := make(map[EntityKind]map[string]bool, len(Kinds))
	for _, k := range Kinds {
		seen[k] = make(map[string]bool)
	}
	copyEntity := func(kind EntityKind, id string) error {
		if id == "" || seen[kind][id] {
			return nil
		}
		seen[kind][id] = true
		e, err := src.Entity(ctx, kind, id)
		if apperrors.IsNotFound(err) || apperrors.IsInvalid(err) {
			return nil
		}
		if err != nil {
			return err
		}
		e.Kind = kind
		if err := dst.PutEntity(ctx, e); err != nil {
			return err
		}
		rep.Entities++
		return nil
	}

	for _, s := range sols {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := dst.PutSolution(ctx, s); err != nil {
			return rep, err
		}
		rep.Solutions++
		for _, ref := range []struct {
			kind EntityKind
			id   string
		}{
			{KindIndustry, s.IndustryID},
			{KindTechnology, s.TechnologyID},
			{KindUser, s.CreatedBy},
		} {
			if err := copyEntity(ref.kind, ref.id); err != nil {
				return rep, err
			}
		}
	}
	rep.Duration = time.Since(rep.StartedAt)
	if r, ok := dst.(importRecorder); ok {
		if err := r.recordImport(ctx, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// importRecorder is implemented by writers that keep an import history.
type importRecorder interface {
	recordImport(ctx context.Context, rep ImportReport) error
}
