package solution

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/observability"
)

// Fixture is the on-disk layout read by [LoadFile]. JSON files are read by
// the same decoder, since YAML is a superset of JSON. Unknown fields are
// ignored so raw database exports load as they are.
type Fixture struct {
	Solutions []*Solution `yaml:"solutions"`
	Entities  []Entity    `yaml:"entities,omitempty"`
}

// MemoryStore keeps solutions and entities in memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	solutions map[string]*Solution
	entities  map[EntityKind]map[string]Entity
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		solutions: make(map[string]*Solution),
		entities:  make(map[EntityKind]map[string]Entity, len(Kinds)),
	}
	for _, k := range Kinds {
		s.entities[k] = make(map[string]Entity)
	}
	return s
}

// LoadFile reads a fixture file into a new MemoryStore.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "fixture %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "read fixture %s", path)
	}
	return Load(data)
}

// Load decodes fixture data into a new MemoryStore.
func Load(data []byte) (*MemoryStore, error) {
	var fx Fixture
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&fx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode fixture")
	}
	s := NewMemoryStore()
	ctx := context.Background()
	for i, sol := range fx.Solutions {
		if sol == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "solution %d is empty", i)
		}
		if err := s.PutSolution(ctx, sol); err != nil {
			return nil, err
		}
	}
	for _, e := range fx.Entities {
		if err := s.PutEntity(ctx, e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Fixture returns the store's contents in file form, solutions ordered as
// [MemoryStore.List] orders them.
func (s *MemoryStore) Fixture() Fixture {
	sols, _ := s.List(context.Background())
	var fx Fixture
	fx.Solutions = sols
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range Kinds {
		ids := make([]string, 0, len(s.entities[k]))
		for id := range s.entities[k] {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fx.Entities = append(fx.Entities, s.entities[k][id])
		}
	}
	return fx
}

// WriteFile writes the store's contents to path as YAML.
func (s *MemoryStore) WriteFile(path string) error {
	data, err := yaml.Marshal(s.Fixture())
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "write fixture %s", path)
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (sol *Solution, err error) {
	done := observability.TrackQuery(ctx, "memory", "get")
	defer func() { done(err) }()

	if err := apperrors.ValidateObjectID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.solutions[id]
	if !ok {
		return nil, errSolutionNotFound(id)
	}
	return sol, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Solution, error) {
	s.mu.RLock()
	out := make([]*Solution, 0, len(s.solutions))
	for _, sol := range s.solutions {
		out = append(out, sol)
	}
	s.mu.RUnlock()
	sortSolutions(out)
	return out, nil
}

// Entity implements Store.
func (s *MemoryStore) Entity(ctx context.Context, kind EntityKind, id string) (e Entity, err error) {
	done := observability.TrackQuery(ctx, "memory", "entity")
	defer func() { done(err) }()

	if err := apperrors.ValidateObjectID(id); err != nil {
		return Entity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[kind][id]
	if !ok {
		return Entity{}, errNotFound(kind, id)
	}
	return e, nil
}

// PutSolution implements Writer. Solutions without an id get a fresh one.
func (s *MemoryStore) PutSolution(_ context.Context, sol *Solution) error {
	if sol.ID == "" {
		sol.ID = newObjectID()
	}
	if err := apperrors.ValidateObjectID(sol.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.solutions[sol.ID] = sol
	s.mu.Unlock()
	return nil
}

// PutEntity implements Writer.
func (s *MemoryStore) PutEntity(_ context.Context, e Entity) error {
	if _, err := ParseEntityKind(string(e.Kind)); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "entity %s", e.ID)
	}
	if err := apperrors.ValidateObjectID(e.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.entities[e.Kind][e.ID] = e
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// sortSolutions orders by UpdatedAt descending, then id.
func sortSolutions(sols []*Solution) {
	slices.SortFunc(sols, func(a, b *Solution) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Writer = (*MemoryStore)(nil)
)
