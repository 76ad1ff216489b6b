package solution

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
)

const (
	coldStorageID = "64f1c0ffee0000000000beef"
	heatPumpID    = "64f1c0ffee0000000000cafe"
)

func loadFixture(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := LoadFile(filepath.Join("testdata", "solutions.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return s
}

func TestLoadFile(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	sol, err := s.Get(ctx, coldStorageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sol.Name != "Cold Storage Retrofit" {
		t.Errorf("Name = %q", sol.Name)
	}
	if len(sol.Parameters) != 3 || len(sol.Calculations) != 3 {
		t.Errorf("parameters/calculations = %d/%d, want 3/3", len(sol.Parameters), len(sol.Calculations))
	}
	if got := sol.Formulas()["Annual_Cost"]; got != "Total_Cost / Years" {
		t.Errorf("Annual_Cost = %q", got)
	}
	if sol.Parameters[0].Category.Name != "Costs" {
		t.Errorf("category = %+v", sol.Parameters[0].Category)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("LoadFile(missing) = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "solutions: [\n"},
		{"bad id", "solutions:\n  - _id: nope\n"},
		{"bad kind", "entities:\n  - _id: 64f1c0ffee00000000000001\n    kind: planet\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load([]byte(tt.data)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestMemoryStoreGetErrors(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "not-an-id"); !apperrors.Is(err, apperrors.ErrCodeInvalidID) {
		t.Errorf("Get(malformed) = %v, want INVALID_ID", err)
	}
	if _, err := s.Get(ctx, "000000000000000000000000"); !apperrors.Is(err, apperrors.ErrCodeSolutionNotFound) {
		t.Errorf("Get(missing) = %v, want SOLUTION_NOT_FOUND", err)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	sols, err := loadFixture(t).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sols) != 2 {
		t.Fatalf("List() returned %d solutions, want 2", len(sols))
	}
	if sols[0].ID != coldStorageID || sols[1].ID != heatPumpID {
		t.Errorf("List() order = %s, %s; want most recently updated first", sols[0].ID, sols[1].ID)
	}
}

func TestMemoryStorePutAssignsID(t *testing.T) {
	s := NewMemoryStore()
	sol := &Solution{Name: "New"}
	if err := s.PutSolution(context.Background(), sol); err != nil {
		t.Fatal(err)
	}
	if err := apperrors.ValidateObjectID(sol.ID); err != nil {
		t.Errorf("assigned id %q is not an ObjectID: %v", sol.ID, err)
	}
}

func TestResolveNames(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()
	sol, _ := s.Get(ctx, coldStorageID)

	got := ResolveNames(ctx, s, sol)
	want := Names{
		Industry:   "Food Retail",
		Technology: "64f1c0ffee00000000000002", // not in the fixture
		CreatedBy:  "Ada Lovelace",
	}
	if got != want {
		t.Errorf("ResolveNames() = %+v, want %+v", got, want)
	}

	empty := ResolveNames(ctx, s, &Solution{})
	if empty != (Names{}) {
		t.Errorf("ResolveNames(no refs) = %+v, want zero", empty)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	s := loadFixture(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	again, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	sol, err := again.Get(context.Background(), coldStorageID)
	if err != nil {
		t.Fatal(err)
	}
	if got := sol.Formulas()["Total_Cost"]; got != "Capex + Opex * Years" {
		t.Errorf("Total_Cost after round trip = %q", got)
	}
	e, err := again.Entity(context.Background(), KindUser, "64f1c0ffee00000000000003")
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != "clients" {
		t.Errorf("Source = %q, want clients", e.Source)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Entity(context.Context, EntityKind, string) (Entity, error) {
	return Entity{}, errors.New("connection reset")
}

func TestResolveNamesStoreFailure(t *testing.T) {
	s := failingStore{loadFixture(t)}
	sol, _ := s.Get(context.Background(), coldStorageID)
	got := ResolveNames(context.Background(), s, sol)
	if got.Industry != sol.IndustryID || got.CreatedBy != sol.CreatedBy {
		t.Errorf("ResolveNames() = %+v, want ids as fallback", got)
	}
}
