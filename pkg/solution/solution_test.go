package solution

import (
	"testing"
	"time"
)

func testSolution() *Solution {
	return &Solution{
		ID:   "64f1c0ffee0000000000beef",
		Name: "Cold Storage Retrofit",
		Parameters: []Parameter{
			{Name: "Capex", Value: "120000"},
		},
		Calculations: []Calculation{
			{Name: "Total_Cost", Formula: "Capex + Opex * Years"},
			{Name: "Annual_Cost", Formula: "Total_Cost / Years"},
			{Name: "Notes", Formula: ""},
			{Name: "Total_Cost", Formula: "0"},
		},
	}
}

func TestFormulas(t *testing.T) {
	m := testSolution().Formulas()
	if len(m) != 2 {
		t.Fatalf("Formulas() = %v, want 2 entries", m)
	}
	if got := m["Total_Cost"]; got != "Capex + Opex * Years" {
		t.Errorf("Formulas()[Total_Cost] = %q, want first definition", got)
	}
	if _, ok := m["Notes"]; ok {
		t.Error("empty formulas should be left out")
	}
}

func TestCalculationLookup(t *testing.T) {
	s := testSolution()
	c, ok := s.Calculation("Annual_Cost")
	if !ok || c.Formula != "Total_Cost / Years" {
		t.Errorf("Calculation(Annual_Cost) = %+v, %v", c, ok)
	}
	if _, ok := s.Calculation("Missing"); ok {
		t.Error("Calculation(Missing) ok = true")
	}
	if p, ok := s.Parameter("Capex"); !ok || p.Value != "120000" {
		t.Errorf("Parameter(Capex) = %+v, %v", p, ok)
	}
}

func TestIsFormula(t *testing.T) {
	tests := []struct {
		formula string
		want    bool
	}{
		{"Capex + Opex", true},
		{"Capex", false},
		{"", false},
		{"(a) ^ 2", true},
	}
	for _, tt := range tests {
		if got := (Calculation{Formula: tt.formula}).IsFormula(); got != tt.want {
			t.Errorf("IsFormula(%q) = %v, want %v", tt.formula, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := testSolution()
	sum := s.Summarize()
	if sum.ID != s.ID || sum.Name != s.Name {
		t.Errorf("Summarize() = %+v", sum)
	}
	if sum.Parameters != 1 || sum.Calculations != 4 {
		t.Errorf("counts = %d/%d, want 1/4", sum.Parameters, sum.Calculations)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		e    Entity
		want string
	}{
		{"company", Entity{ID: "u", Kind: KindUser, CompanyName: "Acme", FirstName: "Ada"}, "Acme"},
		{"full name", Entity{ID: "u", Kind: KindUser, FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", Entity{ID: "u", Kind: KindUser, FirstName: "Ada", Username: "ada"}, "Ada"},
		{"username", Entity{ID: "u", Kind: KindUser, Username: "ada", Email: "a@x"}, "ada"},
		{"email", Entity{ID: "u", Kind: KindUser, Email: "a@x"}, "a@x"},
		{"user fallback", Entity{ID: "u", Kind: KindUser, LastName: "Lovelace"}, "u"},
		{"industry", Entity{ID: "i", Kind: KindIndustry, Name: "Retail"}, "Retail"},
		{"industry fallback", Entity{ID: "i", Kind: KindIndustry}, "i"},
		{"technology ignores user fields", Entity{ID: "t", Kind: KindTechnology, CompanyName: "Acme"}, "t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEntityKind(t *testing.T) {
	for _, in := range []string{"industry", " Technology ", "USER"} {
		if _, err := ParseEntityKind(in); err != nil {
			t.Errorf("ParseEntityKind(%q) error: %v", in, err)
		}
	}
	if _, err := ParseEntityKind("client"); err == nil {
		t.Error("ParseEntityKind(client) should fail")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q, want -", got)
	}
	if got := FormatDateTime(time.Time{}); got != "-" {
		t.Errorf("FormatDateTime(zero) = %q, want -", got)
	}
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	if got := FormatDate(ts); got != "2024-06-15" {
		t.Errorf("FormatDate = %q, want 2024-06-15", got)
	}
	if got := FormatDateTime(ts); got != "2024-06-15 12:00:00" {
		t.Errorf("FormatDateTime = %q, want 2024-06-15 12:00:00", got)
	}
}
