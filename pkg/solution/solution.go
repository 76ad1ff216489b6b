package solution

import (
	"time"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// Category groups parameters and calculations for display.
type Category struct {
	Name  string `json:"name" bson:"name" yaml:"name"`
	Color string `json:"color" bson:"color" yaml:"color"`
}

// DropdownOption is one choice of a dropdown parameter.
type DropdownOption struct {
	Key   string `json:"key" bson:"key" yaml:"key"`
	Value string `json:"value" bson:"value" yaml:"value"`
}

// UserInterface holds a parameter's presentation hints.
type UserInterface struct {
	Category   string `json:"category" bson:"category" yaml:"category"`
	IsAdvanced bool   `json:"is_advanced" bson:"is_advanced" yaml:"is_advanced"`
	Type       string `json:"type" bson:"type" yaml:"type"`
}

// ConditionalRule shows or hides a parameter depending on other inputs.
type ConditionalRule struct {
	Condition string `json:"condition" bson:"condition" yaml:"condition"`
	Value     string `json:"value" bson:"value" yaml:"value"`
}

// Parameter is an input of a solution. Values are kept as the strings the
// platform stores.
type Parameter struct {
	ID               string            `json:"id" bson:"id" yaml:"id"`
	Name             string            `json:"name" bson:"name" yaml:"name"`
	Description      string            `json:"description,omitempty" bson:"description" yaml:"description,omitempty"`
	Information      string            `json:"information,omitempty" bson:"information" yaml:"information,omitempty"`
	Category         Category          `json:"category" bson:"category" yaml:"category"`
	ConditionalRules []ConditionalRule `json:"conditional_rules,omitempty" bson:"conditional_rules" yaml:"conditional_rules,omitempty"`
	DisplayType      string            `json:"display_type,omitempty" bson:"display_type" yaml:"display_type,omitempty"`
	DropdownOptions  []DropdownOption  `json:"dropdown_options,omitempty" bson:"dropdown_options" yaml:"dropdown_options,omitempty"`
	InputType        string            `json:"input_type,omitempty" bson:"input_type" yaml:"input_type,omitempty"`
	IsModifiable     bool              `json:"is_modifiable" bson:"is_modifiable" yaml:"is_modifiable"`
	Level            string            `json:"level,omitempty" bson:"level" yaml:"level,omitempty"`
	Output           bool              `json:"output" bson:"output" yaml:"output"`
	ProvidedBy       string            `json:"provided_by,omitempty" bson:"provided_by" yaml:"provided_by,omitempty"`
	RangeMin         string            `json:"range_min,omitempty" bson:"range_min" yaml:"range_min,omitempty"`
	RangeMax         string            `json:"range_max,omitempty" bson:"range_max" yaml:"range_max,omitempty"`
	TestValue        string            `json:"test_value,omitempty" bson:"test_value" yaml:"test_value,omitempty"`
	Unit             string            `json:"unit,omitempty" bson:"unit" yaml:"unit,omitempty"`
	UserInterface    UserInterface     `json:"user_interface" bson:"user_interface" yaml:"user_interface"`
	Value            string            `json:"value" bson:"value" yaml:"value"`
}

// Calculation is a named formula over parameters and other calculations.
type Calculation struct {
	ID            string   `json:"id" bson:"id" yaml:"id"`
	Name          string   `json:"name" bson:"name" yaml:"name"`
	Description   string   `json:"description,omitempty" bson:"description" yaml:"description,omitempty"`
	Category      Category `json:"category" bson:"category" yaml:"category"`
	Formula       string   `json:"formula" bson:"formula" yaml:"formula"`
	Level         int      `json:"level" bson:"level" yaml:"level"`
	Output        bool     `json:"output" bson:"output" yaml:"output"`
	DisplayResult bool     `json:"display_result" bson:"display_result" yaml:"display_result"`
	// Result is whatever the platform last computed: a number, a string or
	// nil.
	Result any    `json:"result" bson:"result" yaml:"result"`
	Status string `json:"status,omitempty" bson:"status" yaml:"status,omitempty"`
	Units  string `json:"units,omitempty" bson:"units" yaml:"units,omitempty"`
}

// IsFormula reports whether the calculation has a formula worth analysing:
// non-empty and containing at least one operator.
func (c Calculation) IsFormula() bool {
	return c.Formula != "" && formula.HasOperator(c.Formula)
}

// Solution is a solution configuration document.
//
// ID is the hex form of the document's ObjectID. The Mongo driver decodes
// ObjectIDs into string fields as hex.
type Solution struct {
	ID                        string        `json:"_id" bson:"_id" yaml:"_id"`
	Name                      string        `json:"solution_name" bson:"solution_name" yaml:"solution_name"`
	Description               string        `json:"solution_description,omitempty" bson:"solution_description" yaml:"solution_description,omitempty"`
	Icon                      string        `json:"solution_icon,omitempty" bson:"solution_icon" yaml:"solution_icon,omitempty"`
	Status                    string        `json:"status" bson:"status" yaml:"status"`
	ClientID                  string        `json:"client_id,omitempty" bson:"client_id" yaml:"client_id,omitempty"`
	IndustryID                string        `json:"industry_id,omitempty" bson:"industry_id" yaml:"industry_id,omitempty"`
	TechnologyID              string        `json:"technology_id,omitempty" bson:"technology_id" yaml:"technology_id,omitempty"`
	CreatedBy                 string        `json:"created_by,omitempty" bson:"created_by" yaml:"created_by,omitempty"`
	SelectedSolutionID        string        `json:"selected_solution_id,omitempty" bson:"selected_solution_id" yaml:"selected_solution_id,omitempty"`
	SelectedSolutionVariantID string        `json:"selected_solution_variant_id,omitempty" bson:"selected_solution_variant_id" yaml:"selected_solution_variant_id,omitempty"`
	Parameters                []Parameter   `json:"parameters" bson:"parameters" yaml:"parameters"`
	Calculations              []Calculation `json:"calculations" bson:"calculations" yaml:"calculations"`
	CreatedAt                 time.Time     `json:"created_at" bson:"created_at" yaml:"created_at"`
	UpdatedAt                 time.Time     `json:"updated_at" bson:"updated_at" yaml:"updated_at"`
}

// Formulas returns the calculation formulas keyed by calculation name.
// Calculations with an empty formula are left out, so references to them
// resolve as leaves. When two calculations share a name the first wins.
func (s *Solution) Formulas() formula.Map {
	m := make(formula.Map, len(s.Calculations))
	for _, c := range s.Calculations {
		if c.Formula == "" {
			continue
		}
		if _, dup := m[c.Name]; dup {
			continue
		}
		m[c.Name] = c.Formula
	}
	return m
}

// Calculation returns the calculation with the given name.
func (s *Solution) Calculation(name string) (Calculation, bool) {
	for _, c := range s.Calculations {
		if c.Name == name {
			return c, true
		}
	}
	return Calculation{}, false
}

// Parameter returns the parameter with the given name.
func (s *Solution) Parameter(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Summary is the listing view of a solution.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	IndustryID   string    `json:"industry_id,omitempty"`
	TechnologyID string    `json:"technology_id,omitempty"`
	Parameters   int       `json:"parameters"`
	Calculations int       `json:"calculations"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summarize returns the listing view of s.
func (s *Solution) Summarize() Summary {
	return Summary{
		ID:           s.ID,
		Name:         s.Name,
		Status:       s.Status,
		IndustryID:   s.IndustryID,
		TechnologyID: s.TechnologyID,
		Parameters:   len(s.Parameters),
		Calculations: len(s.Calculations),
		UpdatedAt:    s.UpdatedAt,
	}
}
