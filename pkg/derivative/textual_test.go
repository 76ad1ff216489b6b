package derivative

import "testing"

func TestDifferentiate(t *testing.T) {
	tests := []struct {
		expr, v string
		want    string
	}{
		{"x", "x", "1"},
		{"y", "x", "0"},
		{"x*y", "x", "y"},
		{"x * y", "y", "x"},
		{"x*x", "x", "x + x"},
		{"a*x + b", "x", "a"},
		{"x - y*x", "x", "1 - y"},
		{"Revenue - Cost", "Cost", "-1"},
		{"-x", "x", "-1"},
		{"+x", "x", "1"},
		{"(x)", "x", "1"},
		{"2*(x+y)", "x", "2"},
		{"a*b*(x+1)", "x", "a*b"},
		{"a*b*(x+y*x)", "x", "a*b * (1 + y)"},
		{"(x+1)*(x-1)", "x", "(x+1) + (x-1)"},
		{"(x+1)/2", "x", "d((x+1)/2)/d(x)"},
		{"x^2", "x", "d(x^2)/d(x)"},
		{"x ** 2", "x", "d(x**2)/d(x)"},
		{"Rate_x + x", "x", "1"},
		{"Rate_x * 2", "x", "0"},
		{"1e-5*x", "x", "1e-5"},
		{"a - (x + b)", "x", "-1"},
		{"y - x*(z + w)", "x", "-(z+w)"},
		{"x", "", "0"},
		{"Rate2*x", "Rate", "0"},
		{"x*(y+x)", "x", "x + (y+x)"},
		{"(x+1)^2", "x", "d((x+1)^2)/d(x)"},
		{"(a+x)/(b+x)", "x", "d((a+x)/(b+x))/d(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr+"/"+tt.v, func(t *testing.T) {
			if got := Differentiate(tt.expr, tt.v); got != tt.want {
				t.Errorf("Differentiate(%q, %q) = %q, want %q", tt.expr, tt.v, got, tt.want)
			}
		})
	}
}

func TestDifferentiateTotalCost(t *testing.T) {
	const expr = "(Capex + Opex) * (1 + Inflation_Rate)"
	tests := map[string]string{
		"Capex":          "(1+Inflation_Rate)",
		"Opex":           "(1+Inflation_Rate)",
		"Inflation_Rate": "(Capex+Opex)",
		"Other":          "0",
	}
	for v, want := range tests {
		if got := Differentiate(expr, v); got != want {
			t.Errorf("Differentiate(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestAdditiveSplits(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"a+b", 1},
		{"-a+b", 1},
		{"a*-b", 0},
		{"(a+b)", 0},
		{"a-(b+c)-d", 2},
		{"1e+5+x", 1},
		{"Rate-5", 1},
	}
	for _, tt := range tests {
		if got := len(additiveSplits(tt.in)); got != tt.want {
			t.Errorf("additiveSplits(%q) = %d splits, want %d", tt.in, got, tt.want)
		}
	}
}

func TestContainsIdent(t *testing.T) {
	tests := []struct {
		s, name string
		want    bool
	}{
		{"x+y", "x", true},
		{"xy+y", "x", false},
		{"ax+x", "x", true},
		{"Opex*2", "Op", false},
		{"(Opex)", "Opex", true},
	}
	for _, tt := range tests {
		if got := containsIdent(tt.s, tt.name); got != tt.want {
			t.Errorf("containsIdent(%q, %q) = %v, want %v", tt.s, tt.name, got, tt.want)
		}
	}
}
