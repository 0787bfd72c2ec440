package nutrition

import "testing"

func TestEvaluate(t *testing.T) {
	protein := 120.0
	cases := []struct {
		name   string
		actual Nutrients
		target Target
		want   Compliance
	}{
		{
			name:   "exactly ninety percent",
			actual: Nutrients{Calories: 1800},
			target: Target{Calories: 2000},
			want:   Compliance{HasTarget: true, CaloriePct: 90, IsCalorieCompliant: true, IsBalanced: true},
		},
		{
			name:   "just under",
			actual: Nutrients{Calories: 1799},
			target: Target{Calories: 2000},
			want:   Compliance{HasTarget: true, CaloriePct: 90, IsCalorieCompliant: false, IsBalanced: false},
		},
		{
			name:   "over target",
			actual: Nutrients{Calories: 2300},
			target: Target{Calories: 2000},
			want:   Compliance{HasTarget: true, CaloriePct: 115, IsCalorieCompliant: true, IsOverTarget: true},
		},
		{
			name:   "protein compliant",
			actual: Nutrients{Calories: 2000, ProteinG: 110},
			target: Target{Calories: 2000, ProteinG: &protein},
			want: Compliance{
				HasTarget: true, CaloriePct: 100, IsCalorieCompliant: true, IsBalanced: true,
				ProteinPct: 92, IsProteinCompliant: true,
				MacroSplit: MacroSplit{ProteinPct: 100},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.actual, tc.target); got != tc.want {
				t.Errorf("Evaluate = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// TestEvaluate_NoTarget checks that a zero or negative target never divides
// by zero and reports no target.
func TestEvaluate_NoTarget(t *testing.T) {
	for _, target := range []float64{0, -100} {
		c := Evaluate(Nutrients{Calories: 1500, ProteinG: 80}, Target{Calories: target})
		if c.HasTarget || c.CaloriePct != 0 || c.IsCalorieCompliant || c.IsBalanced || c.IsOverTarget {
			t.Errorf("target %.0f: got %+v, want no target and zero flags", target, c)
		}
	}
}

func TestSplitMacros(t *testing.T) {
	got := SplitMacros(Nutrients{ProteinG: 50, CarbsG: 100, FatG: 0})
	want := MacroSplit{ProteinPct: 33, CarbsPct: 67, FatPct: 0}
	if got != want {
		t.Errorf("SplitMacros = %+v, want %+v", got, want)
	}
	if got := SplitMacros(Nutrients{}); got != (MacroSplit{}) {
		t.Errorf("SplitMacros(zero) = %+v, want zero", got)
	}
}
