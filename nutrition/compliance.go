package nutrition

import "math"

const (
	complianceFloor       = 0.9
	overTargetCeiling     = 1.1
	balancedToleranceKcal = 200
)

// Target is what a day or period of eating is measured against.
type Target struct {
	Calories float64  `json:"calories"`
	ProteinG *float64 `json:"protein_g,omitempty"`
}

// MacroSplit is the share of macro calories from each macro, in percent.
type MacroSplit struct {
	ProteinPct int `json:"protein_pct"`
	CarbsPct   int `json:"carbs_pct"`
	FatPct     int `json:"fat_pct"`
}

// Compliance holds advisory display flags; nothing acts on them automatically.
type Compliance struct {
	HasTarget          bool       `json:"has_target"`
	CaloriePct         int        `json:"calorie_pct"`
	IsCalorieCompliant bool       `json:"is_calorie_compliant"`
	ProteinPct         int        `json:"protein_pct"`
	IsProteinCompliant bool       `json:"is_protein_compliant"`
	IsBalanced         bool       `json:"is_balanced"`
	IsOverTarget       bool       `json:"is_over_target"`
	MacroSplit         MacroSplit `json:"macro_split"`
}

// pct returns round(part/whole×100), or 0 when whole is not positive.
func pct(part, whole float64) int {
	if whole <= 0 || math.IsNaN(part) || math.IsInf(part, 0) {
		return 0
	}
	return int(math.Round(part / whole * 100))
}

// Evaluate compares actual intake with target. A non-positive calorie target
// yields HasTarget=false with zero percentages and all flags false.
func Evaluate(actual Nutrients, target Target) Compliance {
	c := Compliance{MacroSplit: SplitMacros(actual)}

	if target.ProteinG != nil && *target.ProteinG > 0 {
		c.ProteinPct = pct(actual.ProteinG, *target.ProteinG)
		c.IsProteinCompliant = actual.ProteinG >= complianceFloor**target.ProteinG
	}

	if target.Calories <= 0 {
		return c
	}
	c.HasTarget = true
	c.CaloriePct = pct(actual.Calories, target.Calories)
	c.IsCalorieCompliant = actual.Calories >= complianceFloor*target.Calories
	c.IsBalanced = math.Abs(actual.Calories-target.Calories) <= balancedToleranceKcal
	c.IsOverTarget = actual.Calories > overTargetCeiling*target.Calories
	return c
}

// SplitMacros returns each macro's share of the calories contributed by
// protein, carbs and fat.
func SplitMacros(n Nutrients) MacroSplit {
	p := n.ProteinG * kcalPerGramProtein
	c := n.CarbsG * kcalPerGramCarbs
	f := n.FatG * kcalPerGramFat
	total := p + c + f
	return MacroSplit{
		ProteinPct: pct(p, total),
		CarbsPct:   pct(c, total),
		FatPct:     pct(f, total),
	}
}
