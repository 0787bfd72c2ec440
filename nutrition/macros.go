package nutrition

import "math"

const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

var proteinPerKg = map[string]float64{
	"lose_weight":     2.2,
	"maintain_weight": 1.6,
	"gain_weight":     1.8,
	"build_muscle":    2.0,
	"improve_health":  1.8,
}

var fatShare = map[string]float64{
	"lose_weight":     0.25,
	"maintain_weight": 0.30,
	"gain_weight":     0.35,
	"build_muscle":    0.25,
	"improve_health":  0.30,
}

// MacroTargets are daily gram targets derived from a calorie target.
// Overallocated is set when protein and fat alone exceed the calorie target;
// carbs are then clamped to 0 instead of going negative.
type MacroTargets struct {
	ProteinG      int  `json:"protein_g"`
	CarbsG        int  `json:"carbs_g"`
	FatG          int  `json:"fat_g"`
	Overallocated bool `json:"overallocated,omitempty"`
}

// AllocateMacros splits dailyCalories into protein, fat and carb grams for goal.
// Unknown goals use the maintain_weight ratios.
func AllocateMacros(dailyCalories int, goal string, currentWeightKG float64) MacroTargets {
	perKg, ok := proteinPerKg[goal]
	if !ok {
		perKg = 1.6
	}
	share, ok := fatShare[goal]
	if !ok {
		share = 0.30
	}

	protein := int(math.Round(currentWeightKG * perKg))
	fat := int(math.Round(float64(dailyCalories) * share / kcalPerGramFat))
	remaining := dailyCalories - protein*kcalPerGramProtein - fat*kcalPerGramFat
	carbs := int(math.Round(float64(remaining) / kcalPerGramCarbs))

	t := MacroTargets{ProteinG: protein, CarbsG: carbs, FatG: fat}
	if carbs < 0 {
		t.CarbsG = 0
		t.Overallocated = true
	}
	return t
}
