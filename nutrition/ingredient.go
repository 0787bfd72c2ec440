package nutrition

import "math"

// Nutrients is a bundle of energy and macro quantities. Depending on context
// it holds per-100g values or absolute totals.
type Nutrients struct {
	Calories float64 `json:"calories" yaml:"calories"`
	ProteinG float64 `json:"protein_g" yaml:"protein"`
	CarbsG   float64 `json:"carbs_g" yaml:"carbs"`
	FatG     float64 `json:"fat_g" yaml:"fat"`
	FiberG   float64 `json:"fiber_g" yaml:"fiber"`
}

// Add returns the field-wise sum of n and o.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Calories: n.Calories + o.Calories,
		ProteinG: n.ProteinG + o.ProteinG,
		CarbsG:   n.CarbsG + o.CarbsG,
		FatG:     n.FatG + o.FatG,
		FiberG:   n.FiberG + o.FiberG,
	}
}

// Scale multiplies every field by f.
func (n Nutrients) Scale(f float64) Nutrients {
	return Nutrients{
		Calories: n.Calories * f,
		ProteinG: n.ProteinG * f,
		CarbsG:   n.CarbsG * f,
		FatG:     n.FatG * f,
		FiberG:   n.FiberG * f,
	}
}

// Rounded applies the presentation rounding: calories to the nearest integer,
// gram quantities to the nearest 0.1 g.
func (n Nutrients) Rounded() Nutrients {
	return Nutrients{
		Calories: math.Round(n.Calories),
		ProteinG: roundTenth(n.ProteinG),
		CarbsG:   roundTenth(n.CarbsG),
		FatG:     roundTenth(n.FatG),
		FiberG:   roundTenth(n.FiberG),
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// nonNegative zeroes any negative field so bad upstream data can't subtract
// from a total.
func (n Nutrients) nonNegative() Nutrients {
	return Nutrients{
		Calories: math.Max(n.Calories, 0),
		ProteinG: math.Max(n.ProteinG, 0),
		CarbsG:   math.Max(n.CarbsG, 0),
		FatG:     math.Max(n.FatG, 0),
		FiberG:   math.Max(n.FiberG, 0),
	}
}

// Ingredient is the canonical ingredient: an amount in grams and the food's
// per-100g nutrient values.
type Ingredient struct {
	Name    string    `json:"name"`
	NameAr  string    `json:"name_ar,omitempty"`
	AmountG float64   `json:"amount"`
	Per100g Nutrients `json:"per_100g"`
}

// Contribution is the nutrient amount this ingredient adds to a meal:
// per-100g value × amount / 100. Amounts ≤ 0 contribute nothing.
func (i Ingredient) Contribution() Nutrients {
	if i.AmountG <= 0 {
		return Nutrients{}
	}
	return i.Per100g.nonNegative().Scale(i.AmountG / 100)
}

// Aggregate sums the contributions of ingredients. The result is unrounded;
// call Rounded for display.
func Aggregate(ingredients []Ingredient) Nutrients {
	var total Nutrients
	for _, ing := range ingredients {
		total = total.Add(ing.Contribution())
	}
	return total
}

// Meal is a named, ordered list of ingredients.
type Meal struct {
	Name        string       `json:"name"`
	NameAr      string       `json:"name_ar,omitempty"`
	Type        MealType     `json:"meal_type,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Totals aggregates the meal's ingredients.
func (m Meal) Totals() Nutrients {
	return Aggregate(m.Ingredients)
}

// NutritionSummary pairs actual totals with the calorie target they are
// measured against.
type NutritionSummary struct {
	Nutrients
	TargetCalories float64 `json:"target_calories"`
}
