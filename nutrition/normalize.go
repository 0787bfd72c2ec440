package nutrition

import "strings"

// RawIngredient accepts both ingredient shapes the backend emits: pre-scaled
// totals for the given amount (calories, protein, ...) and per-100g values
// from the meal suggestion endpoint (calories_per_100g, ...). Absent numbers
// are treated as 0.
type RawIngredient struct {
	FoodName   string `json:"food_name,omitempty"`
	FoodNameAr string `json:"food_name_ar,omitempty"`
	Name       string `json:"name,omitempty"`

	Amount *float64 `json:"amount,omitempty"`

	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
	Fiber    *float64 `json:"fiber,omitempty"`

	CaloriesPer100g *float64 `json:"calories_per_100g,omitempty"`
	ProteinPer100g  *float64 `json:"protein_per_100g,omitempty"`
	CarbsPer100g    *float64 `json:"carbs_per_100g,omitempty"`
	FatPer100g      *float64 `json:"fat_per_100g,omitempty"`
	FiberPer100g    *float64 `json:"fiber_per_100g,omitempty"`
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// isPer100g reports whether any per-100g field is present.
func (r RawIngredient) isPer100g() bool {
	return r.CaloriesPer100g != nil || r.ProteinPer100g != nil || r.CarbsPer100g != nil ||
		r.FatPer100g != nil || r.FiberPer100g != nil
}

// Normalize maps r onto the canonical Ingredient. Pre-scaled values are
// converted back to per-100g using the amount; without a positive amount the
// ingredient contributes nothing.
func (r RawIngredient) Normalize() Ingredient {
	ing := Ingredient{
		Name:    firstNonEmpty(r.FoodName, r.Name, r.FoodNameAr),
		NameAr:  firstNonEmpty(r.FoodNameAr, r.FoodName, r.Name),
		AmountG: val(r.Amount),
	}

	if r.isPer100g() {
		ing.Per100g = Nutrients{
			Calories: val(r.CaloriesPer100g),
			ProteinG: val(r.ProteinPer100g),
			CarbsG:   val(r.CarbsPer100g),
			FatG:     val(r.FatPer100g),
			FiberG:   val(r.FiberPer100g),
		}
		return ing
	}

	if ing.AmountG > 0 {
		scaled := Nutrients{
			Calories: val(r.Calories),
			ProteinG: val(r.Protein),
			CarbsG:   val(r.Carbs),
			FatG:     val(r.Fat),
			FiberG:   val(r.Fiber),
		}
		ing.Per100g = scaled.Scale(100 / ing.AmountG)
	}
	return ing
}

// DisplayName picks the ingredient name for lang ("ar" prefers the Arabic
// name).
func (i Ingredient) DisplayName(lang string) string {
	if resolveLang(lang) == langArabic {
		return firstNonEmpty(i.NameAr, i.Name)
	}
	return firstNonEmpty(i.Name, i.NameAr)
}

// RawMeal is a meal as it arrives from the backend.
type RawMeal struct {
	MealType    string          `json:"meal_type,omitempty"`
	Name        string          `json:"name,omitempty"`
	NameAr      string          `json:"name_ar,omitempty"`
	Ingredients []RawIngredient `json:"ingredients"`
}

// Normalize converts the meal and its ingredients. An explicit meal_type tag
// wins; otherwise the type is derived from the meal name.
func (r RawMeal) Normalize() Meal {
	m := Meal{
		Name:        firstNonEmpty(r.Name, r.NameAr),
		NameAr:      firstNonEmpty(r.NameAr, r.Name),
		Ingredients: make([]Ingredient, 0, len(r.Ingredients)),
	}
	if t, ok := ParseMealType(r.MealType); ok {
		m.Type = t
	} else if t, ok := ClassifyMealType(m.Name + " " + m.NameAr); ok {
		m.Type = t
	}
	for _, ri := range r.Ingredients {
		m.Ingredients = append(m.Ingredients, ri.Normalize())
	}
	return m
}
