package nutrition

import "strings"

// MealType classifies a meal within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

var mealTypeKeywords = []struct {
	t        MealType
	keywords []string
}{
	{Breakfast, []string{"breakfast", "فطور", "إفطار", "افطار"}},
	{Lunch, []string{"lunch", "غداء", "غذاء"}},
	{Dinner, []string{"dinner", "supper", "عشاء"}},
	{Snack, []string{"snack", "سناك", "وجبة خفيفة"}},
}

// ParseMealType accepts an explicit meal type tag.
func ParseMealType(s string) (MealType, bool) {
	switch t := MealType(strings.ToLower(strings.TrimSpace(s))); t {
	case Breakfast, Lunch, Dinner, Snack:
		return t, true
	}
	return "", false
}

// ClassifyMealType derives the meal type from a meal name by keyword match.
func ClassifyMealType(name string) (MealType, bool) {
	lower := strings.ToLower(name)
	for _, mk := range mealTypeKeywords {
		for _, kw := range mk.keywords {
			if strings.Contains(lower, kw) {
				return mk.t, true
			}
		}
	}
	return "", false
}

// DietType is a named nutritional policy governing template selection.
type DietType string

const (
	Mediterranean DietType = "mediterranean"
	Keto          DietType = "keto"
	HighProtein   DietType = "high_protein"
	Balanced      DietType = "balanced"
	WeightLoss    DietType = "weight_loss"
	WeightGain    DietType = "weight_gain"
	LowCarb       DietType = "low_carb"
	Diabetic      DietType = "diabetic"
)

// AllDietTypes lists every diet type in resolution priority order.
var AllDietTypes = []DietType{Keto, Mediterranean, LowCarb, Diabetic, HighProtein, WeightLoss, WeightGain, Balanced}

// dietKeywords is checked in AllDietTypes order; the first hit wins.
var dietKeywords = map[DietType][]string{
	Keto:          {"keto", "كيتو"},
	Mediterranean: {"mediterranean", "البحر الأبيض المتوسط", "البحر المتوسط"},
	LowCarb:       {"low_carb", "low carb", "low-carb", "قليل الكربوهيدرات", "منخفض الكربوهيدرات"},
	Diabetic:      {"diabetic", "diabetes", "سكري"},
	HighProtein:   {"high_protein", "high protein", "high-protein", "بروتين عالي", "عالي البروتين"},
	WeightLoss:    {"weight_loss", "weight loss", "lose weight", "تخسيس", "إنقاص الوزن", "انقاص الوزن", "رجيم"},
	WeightGain:    {"weight_gain", "weight gain", "gain weight", "bulk", "زيادة الوزن"},
	Balanced:      {"balanced", "متوازن"},
}

// ParseDietType accepts an explicit diet type tag (case-insensitive).
func ParseDietType(tag string) (DietType, bool) {
	d := DietType(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := dietKeywords[d]; ok {
		return d, true
	}
	return "", false
}

// ResolveDietType maps a free-text label onto a diet type. Explicit tags are
// taken as-is; anything else goes through the legacy keyword matcher, and
// unmatched input falls back to Balanced.
func ResolveDietType(label string) DietType {
	if d, ok := ParseDietType(label); ok {
		return d
	}
	lower := strings.ToLower(label)
	for _, d := range AllDietTypes {
		for _, kw := range dietKeywords[d] {
			if strings.Contains(lower, kw) {
				return d
			}
		}
	}
	return Balanced
}
