package nutrition

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxPlanDays is the longest meal plan period that can be generated.
const MaxPlanDays = 30

// ErrInvalidRange is wrapped by every plan period validation failure.
var ErrInvalidRange = errors.New("invalid plan range")

// ValidationError carries a user-facing message for a rejected request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidRange }

// CalendarDate is a date without a time of day; it serializes as "YYYY-MM-DD".
type CalendarDate struct{ time.Time }

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(time.DateOnly) + `"`), nil
}

func (d *CalendarDate) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+time.DateOnly+`"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d CalendarDate) String() string {
	return d.Time.Format(time.DateOnly)
}

// startOfDay drops the clock part of t, keeping its calendar day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PlannedMeal is a template meal stamped with a stable id for one plan day.
type PlannedMeal struct {
	ID string `json:"id"`
	Meal
}

// DayPlan is one day of a generated meal plan.
type DayPlan struct {
	Day            int           `json:"day"`
	Date           CalendarDate  `json:"date"`
	DisplayDate    string        `json:"display_date"`
	TemplateName   string        `json:"template_name"`
	TargetCalories int           `json:"target_calories"`
	Meals          []PlannedMeal `json:"meals"`
}

// Totals aggregates every meal of the day.
func (d DayPlan) Totals() Nutrients {
	var total Nutrients
	for _, m := range d.Meals {
		total = total.Add(m.Totals())
	}
	return total
}

// PeriodTotals aggregates every day of a plan.
func PeriodTotals(days []DayPlan) Nutrients {
	var total Nutrients
	for _, d := range days {
		total = total.Add(d.Totals())
	}
	return total
}

// ValidateDayCount rejects day counts outside [1, MaxPlanDays].
func ValidateDayCount(dayCount int) error {
	if dayCount < 1 {
		return &ValidationError{Msg: "day count must be at least 1"}
	}
	if dayCount > MaxPlanDays {
		return &ValidationError{Msg: fmt.Sprintf("day count must not exceed %d", MaxPlanDays)}
	}
	return nil
}

// PeriodDays returns the inclusive number of calendar days from start to end.
func PeriodDays(start, end time.Time) (int, error) {
	s, e := startOfDay(start), startOfDay(end)
	if e.Before(s) {
		return 0, &ValidationError{Msg: "end date must not be before start date"}
	}
	days := int(math.Ceil(e.Sub(s).Hours()/24)) + 1
	if err := ValidateDayCount(days); err != nil {
		return 0, err
	}
	return days, nil
}

// Generator stamps template cycles onto calendar days.
type Generator struct {
	lib  *TemplateLibrary
	lang string
}

// NewGenerator returns a generator over lib whose display dates use lang
// ("en" or "ar"; anything else falls back to English).
func NewGenerator(lib *TemplateLibrary, lang string) *Generator {
	return &Generator{lib: lib, lang: lang}
}

// Generate resolves label to a diet type and builds dayCount days starting
// at start. Output is fully determined by the arguments.
func (g *Generator) Generate(label string, dayCount int, start time.Time) ([]DayPlan, error) {
	return g.GenerateForDiet(ResolveDietType(label), dayCount, start)
}

// GenerateForDiet builds dayCount days for diet. Day i uses template
// (i-1) mod len(templates).
func (g *Generator) GenerateForDiet(diet DietType, dayCount int, start time.Time) ([]DayPlan, error) {
	if err := ValidateDayCount(dayCount); err != nil {
		return nil, err
	}
	templates := g.lib.Templates(diet)
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates for diet %s", diet)
	}

	first := startOfDay(start)
	days := make([]DayPlan, 0, dayCount)
	for i := 1; i <= dayCount; i++ {
		t := templates[(i-1)%len(templates)]
		date := first.AddDate(0, 0, i-1)

		meals := make([]PlannedMeal, len(t.Meals))
		for mi, m := range t.Meals {
			m.Ingredients = append([]Ingredient(nil), m.Ingredients...)
			meals[mi] = PlannedMeal{ID: fmt.Sprintf("day-%d-meal-%d", i, mi), Meal: m}
		}

		name := t.Name
		if resolveLang(g.lang) == langArabic && t.NameAr != "" {
			name = t.NameAr
		}
		days = append(days, DayPlan{
			Day:            i,
			Date:           CalendarDate{date},
			DisplayDate:    FormatLongDate(date, g.lang),
			TemplateName:   name,
			TargetCalories: t.TargetCalories,
			Meals:          meals,
		})
	}
	return days, nil
}
