package nutrition

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-yaml"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

const maxTemplatesPerDiet = 4

// Food is one row of the food nutrient table.
type Food struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	NameAr  string    `json:"name_ar,omitempty"`
	Per100g Nutrients `json:"per_100g"`
}

// MealTemplate is a pre-authored set of meals for one day.
type MealTemplate struct {
	Name           string `json:"name"`
	NameAr         string `json:"name_ar,omitempty"`
	TargetCalories int    `json:"target_calories"`
	Meals          []Meal `json:"meals"`
}

// Totals sums every meal in the template.
func (t MealTemplate) Totals() Nutrients {
	var total Nutrients
	for _, m := range t.Meals {
		total = total.Add(m.Totals())
	}
	return total
}

// TemplateLibrary holds the food table and the ordered template cycle of
// every diet type. It is immutable once loaded.
type TemplateLibrary struct {
	foods     map[string]Food
	templates map[DietType][]MealTemplate
	digest    string
}

/* ─── File format ────────────────────────────────────────────────────── */

type foodEntry struct {
	Name      string `yaml:"name"`
	NameAr    string `yaml:"name_ar"`
	Nutrients `yaml:",inline"`
}

type ingredientEntry struct {
	Food   string  `yaml:"food"`
	Amount float64 `yaml:"amount"`
}

type mealEntry struct {
	Name        string            `yaml:"name"`
	NameAr      string            `yaml:"name_ar"`
	MealType    string            `yaml:"meal_type"`
	Ingredients []ingredientEntry `yaml:"ingredients"`
}

type templateEntry struct {
	Name           string      `yaml:"name"`
	NameAr         string      `yaml:"name_ar"`
	TargetCalories int         `yaml:"target_calories"`
	Meals          []mealEntry `yaml:"meals"`
}

type templateFile struct {
	Foods map[string]foodEntry       `yaml:"foods"`
	Diets map[string][]templateEntry `yaml:"diets"`
}

/* ─── Loading ────────────────────────────────────────────────────────── */

// LoadDefaultTemplates parses the template file compiled into the binary.
func LoadDefaultTemplates() (*TemplateLibrary, error) {
	return LoadTemplates(bytes.NewReader(defaultTemplatesYAML))
}

// LoadTemplates parses a template file. Every diet type must have between 1
// and 4 templates and every ingredient must reference a known food with a
// positive amount.
func LoadTemplates(r io.Reader) (*TemplateLibrary, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var f templateFile
	if err := yaml.NewDecoder(bytes.NewReader(src), yaml.DisallowUnknownField()).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	sum := sha256.Sum256(src)
	lib := &TemplateLibrary{
		foods:     make(map[string]Food, len(f.Foods)),
		templates: make(map[DietType][]MealTemplate, len(f.Diets)),
		digest:    hex.EncodeToString(sum[:6]),
	}
	for key, fe := range f.Foods {
		lib.foods[key] = Food{Key: key, Name: fe.Name, NameAr: fe.NameAr, Per100g: fe.Nutrients}
	}

	for label, entries := range f.Diets {
		diet, ok := ParseDietType(label)
		if !ok {
			return nil, fmt.Errorf("unknown diet type %q", label)
		}
		if len(entries) == 0 || len(entries) > maxTemplatesPerDiet {
			return nil, fmt.Errorf("diet %s: expected 1-%d templates, got %d", diet, maxTemplatesPerDiet, len(entries))
		}
		templates := make([]MealTemplate, 0, len(entries))
		for _, te := range entries {
			t, err := lib.buildTemplate(te)
			if err != nil {
				return nil, fmt.Errorf("diet %s: %w", diet, err)
			}
			templates = append(templates, t)
		}
		lib.templates[diet] = templates
	}

	for _, d := range AllDietTypes {
		if len(lib.templates[d]) == 0 {
			return nil, fmt.Errorf("diet %s has no templates", d)
		}
	}
	return lib, nil
}

func (lib *TemplateLibrary) buildTemplate(te templateEntry) (MealTemplate, error) {
	t := MealTemplate{
		Name:           te.Name,
		NameAr:         te.NameAr,
		TargetCalories: te.TargetCalories,
		Meals:          make([]Meal, 0, len(te.Meals)),
	}
	if len(te.Meals) == 0 {
		return t, fmt.Errorf("template %q has no meals", te.Name)
	}
	for _, me := range te.Meals {
		m := Meal{Name: me.Name, NameAr: me.NameAr}
		if mt, ok := ParseMealType(me.MealType); ok {
			m.Type = mt
		} else if mt, ok := ClassifyMealType(me.Name + " " + me.NameAr); ok {
			m.Type = mt
		}
		for _, ie := range me.Ingredients {
			food, ok := lib.foods[ie.Food]
			if !ok {
				return t, fmt.Errorf("template %q meal %q: unknown food %q", te.Name, me.Name, ie.Food)
			}
			if ie.Amount <= 0 {
				return t, fmt.Errorf("template %q meal %q: amount for %q must be positive", te.Name, me.Name, ie.Food)
			}
			m.Ingredients = append(m.Ingredients, Ingredient{
				Name:    food.Name,
				NameAr:  food.NameAr,
				AmountG: ie.Amount,
				Per100g: food.Per100g,
			})
		}
		t.Meals = append(t.Meals, m)
	}
	return t, nil
}

/* ─── Lookup ─────────────────────────────────────────────────────────── */

// Digest is a short hash of the source the library was loaded from. It
// changes whenever the template file does.
func (lib *TemplateLibrary) Digest() string {
	return lib.digest
}

// Templates returns the ordered template cycle for diet. The slice must not
// be modified.
func (lib *TemplateLibrary) Templates(diet DietType) []MealTemplate {
	return lib.templates[diet]
}

// DietTypes returns the diet types that have templates, in resolution
// priority order.
func (lib *TemplateLibrary) DietTypes() []DietType {
	out := make([]DietType, 0, len(lib.templates))
	for _, d := range AllDietTypes {
		if len(lib.templates[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Food looks up a food by key.
func (lib *TemplateLibrary) Food(key string) (Food, bool) {
	f, ok := lib.foods[key]
	return f, ok
}

// Foods returns the food table sorted by key.
func (lib *TemplateLibrary) Foods() []Food {
	out := make([]Food, 0, len(lib.foods))
	for _, f := range lib.foods {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
