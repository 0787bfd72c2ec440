package nutrition

import (
	"strings"
	"testing"
)

func TestLoadDefaultTemplates(t *testing.T) {
	lib, err := LoadDefaultTemplates()
	if err != nil {
		t.Fatalf("LoadDefaultTemplates: %v", err)
	}
	if got := len(lib.DietTypes()); got != len(AllDietTypes) {
		t.Errorf("DietTypes() has %d entries, want %d", got, len(AllDietTypes))
	}
	for _, d := range AllDietTypes {
		ts := lib.Templates(d)
		if len(ts) < 1 || len(ts) > 4 {
			t.Errorf("diet %s has %d templates, want 1-4", d, len(ts))
		}
		for _, tmpl := range ts {
			if tmpl.TargetCalories <= 0 {
				t.Errorf("%s: target calories %d", tmpl.Name, tmpl.TargetCalories)
			}
			for _, m := range tmpl.Meals {
				if m.Type == "" {
					t.Errorf("%s/%s has no meal type", tmpl.Name, m.Name)
				}
				if len(m.Ingredients) == 0 {
					t.Errorf("%s/%s has no ingredients", tmpl.Name, m.Name)
				}
			}
		}
	}
}

func TestTemplateLibraryDigest(t *testing.T) {
	a, err := LoadDefaultTemplates()
	if err != nil {
		t.Fatal(err)
	}
	b, err := LoadTemplates(strings.NewReader(string(defaultTemplatesYAML)))
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest() == "" || a.Digest() != b.Digest() {
		t.Errorf("digests = %q/%q, want equal and non-empty", a.Digest(), b.Digest())
	}

	edited, err := LoadTemplates(strings.NewReader(string(defaultTemplatesYAML) + "\n# edited\n"))
	if err != nil {
		t.Fatal(err)
	}
	if edited.Digest() == a.Digest() {
		t.Error("digest unchanged after editing the template source")
	}
}

func TestFoods_Sorted(t *testing.T) {
	lib, err := LoadDefaultTemplates()
	if err != nil {
		t.Fatal(err)
	}
	foods := lib.Foods()
	for i := 1; i < len(foods); i++ {
		if foods[i-1].Key >= foods[i].Key {
			t.Fatalf("Foods() not sorted at %d: %q >= %q", i, foods[i-1].Key, foods[i].Key)
		}
	}
	if f, ok := lib.Food("eggs"); !ok || f.Per100g.Calories != 155 {
		t.Errorf("Food(eggs) = %+v/%v", f, ok)
	}
}

func TestLoadTemplates_Errors(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown food",
			yaml: `
foods:
  eggs: {name: Eggs, calories: 155, protein: 13, carbs: 1.1, fat: 11, fiber: 0}
diets:
  balanced:
    - name: Day 1
      target_calories: 2000
      meals:
        - name: Breakfast
          ingredients:
            - {food: bacon, amount: 50}
`,
			wantErr: `unknown food "bacon"`,
		},
		{
			name: "non-positive amount",
			yaml: `
foods:
  eggs: {name: Eggs, calories: 155, protein: 13, carbs: 1.1, fat: 11, fiber: 0}
diets:
  balanced:
    - name: Day 1
      target_calories: 2000
      meals:
        - name: Breakfast
          ingredients:
            - {food: eggs, amount: 0}
`,
			wantErr: "must be positive",
		},
		{
			name: "unknown diet label",
			yaml: `
foods: {}
diets:
  paleo:
    - name: Day 1
`,
			wantErr: `unknown diet type "paleo"`,
		},
		{
			name: "missing diets",
			yaml: `
foods:
  eggs: {name: Eggs, calories: 155, protein: 13, carbs: 1.1, fat: 11, fiber: 0}
diets:
  balanced:
    - name: Day 1
      target_calories: 2000
      meals:
        - name: Breakfast
          ingredients:
            - {food: eggs, amount: 100}
`,
			wantErr: "has no templates",
		},
		{
			name: "unknown field",
			yaml: `
foods:
  eggs: {name: Eggs, calories: 155, sugar: 1}
diets: {}
`,
			wantErr: "decode templates",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTemplates(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}
