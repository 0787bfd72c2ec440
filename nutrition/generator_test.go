package nutrition

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestGenerator(t *testing.T, lang string) *Generator {
	t.Helper()
	lib, err := LoadDefaultTemplates()
	if err != nil {
		t.Fatalf("LoadDefaultTemplates: %v", err)
	}
	return NewGenerator(lib, lang)
}

var planStart = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func TestGenerate_Shape(t *testing.T) {
	g := newTestGenerator(t, "en")
	days, err := g.Generate("keto", 5, planStart)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(days) != 5 {
		t.Fatalf("got %d days, want 5", len(days))
	}
	for i, d := range days {
		if d.Day != i+1 {
			t.Errorf("days[%d].Day = %d", i, d.Day)
		}
		wantDate := time.Date(2026, 10, 16+i, 0, 0, 0, 0, time.UTC)
		if !d.Date.Equal(wantDate) {
			t.Errorf("day %d date = %s, want %s", d.Day, d.Date, wantDate.Format(time.DateOnly))
		}
	}
	if days[0].DisplayDate != "Friday, October 16, 2026" {
		t.Errorf("DisplayDate = %q", days[0].DisplayDate)
	}
	if days[0].Meals[0].ID != "day-1-meal-0" || days[4].Meals[3].ID != "day-5-meal-3" {
		t.Errorf("unexpected meal ids %q, %q", days[0].Meals[0].ID, days[4].Meals[3].ID)
	}
}

// TestGenerate_Cycles checks that day i uses template (i-1) mod n.
func TestGenerate_Cycles(t *testing.T) {
	g := newTestGenerator(t, "en")
	ts := g.lib.Templates(Keto)
	days, err := g.Generate("keto", 7, planStart)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range days {
		want := ts[(d.Day-1)%len(ts)].Name
		if d.TemplateName != want {
			t.Errorf("day %d template = %q, want %q", d.Day, d.TemplateName, want)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newTestGenerator(t, "ar")
	a, err := g.Generate("نظام كيتو دايت", 30, planStart)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Generate("نظام كيتو دايت", 30, planStart)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Error("two calls with the same arguments produced different plans")
	}
}

// TestGenerate_Independent checks that editing one generated day does not
// leak into the template library or other days.
func TestGenerate_Independent(t *testing.T) {
	g := newTestGenerator(t, "en")
	days, err := g.Generate("keto", 3, planStart)
	if err != nil {
		t.Fatal(err)
	}
	want := days[2].Meals[0].Ingredients[0].AmountG
	days[0].Meals[0].Ingredients[0].AmountG = 9999
	if got := days[2].Meals[0].Ingredients[0].AmountG; got != want {
		t.Errorf("day 3 amount changed to %v", got)
	}
	if got := g.lib.Templates(Keto)[0].Meals[0].Ingredients[0].AmountG; got == 9999 {
		t.Error("template library was modified")
	}
}

func TestGenerate_DayCountBounds(t *testing.T) {
	g := newTestGenerator(t, "en")
	for _, n := range []int{0, -1, MaxPlanDays + 1} {
		if _, err := g.Generate("balanced", n, planStart); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Generate(%d days) err = %v, want ErrInvalidRange", n, err)
		}
	}
	for _, n := range []int{1, MaxPlanDays} {
		if _, err := g.Generate("balanced", n, planStart); err != nil {
			t.Errorf("Generate(%d days): %v", n, err)
		}
	}
}

func TestGenerate_ArabicTemplateName(t *testing.T) {
	g := newTestGenerator(t, "ar")
	days, err := g.Generate("keto", 1, planStart)
	if err != nil {
		t.Fatal(err)
	}
	if days[0].TemplateName != "كيتو - اليوم 1" {
		t.Errorf("TemplateName = %q", days[0].TemplateName)
	}
}

func TestPeriodDays(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		end     time.Time
		want    int
		wantErr bool
	}{
		{"same day", start, 1, false},
		{"same day later hour", start.Add(20 * time.Hour), 1, false},
		{"thirty days", time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC), 30, false},
		{"thirty one days", time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC), 0, true},
		{"end before start", time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PeriodDays(start, tc.end)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Errorf("err = %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("PeriodDays = %d, %v; want %d", got, err, tc.want)
			}
		})
	}
}

func TestPeriodTotals(t *testing.T) {
	g := newTestGenerator(t, "en")
	days, err := g.Generate("balanced", 3, planStart)
	if err != nil {
		t.Fatal(err)
	}
	var sum Nutrients
	for _, d := range days {
		sum = sum.Add(d.Totals())
	}
	if !nearlyEqual(PeriodTotals(days), sum) {
		t.Errorf("PeriodTotals = %+v, want %+v", PeriodTotals(days), sum)
	}
}
