package nutrition

import "testing"

func intPtr(v int) *int { return &v }

func TestResolveDailyCalories(t *testing.T) {
	est := &EnergyEstimate{BMR: 1749, TDEE: 2711, DailyCalories: 2211}
	cases := []struct {
		name     string
		api      *int
		computed *EnergyEstimate
		stored   *int
		want     CalorieResolution
		wantOK   bool
	}{
		{"api wins", intPtr(1900), est, intPtr(1800), CalorieResolution{1900, SourceAPI}, true},
		{"zero api skipped", intPtr(0), est, intPtr(1800), CalorieResolution{2211, SourceComputed}, true},
		{"computed before stored", nil, est, intPtr(1800), CalorieResolution{2211, SourceComputed}, true},
		{"stored last", nil, nil, intPtr(1800), CalorieResolution{1800, SourceStored}, true},
		{"nothing", nil, nil, intPtr(-5), CalorieResolution{0, SourceUnavailable}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveDailyCalories(tc.api, tc.computed, tc.stored)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("got %+v/%v, want %+v/%v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
