package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lg/clinic-nutrition-api/nutrition"
)

// memCache is an in-memory planCache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]nutrition.DayPlan
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string][]nutrition.DayPlan{}} }

func (m *memCache) Get(_ context.Context, key string) ([]nutrition.DayPlan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if ok {
		m.hits++
	}
	return d, ok
}

func (m *memCache) Set(_ context.Context, key string, days []nutrition.DayPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = days
}

// newTestHandler returns a Handler with the built-in templates and a fixed clock.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	lib, err := nutrition.LoadDefaultTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	return &Handler{
		templates:   lib,
		cache:       newMemCache(),
		defaultLang: "en",
		now:         func() time.Time { return asOf },
	}
}

// fakeAuth stands in for authMiddleware.
func fakeAuth(userID int, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

/* ─── Calculator endpoints ───────────────────────────────────────────── */

func TestEstimateEnergy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)
	router := gin.New()
	router.POST("/api/nutrition/estimate", h.estimateEnergy)

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantDaily  int
	}{
		{
			name:       "complete profile",
			body:       `{"gender":"male","date_of_birth":"1996-01-01","height_cm":175,"current_weight":80,"activity_level":"moderate","goal":"lose_weight"}`,
			wantStatus: http.StatusOK,
			wantDaily:  2211,
		},
		{
			name:       "missing height",
			body:       `{"gender":"male","current_weight":80,"activity_level":"moderate"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad date",
			body:       `{"gender":"male","date_of_birth":"01/01/1996","height_cm":175,"current_weight":80,"activity_level":"moderate"}`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/api/nutrition/estimate", tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var resp estimateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.DailyCalories != tc.wantDaily {
				t.Errorf("daily = %d, want %d", resp.DailyCalories, tc.wantDaily)
			}
			if resp.Macros.ProteinG != 176 || resp.Macros.FatG != 61 || resp.Macros.CarbsG != 240 {
				t.Errorf("macros = %+v", resp.Macros)
			}
		})
	}
}

func TestEvaluateCompliance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)
	router := gin.New()
	router.POST("/api/nutrition/evaluate", h.evaluateCompliance)

	t.Run("actual totals", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/nutrition/evaluate",
			`{"actual":{"calories":1900,"protein_g":140,"carbs_g":200,"fat_g":60},"target":{"calories":2000,"protein_g":150}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Compliance nutrition.Compliance `json:"compliance"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		c := resp.Compliance
		if !c.HasTarget || c.CaloriePct != 95 || !c.IsCalorieCompliant || !c.IsBalanced || c.IsOverTarget {
			t.Errorf("compliance = %+v", c)
		}
		if c.ProteinPct != 93 || !c.IsProteinCompliant {
			t.Errorf("protein = %d%% compliant=%v", c.ProteinPct, c.IsProteinCompliant)
		}
	})

	t.Run("ingredients are aggregated", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/nutrition/evaluate",
			`{"ingredients":[{"food_name":"Rice","amount":200,"calories_per_100g":130},{"name":"Chicken","amount":100,"calories":165}],"target":{"calories":500}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Actual     nutrition.Nutrients  `json:"actual"`
			Compliance nutrition.Compliance `json:"compliance"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		// 260 + 165
		if resp.Actual.Calories != 425 {
			t.Errorf("calories = %v, want 425", resp.Actual.Calories)
		}
		if resp.Compliance.CaloriePct != 85 || resp.Compliance.IsCalorieCompliant {
			t.Errorf("compliance = %+v, want 85%% and not compliant", resp.Compliance)
		}
	})

	t.Run("thresholds use unrounded intake", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/nutrition/evaluate",
			`{"ingredients":[{"name":"Dates","amount":100,"calories":1799.6}],"target":{"calories":2000}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Actual     nutrition.Nutrients  `json:"actual"`
			Compliance nutrition.Compliance `json:"compliance"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Actual.Calories != 1800 {
			t.Errorf("displayed calories = %v, want 1800", resp.Actual.Calories)
		}
		if resp.Compliance.IsCalorieCompliant || resp.Compliance.IsBalanced {
			t.Errorf("compliance = %+v, want 1799.6 of 2000 neither compliant nor balanced", resp.Compliance)
		}
	})

	t.Run("nothing to evaluate", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/nutrition/evaluate", `{"target":{"calories":2000}}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

/* ─── Meal plans ─────────────────────────────────────────────────────── */

func TestParsePlanRequest(t *testing.T) {
	cases := []struct {
		name      string
		req       planRequest
		wantDays  int
		wantDiet  nutrition.DietType
		wantStart string
		wantErr   bool
	}{
		{"defaults", planRequest{}, defaultPlanDays, nutrition.Balanced, "2026-10-16", false},
		{"end date inclusive", planRequest{DietType: "keto", StartDate: "2026-10-01", EndDate: "2026-10-30"}, 30, nutrition.Keto, "2026-10-01", false},
		{"days", planRequest{DietType: "Mediterranean style", Days: intPtr(3)}, 3, nutrition.Mediterranean, "2026-10-16", false},
		{"too many days", planRequest{Days: intPtr(31)}, 0, "", "", true},
		{"explicit zero days", planRequest{Days: intPtr(0)}, 0, "", "", true},
		{"negative days", planRequest{Days: intPtr(-2)}, 0, "", "", true},
		{"end before start", planRequest{StartDate: "2026-10-10", EndDate: "2026-10-09"}, 0, "", "", true},
		{"31 day range", planRequest{StartDate: "2026-10-01", EndDate: "2026-10-31"}, 0, "", "", true},
		{"bad lang", planRequest{Lang: "fr"}, 0, "", "", true},
		{"bad start", planRequest{StartDate: "16-10-2026"}, 0, "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, msg := parsePlanRequest(tc.req, asOf, "en")
			if (msg != "") != tc.wantErr {
				t.Fatalf("msg = %q, wantErr %v", msg, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if p.dayCount != tc.wantDays || p.diet != tc.wantDiet || p.start.Format(time.DateOnly) != tc.wantStart {
				t.Errorf("got %d days of %s from %s", p.dayCount, p.diet, p.start.Format(time.DateOnly))
			}
		})
	}
}

func TestPreviewMealPlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)
	cache := h.cache.(*memCache)
	router := gin.New()
	router.POST("/api/meal-plans/preview", h.previewMealPlan)

	body := `{"diet_type":"high protein","start_date":"2026-10-16","days":5,"lang":"ar"}`
	w := doJSON(router, "POST", "/api/meal-plans/preview", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var view planView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.DietType != nutrition.HighProtein {
		t.Errorf("diet = %s, want high_protein", view.DietType)
	}
	if len(view.Days) != 5 {
		t.Fatalf("days = %d, want 5", len(view.Days))
	}
	for i, d := range view.Days {
		if d.Day != i+1 {
			t.Errorf("day[%d].Day = %d", i, d.Day)
		}
		if !d.Compliance.HasTarget {
			t.Errorf("day %d: expected template target", d.Day)
		}
		if d.Meals[0].ID != "day-"+strconv.Itoa(i+1)+"-meal-0" {
			t.Errorf("day %d: meal id = %s", d.Day, d.Meals[0].ID)
		}
	}

	if _, ok := cache.data["mealplan:v1:"+h.templates.Digest()+":high_protein:5:2026-10-16:ar"]; !ok {
		t.Errorf("plan not cached; keys = %v", cache.data)
	}

	// Second identical request is served from cache with the same body
	w2 := doJSON(router, "POST", "/api/meal-plans/preview", body)
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if w2.Body.String() != w.Body.String() {
		t.Error("cached response differs from generated one")
	}
}

func TestPreviewMealPlan_Invalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)
	router := gin.New()
	router.POST("/api/meal-plans/preview", h.previewMealPlan)

	w := doJSON(router, "POST", "/api/meal-plans/preview", `{"days":45}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp["error"], "30") {
		t.Errorf("error = %q, want mention of the 30 day limit", resp["error"])
	}
}

func TestBuildPlanView_PatientTarget(t *testing.T) {
	h := newTestHandler(t)
	days, err := nutrition.NewGenerator(h.templates, "en").GenerateForDiet(nutrition.Balanced, 2, asOf)
	if err != nil {
		t.Fatal(err)
	}
	view := buildPlanView(nutrition.Balanced, days, &dayTarget{Calories: 100})
	for _, d := range view.Days {
		if !d.Compliance.IsOverTarget {
			t.Errorf("day %d: expected over a 100 kcal target", d.Day)
		}
	}
	var sum float64
	for _, d := range view.Days {
		sum += d.Totals.Calories
	}
	// Per-day totals are rounded, the period total is rounded once
	if diff := sum - view.PeriodTotals.Calories; diff > 1 || diff < -1 {
		t.Errorf("period total %v far from day sum %v", view.PeriodTotals.Calories, sum)
	}
}

func TestListDietTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)
	router := gin.New()
	router.GET("/api/diet-types", h.listDietTypes)

	w := doJSON(router, "GET", "/api/diet-types", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp []dietTypeInfo
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != len(nutrition.AllDietTypes) {
		t.Errorf("diet types = %d, want %d", len(resp), len(nutrition.AllDietTypes))
	}
	for _, d := range resp {
		if d.CycleLength != len(d.Templates) || d.CycleLength < 1 || d.CycleLength > 4 {
			t.Errorf("%s: cycle length %d with %d templates", d.DietType, d.CycleLength, len(d.Templates))
		}
	}
}

func TestPickPlannedMeal(t *testing.T) {
	h := newTestHandler(t)
	days, _ := nutrition.NewGenerator(h.templates, "en").GenerateForDiet(nutrition.Keto, 3, asOf)

	day, meal, ok := pickPlannedMeal(days, 2, 1)
	if !ok {
		t.Fatal("expected day 2 meal 1")
	}
	if day.Day != 2 || meal.ID != "day-2-meal-1" {
		t.Errorf("got day %d meal %s", day.Day, meal.ID)
	}
	if meal.Type == "" {
		t.Error("meal type should never be empty")
	}

	for _, tc := range []struct{ day, idx int }{{0, 0}, {4, 0}, {1, -1}, {1, 99}} {
		if _, _, ok := pickPlannedMeal(days, tc.day, tc.idx); ok {
			t.Errorf("pickPlannedMeal(%d, %d) should fail", tc.day, tc.idx)
		}
	}
}

/* ─── Auth helpers ───────────────────────────────────────────────────── */

func TestPatientScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{}

	cases := []struct {
		name       string
		userID     int
		role       string
		path       string
		wantStatus int
	}{
		{"doctor any patient", 1, roleDoctor, "/patients/9", http.StatusOK},
		{"patient self", 9, rolePatient, "/patients/9", http.StatusOK},
		{"patient other", 8, rolePatient, "/patients/9", http.StatusForbidden},
		{"bad id", 1, roleDoctor, "/patients/abc", http.StatusBadRequest},
		{"zero id", 1, roleDoctor, "/patients/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/patients/:id", fakeAuth(tc.userID, tc.role), h.patientScope(), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"patient_id": c.GetInt("patient_id")})
			})
			w := doJSON(router, "GET", tc.path, "")
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		role string
		want int
	}{
		{roleDoctor, http.StatusNoContent},
		{rolePatient, http.StatusForbidden},
		{"", http.StatusForbidden},
	} {
		router := gin.New()
		router.GET("/x", fakeAuth(1, tc.role), requireRole(roleDoctor), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		if w := doJSON(router, "GET", "/x", ""); w.Code != tc.want {
			t.Errorf("role %q: status = %d, want %d", tc.role, w.Code, tc.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header string
		query  string
		want   string
		wantOK bool
	}{
		{"header", "Bearer abc", "", "abc", true},
		{"query", "", "?token=xyz", "xyz", true},
		{"header wins", "Bearer abc", "?token=xyz", "abc", true},
		{"wrong scheme", "Basic abc", "", "", false},
		{"missing", "", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/api/realtime"+tc.query, nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			got, ok := bearerToken(c)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("bearerToken = %q, %v; want %q, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

/* ─── Profile validation ─────────────────────────────────────────────── */

func TestValidateProfilePatch(t *testing.T) {
	s := func(v string) *string { return &v }
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		name    string
		body    patchProfileRequest
		wantErr bool
	}{
		{"empty", patchProfileRequest{}, false},
		{"valid", patchProfileRequest{Gender: s("female"), ActivityLevel: s("very_active"), Goal: s("build_muscle"), DietType: s("Keto"), DateOfBirth: s("1990-05-01"), HeightCM: f(160)}, false},
		{"bad gender", patchProfileRequest{Gender: s("other")}, true},
		{"bad activity", patchProfileRequest{ActivityLevel: s("extreme")}, true},
		{"bad goal", patchProfileRequest{Goal: s("get_big")}, true},
		{"free-text diet", patchProfileRequest{DietType: s("low carb please")}, true},
		{"bad dob", patchProfileRequest{DateOfBirth: s("1990/05/01")}, true},
		{"zero height", patchProfileRequest{HeightCM: f(0)}, true},
		{"negative weight", patchProfileRequest{CurrentWeightKG: f(-3)}, true},
		{"negative calories", patchProfileRequest{DailyCalories: intPtr(-1)}, true},
		{"clear calories", patchProfileRequest{DailyCalories: intPtr(0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := validateProfilePatch(&tc.body)
			if (msg != "") != tc.wantErr {
				t.Errorf("msg = %q, wantErr %v", msg, tc.wantErr)
			}
		})
	}
}
