package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"lg/clinic-nutrition-api/nutrition"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(time.DateOnly) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+time.DateOnly+`"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

const (
	roleDoctor  = "doctor"
	rolePatient = "patient"
)

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	Role      string     `json:"role" db:"role"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// patientProfile maps to patient_profiles. One row per patient; every body
// field is nullable because intake happens over several visits.
type patientProfile struct {
	UserID          int       `json:"user_id"          db:"user_id"`
	FullName        *string   `json:"full_name"        db:"full_name"`
	Gender          *string   `json:"gender"           db:"gender"`
	DateOfBirth     *DateOnly `json:"date_of_birth"    db:"date_of_birth"`
	HeightCM        *float64  `json:"height_cm"        db:"height_cm"`
	CurrentWeightKG *float64  `json:"current_weight"   db:"current_weight"`
	TargetWeightKG  *float64  `json:"target_weight"    db:"target_weight"`
	ActivityLevel   *string   `json:"activity_level"   db:"activity_level"`
	Goal            *string   `json:"goal"             db:"goal"`
	DietType        *string   `json:"diet_type"        db:"diet_type"`
	Notes           *string   `json:"notes"            db:"notes"`

	// DailyCalories is the doctor-assigned value; it outranks anything computed.
	DailyCalories       *int       `json:"daily_calories"        db:"daily_calories"`
	StoredDailyCalories *int       `json:"stored_daily_calories" db:"stored_daily_calories"`
	UpdatedAt           *time.Time `json:"updated_at"            db:"updated_at"`

	// Computed fields are filled server-side and never stored.
	// db:"-" tells RowToStructByName to skip these during scanning.
	ComputedBMR             *int                    `json:"computed_bmr,omitempty"              db:"-"`
	ComputedTDEE            *int                    `json:"computed_tdee,omitempty"             db:"-"`
	CalculatedDailyCalories *int                    `json:"calculated_daily_calories,omitempty" db:"-"`
	DailyCaloriesSource     nutrition.CalorieSource `json:"daily_calories_source"               db:"-"`
	ResolvedDailyCalories   *int                    `json:"resolved_daily_calories,omitempty"   db:"-"`
	ProteinTargetG          *int                    `json:"protein_target_g,omitempty"          db:"-"`
	CarbsTargetG            *int                    `json:"carbs_target_g,omitempty"            db:"-"`
	FatTargetG              *int                    `json:"fat_target_g,omitempty"              db:"-"`
	MacrosOverallocated     bool                    `json:"macros_overallocated,omitempty"      db:"-"`
}

// patientSummary is one row of the doctor's patient list.
type patientSummary struct {
	UserID          int        `json:"user_id"         db:"user_id"`
	Username        string     `json:"username"        db:"username"`
	FullName        *string    `json:"full_name"       db:"full_name"`
	Goal            *string    `json:"goal"            db:"goal"`
	DietType        *string    `json:"diet_type"       db:"diet_type"`
	CurrentWeightKG *float64   `json:"current_weight"  db:"current_weight"`
	UpdatedAt       *time.Time `json:"updated_at"      db:"updated_at"`
}

// mealPlan maps to meal_plans. Days holds the generated plan as JSONB.
type mealPlan struct {
	ID             int                 `json:"id"              db:"id"`
	PatientID      int                 `json:"patient_id"      db:"patient_id"`
	CreatedBy      int                 `json:"created_by"      db:"created_by"`
	Title          *string             `json:"title"           db:"title"`
	DietLabel      string              `json:"diet_label"      db:"diet_label"`
	DietType       string              `json:"diet_type"       db:"diet_type"`
	StartDate      DateOnly            `json:"start_date"      db:"start_date"`
	EndDate        DateOnly            `json:"end_date"        db:"end_date"`
	Lang           string              `json:"lang"            db:"lang"`
	TargetCalories *int                `json:"target_calories" db:"target_calories"`
	Days           []nutrition.DayPlan `json:"days"            db:"days"`
	CreatedAt      *time.Time          `json:"created_at"      db:"created_at"`
}

// mealPlanListItem is mealPlan without the day payload, for list views.
type mealPlanListItem struct {
	ID             int        `json:"id"              db:"id"`
	PatientID      int        `json:"patient_id"      db:"patient_id"`
	Title          *string    `json:"title"           db:"title"`
	DietType       string     `json:"diet_type"       db:"diet_type"`
	StartDate      DateOnly   `json:"start_date"      db:"start_date"`
	EndDate        DateOnly   `json:"end_date"        db:"end_date"`
	TargetCalories *int       `json:"target_calories" db:"target_calories"`
	CreatedAt      *time.Time `json:"created_at"      db:"created_at"`
}

// mealLogItem maps to meal_log_items. Nutrients are stored per 100 g next to
// the eaten amount so totals always go through the same aggregation.
type mealLogItem struct {
	ID              int        `json:"id"                db:"id"`
	UserID          int        `json:"user_id"           db:"user_id"`
	Date            DateOnly   `json:"date"              db:"date"`
	MealType        string     `json:"meal_type"         db:"meal_type"`
	FoodName        string     `json:"food_name"         db:"food_name"`
	FoodNameAr      *string    `json:"food_name_ar"      db:"food_name_ar"`
	AmountG         float64    `json:"amount"            db:"amount_g"`
	CaloriesPer100g float64    `json:"calories_per_100g" db:"calories_per_100g"`
	ProteinPer100g  float64    `json:"protein_per_100g"  db:"protein_per_100g"`
	CarbsPer100g    float64    `json:"carbs_per_100g"    db:"carbs_per_100g"`
	FatPer100g      float64    `json:"fat_per_100g"      db:"fat_per_100g"`
	FiberPer100g    float64    `json:"fiber_per_100g"    db:"fiber_per_100g"`
	PlanID          *int       `json:"plan_id"           db:"plan_id"`
	CreatedAt       *time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"        db:"updated_at"`
}

// measurement maps to measurements. One row per user per date.
type measurement struct {
	ID         int        `json:"id"           db:"id"`
	UserID     int        `json:"user_id"      db:"user_id"`
	Date       DateOnly   `json:"date"         db:"date"`
	WeightKG   float64    `json:"weight_kg"    db:"weight_kg"`
	BodyFatPct *float64   `json:"body_fat_pct" db:"body_fat_pct"`
	WaistCM    *float64   `json:"waist_cm"     db:"waist_cm"`
	Notes      *string    `json:"notes"        db:"notes"`
	CreatedAt  *time.Time `json:"created_at"   db:"created_at"`
}

/* ─── Response shapes ────────────────────────────────────────────────── */

// dayTarget is what a day of eating is measured against.
type dayTarget struct {
	Calories int  `json:"calories"`
	ProteinG *int `json:"protein_g,omitempty"`
}

func (t dayTarget) nutritionTarget() nutrition.Target {
	nt := nutrition.Target{Calories: float64(t.Calories)}
	if t.ProteinG != nil {
		p := float64(*t.ProteinG)
		nt.ProteinG = &p
	}
	return nt
}

// loggedItem is a meal log row plus its computed contribution.
type loggedItem struct {
	mealLogItem
	Nutrients nutrition.Nutrients `json:"nutrients"`
}

// dailySummary is the response shape for GET /meal-log/daily.
type dailySummary struct {
	Date       string                         `json:"date"`
	Items      []loggedItem                   `json:"items"`
	ByMeal     map[string]nutrition.Nutrients `json:"by_meal"`
	Totals     nutrition.Nutrients            `json:"totals"`
	Target     *dayTarget                     `json:"target"`
	Compliance nutrition.Compliance           `json:"compliance"`
}

// daySummary is one day's entry in the week-summary and progress responses.
// Days with nothing logged have HasData=false and zero totals.
type daySummary struct {
	Date       DateOnly             `json:"date"`
	Totals     nutrition.Nutrients  `json:"totals"`
	Compliance nutrition.Compliance `json:"compliance"`
	HasData    bool                 `json:"has_data"`

	raw nutrition.Nutrients // unrounded totals
}

// progressStats is computed over days that have data.
type progressStats struct {
	DaysTracked   int     `json:"days_tracked"`
	DaysCompliant int     `json:"days_compliant"`
	DaysBalanced  int     `json:"days_balanced"`
	AvgCalories   float64 `json:"avg_calories"`
	AvgProteinG   float64 `json:"avg_protein_g"`
	AvgCarbsG     float64 `json:"avg_carbs_g"`
	AvgFatG       float64 `json:"avg_fat_g"`
}

// progressResponse is the response shape for GET /meal-log/progress.
type progressResponse struct {
	Days   []daySummary  `json:"days"`
	Stats  progressStats `json:"stats"`
	Target *dayTarget    `json:"target"`
}

// planDayView is a plan day with its totals and compliance against the plan
// target.
type planDayView struct {
	nutrition.DayPlan
	Totals     nutrition.Nutrients  `json:"totals"`
	Compliance nutrition.Compliance `json:"compliance"`
}

// planView is the response shape for generated and stored meal plans.
type planView struct {
	Plan         *mealPlan           `json:"plan,omitempty"`
	DietType     nutrition.DietType  `json:"diet_type"`
	Days         []planDayView       `json:"days"`
	PeriodTotals nutrition.Nutrients `json:"period_totals"`
}

/* ─── Requests ───────────────────────────────────────────────────────── */

// planRequest is the request body for plan preview and creation. Either
// end_date or days sets the period length.
type planRequest struct {
	Title     *string `json:"title"`
	DietType  string  `json:"diet_type"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Days      *int    `json:"days"`
	Lang      string  `json:"lang"`
}

// createMealLogItemRequest is the request body for POST /api/meal-log/items.
// The ingredient may arrive in either backend shape.
type createMealLogItemRequest struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	nutrition.RawIngredient
}

// patchProfileRequest is the request body for profile PATCH routes.
// Only non-nil fields are written.
type patchProfileRequest struct {
	FullName        *string  `json:"full_name"`
	Gender          *string  `json:"gender"`
	DateOfBirth     *string  `json:"date_of_birth"` // YYYY-MM-DD string, stored as date
	HeightCM        *float64 `json:"height_cm"`
	CurrentWeightKG *float64 `json:"current_weight"`
	TargetWeightKG  *float64 `json:"target_weight"`
	ActivityLevel   *string  `json:"activity_level"`
	Goal            *string  `json:"goal"`
	DietType        *string  `json:"diet_type"`
	Notes           *string  `json:"notes"`
	DailyCalories   *int     `json:"daily_calories"`
}
