package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
	"lg/clinic-nutrition-api/realtime"
)

// defaultPlanDays is used when the request sets neither end_date nor days.
const defaultPlanDays = 7

// planParams is a validated plan request.
type planParams struct {
	label    string
	diet     nutrition.DietType
	dayCount int
	start    time.Time
	lang     string
}

// parsePlanRequest validates req. Returns a user-facing message on failure.
func parsePlanRequest(req planRequest, today time.Time, defaultLang string) (planParams, string) {
	p := planParams{label: req.DietType, lang: req.Lang}
	p.diet = nutrition.ResolveDietType(req.DietType)

	if p.lang == "" {
		p.lang = defaultLang
	}
	if !nutrition.SupportedLanguage(p.lang) {
		return p, "lang must be one of: en, ar"
	}

	p.start = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if req.StartDate != "" {
		t, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			return p, "invalid start_date, expected YYYY-MM-DD"
		}
		p.start = t
	}

	switch {
	case req.EndDate != "":
		end, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			return p, "invalid end_date, expected YYYY-MM-DD"
		}
		n, err := nutrition.PeriodDays(p.start, end)
		if err != nil {
			return p, err.Error()
		}
		p.dayCount = n
	case req.Days != nil:
		if err := nutrition.ValidateDayCount(*req.Days); err != nil {
			return p, err.Error()
		}
		p.dayCount = *req.Days
	default:
		p.dayCount = defaultPlanDays
	}
	return p, ""
}

// generatePlan returns the plan days for p, from the cache when possible.
func (h *Handler) generatePlan(ctx context.Context, p planParams) ([]nutrition.DayPlan, error) {
	key := planCacheKey(h.templates.Digest(), p.diet, p.dayCount, p.start, p.lang)
	if h.cache != nil {
		if days, ok := h.cache.Get(ctx, key); ok {
			return days, nil
		}
	}
	days, err := nutrition.NewGenerator(h.templates, p.lang).GenerateForDiet(p.diet, p.dayCount, p.start)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		h.cache.Set(ctx, key, days)
	}
	return days, nil
}

// buildPlanView attaches totals and compliance to each day. Days are measured
// against target when set, otherwise against their template's own target.
func buildPlanView(diet nutrition.DietType, days []nutrition.DayPlan, target *dayTarget) planView {
	view := planView{DietType: diet, Days: make([]planDayView, 0, len(days))}
	for _, d := range days {
		t := target
		if t == nil {
			t = &dayTarget{Calories: d.TargetCalories}
		}
		totals := d.Totals()
		view.Days = append(view.Days, planDayView{
			DayPlan:    d,
			Totals:     totals.Rounded(),
			Compliance: evaluate(totals, t),
		})
	}
	view.PeriodTotals = nutrition.PeriodTotals(days).Rounded()
	return view
}

// previewMealPlan generates a plan without saving it.
// POST /api/meal-plans/preview. Body: planRequest.
func (h *Handler) previewMealPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	p, msg := parsePlanRequest(req, h.clock(), h.defaultLang)
	if msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	days, err := h.generatePlan(c, p)
	if err != nil {
		log.Error().Err(err).Str("diet", string(p.diet)).Msg("[previewMealPlan] generate")
		apiError(c, http.StatusInternalServerError, "failed to generate meal plan")
		return
	}
	c.JSON(http.StatusOK, buildPlanView(p.diet, days, nil))
}

// createMealPlan generates and stores a plan for a patient. The diet defaults
// to the patient's profile diet and the target to their resolved daily calories.
// POST /api/patients/:id/meal-plans (doctor).
func (h *Handler) createMealPlan(c *gin.Context) {
	patientID := c.GetInt("patient_id")

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.loadProfile(c, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "profile not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		}
		return
	}
	populateComputed(&profile, h.clock())
	if req.DietType == "" && profile.DietType != nil {
		req.DietType = *profile.DietType
	}

	p, msg := parsePlanRequest(req, h.clock(), h.defaultLang)
	if msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	days, err := h.generatePlan(c, p)
	if err != nil {
		log.Error().Err(err).Str("diet", string(p.diet)).Msg("[createMealPlan] generate")
		apiError(c, http.StatusInternalServerError, "failed to generate meal plan")
		return
	}

	// Encode days ourselves: the simple protocol sends parameters as text.
	daysJSON, err := json.Marshal(days)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to encode meal plan")
		return
	}
	end := p.start.AddDate(0, 0, p.dayCount-1)

	plan, err := queryOne[mealPlan](h.db, c,
		`INSERT INTO meal_plans
			(patient_id, created_by, title, diet_label, diet_type, start_date, end_date, lang, target_calories, days)
		 VALUES (@patientID, @createdBy, @title, @label, @diet, @start, @end, @lang, @target, @days::jsonb)
		 RETURNING *`,
		pgx.NamedArgs{
			"patientID": patientID, "createdBy": c.GetInt("user_id"), "title": req.Title,
			"label": p.label, "diet": string(p.diet),
			"start": p.start.Format(time.DateOnly), "end": end.Format(time.DateOnly),
			"lang": p.lang, "target": profile.ResolvedDailyCalories, "days": string(daysJSON),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}

	h.notify(patientID, realtime.EventMealPlanCreated, gin.H{"plan_id": plan.ID})

	view := buildPlanView(p.diet, plan.Days, targetFor(&profile))
	view.Plan = &plan
	c.JSON(http.StatusCreated, view)
}

// listMealPlans returns a patient's plans, newest first, without day payloads.
// GET /api/patients/:id/meal-plans.
func (h *Handler) listMealPlans(c *gin.Context) {
	plans, err := queryMany[mealPlanListItem](h.db, c,
		`SELECT id, patient_id, title, diet_type, start_date, end_date, target_calories, created_at
		 FROM meal_plans WHERE patient_id = @patientID
		 ORDER BY start_date DESC, id DESC`,
		pgx.NamedArgs{"patientID": c.GetInt("patient_id")})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal plans")
		return
	}
	if plans == nil {
		plans = []mealPlanListItem{}
	}
	c.JSON(http.StatusOK, plans)
}

// getMealPlan returns a stored plan with per-day totals and compliance.
// GET /api/meal-plans/:id. Patients may only read their own plans.
func (h *Handler) getMealPlan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid meal plan id")
		return
	}

	plan, err := queryOne[mealPlan](h.db, c,
		"SELECT * FROM meal_plans WHERE id = @id", pgx.NamedArgs{"id": id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "meal plan not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch meal plan")
		}
		return
	}
	// 404 rather than 403 so plan ids of other patients aren't confirmed.
	if !canAccessPatient(c, plan.PatientID) {
		apiError(c, http.StatusNotFound, "meal plan not found")
		return
	}

	var target *dayTarget
	if plan.TargetCalories != nil {
		target = &dayTarget{Calories: *plan.TargetCalories}
	}
	view := buildPlanView(nutrition.DietType(plan.DietType), plan.Days, target)
	view.Plan = &plan
	c.JSON(http.StatusOK, view)
}

// deleteMealPlan removes a plan by ID. Logged items keep their nutrients;
// plan_id is cleared by the foreign key.
// DELETE /api/meal-plans/:id (doctor). Returns 204 on success, 404 if not found.
func (h *Handler) deleteMealPlan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid meal plan id")
		return
	}

	var patientID int
	err = h.db.QueryRow(c,
		"DELETE FROM meal_plans WHERE id = @id RETURNING patient_id",
		pgx.NamedArgs{"id": id}).Scan(&patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "meal plan not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to delete meal plan")
		}
		return
	}

	h.notify(patientID, realtime.EventMealPlanDeleted, gin.H{"plan_id": id})
	c.Status(http.StatusNoContent)
}

// dietTypeInfo describes one diet type's template cycle.
type dietTypeInfo struct {
	DietType    nutrition.DietType `json:"diet_type"`
	CycleLength int                `json:"cycle_length"`
	Templates   []templateInfo     `json:"templates"`
}

type templateInfo struct {
	Name           string              `json:"name"`
	NameAr         string              `json:"name_ar,omitempty"`
	TargetCalories int                 `json:"target_calories"`
	Totals         nutrition.Nutrients `json:"totals"`
}

// listDietTypes lists diet types with their template names and cycle lengths.
// GET /api/diet-types (public).
func (h *Handler) listDietTypes(c *gin.Context) {
	diets := h.templates.DietTypes()
	out := make([]dietTypeInfo, 0, len(diets))
	for _, d := range diets {
		templates := h.templates.Templates(d)
		info := dietTypeInfo{DietType: d, CycleLength: len(templates), Templates: make([]templateInfo, 0, len(templates))}
		for _, t := range templates {
			info.Templates = append(info.Templates, templateInfo{
				Name:           t.Name,
				NameAr:         t.NameAr,
				TargetCalories: t.TargetCalories,
				Totals:         t.Totals().Rounded(),
			})
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}
