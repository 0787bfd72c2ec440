package main

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/clinic-nutrition-api/nutrition"
	"lg/clinic-nutrition-api/realtime"
)

// maxProgressDays caps the progress range so one request can't scan years of rows.
const maxProgressDays = 366

/* ─── Aggregation ────────────────────────────────────────────────────── */

// ingredient rebuilds the canonical ingredient stored on a log row.
func (i mealLogItem) ingredient() nutrition.Ingredient {
	ing := nutrition.Ingredient{
		Name:    i.FoodName,
		AmountG: i.AmountG,
		Per100g: nutrition.Nutrients{
			Calories: i.CaloriesPer100g,
			ProteinG: i.ProteinPer100g,
			CarbsG:   i.CarbsPer100g,
			FatG:     i.FatPer100g,
			FiberG:   i.FiberPer100g,
		},
	}
	if i.FoodNameAr != nil {
		ing.NameAr = *i.FoodNameAr
	}
	return ing
}

// evaluate returns compliance against target, or the no-target result.
func evaluate(actual nutrition.Nutrients, target *dayTarget) nutrition.Compliance {
	if target == nil {
		return nutrition.Evaluate(actual, nutrition.Target{})
	}
	return nutrition.Evaluate(actual, target.nutritionTarget())
}

// summarizeDaily builds the daily response from one day's rows. Totals are
// summed and evaluated unrounded, then rounded once for display.
func summarizeDaily(date string, items []mealLogItem, target *dayTarget) dailySummary {
	out := dailySummary{
		Date:   date,
		Items:  make([]loggedItem, 0, len(items)),
		ByMeal: map[string]nutrition.Nutrients{},
		Target: target,
	}
	byMeal := map[string]nutrition.Nutrients{}
	var total nutrition.Nutrients
	for _, item := range items {
		n := item.ingredient().Contribution()
		out.Items = append(out.Items, loggedItem{mealLogItem: item, Nutrients: n.Rounded()})
		byMeal[item.MealType] = byMeal[item.MealType].Add(n)
		total = total.Add(n)
	}
	for k, v := range byMeal {
		out.ByMeal[k] = v.Rounded()
	}
	out.Totals = total.Rounded()
	out.Compliance = evaluate(total, target)
	return out
}

// summarizeDays groups rows by date over [start, start+n). With fill set
// every day is returned, days without rows having HasData=false; otherwise
// only days with data are returned.
func summarizeDays(start time.Time, n int, items []mealLogItem, target *dayTarget, fill bool) []daySummary {
	totals := make(map[string]nutrition.Nutrients, n)
	for _, item := range items {
		key := item.Date.Format(time.DateOnly)
		totals[key] = totals[key].Add(item.ingredient().Contribution())
	}

	days := make([]daySummary, 0, n)
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		t, ok := totals[d.Format(time.DateOnly)]
		if !ok && !fill {
			continue
		}
		day := daySummary{Date: DateOnly{d}, HasData: ok, Totals: t.Rounded(), raw: t}
		day.Compliance = evaluate(t, target)
		days = append(days, day)
	}
	return days
}

// statsFor averages over days with data.
func statsFor(days []daySummary) progressStats {
	var s progressStats
	var sum nutrition.Nutrients
	for _, d := range days {
		if !d.HasData {
			continue
		}
		s.DaysTracked++
		if d.Compliance.IsCalorieCompliant && !d.Compliance.IsOverTarget {
			s.DaysCompliant++
		}
		if d.Compliance.IsBalanced {
			s.DaysBalanced++
		}
		sum = sum.Add(d.raw)
	}
	if s.DaysTracked > 0 {
		avg := sum.Scale(1 / float64(s.DaysTracked)).Rounded()
		s.AvgCalories = avg.Calories
		s.AvgProteinG = avg.ProteinG
		s.AvgCarbsG = avg.CarbsG
		s.AvgFatG = avg.FatG
	}
	return s
}

/* ─── Summaries ──────────────────────────────────────────────────────── */

// fetchItems returns the user's log rows for [start, end], oldest first.
func (h *Handler) fetchItems(c *gin.Context, userID int, start, end string) ([]mealLogItem, error) {
	return queryMany[mealLogItem](h.db, c,
		`SELECT * FROM meal_log_items
		 WHERE user_id = @userID AND date >= @start AND date <= @end
		 ORDER BY date, created_at`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
}

// getDailySummary returns logged items and computed totals for a given date.
// GET /api/meal-log/daily?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailySummary(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.DefaultQuery("date", h.today())

	// Validate date format before querying; an invalid value silently returns no rows.
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	items, err := h.fetchItems(c, userID, date, date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch items")
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, summarizeDaily(date, items, target))
}

// getWeekSummary returns per-day totals for the Mon–Sun week containing
// week_start. Days with no logged items are included with has_data=false.
// GET /api/meal-log/week-summary?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) getWeekSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	weekStart := mondayOf(h.clock())
	if s := c.Query("week_start"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = mondayOf(t)
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	items, err := h.fetchItems(c, userID, weekStart.Format(time.DateOnly), weekEnd.Format(time.DateOnly))
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch week data")
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, summarizeDays(weekStart, 7, items, target, true))
}

// getProgress returns per-day totals and aggregate stats for a date range.
// GET /api/meal-log/progress?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Only days with logged items are returned.
func (h *Handler) getProgress(c *gin.Context) {
	userID := c.GetInt("user_id")
	start, end := c.Query("start"), c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	startT, err := time.Parse(time.DateOnly, start)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	endT, err := time.Parse(time.DateOnly, end)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if endT.Before(startT) {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}
	n := int(endT.Sub(startT).Hours()/24) + 1
	if n > maxProgressDays {
		apiError(c, http.StatusBadRequest, "range must not exceed 366 days")
		return
	}

	items, err := h.fetchItems(c, userID, start, end)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress data")
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	days := summarizeDays(startT, n, items, target, false)
	c.JSON(http.StatusOK, progressResponse{Days: days, Stats: statsFor(days), Target: target})
}

// getEarliestLogDate returns the earliest date the user has a meal log entry.
// GET /api/meal-log/earliest-date. Used by the frontend to compute the "All Time" range start.
// Returns { "date": "YYYY-MM-DD" } or { "date": null } if no entries exist.
func (h *Handler) getEarliestLogDate(c *gin.Context) {
	var date *string
	err := h.db.QueryRow(c,
		`SELECT TO_CHAR(MIN(date), 'YYYY-MM-DD') FROM meal_log_items WHERE user_id = @userID`,
		pgx.NamedArgs{"userID": c.GetInt("user_id")}).Scan(&date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch earliest date")
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date})
}

/* ─── Items ──────────────────────────────────────────────────────────── */

const insertItemSQL = `INSERT INTO meal_log_items
	(user_id, date, meal_type, food_name, food_name_ar, amount_g,
	 calories_per_100g, protein_per_100g, carbs_per_100g, fat_per_100g, fiber_per_100g, plan_id)
	VALUES (@userID, @date, @mealType, @foodName, @foodNameAr, @amount,
	 @calories, @protein, @carbs, @fat, @fiber, @planID)
	RETURNING *`

// insertItemArgs builds the named args for insertItemSQL.
func insertItemArgs(userID int, date string, mealType nutrition.MealType, ing nutrition.Ingredient, planID *int) pgx.NamedArgs {
	var nameAr *string
	if ing.NameAr != "" && ing.NameAr != ing.Name {
		nameAr = &ing.NameAr
	}
	return pgx.NamedArgs{
		"userID": userID, "date": date, "mealType": string(mealType),
		"foodName": ing.Name, "foodNameAr": nameAr, "amount": ing.AmountG,
		"calories": ing.Per100g.Calories, "protein": ing.Per100g.ProteinG,
		"carbs": ing.Per100g.CarbsG, "fat": ing.Per100g.FatG, "fiber": ing.Per100g.FiberG,
		"planID": planID,
	}
}

// createMealLogItem inserts a new log entry. The ingredient may be sent with
// per-100g values or with totals for the amount; it is stored per 100 g.
// POST /api/meal-log/items. Defaults date to today if omitted.
func (h *Handler) createMealLogItem(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createMealLogItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	mealType, ok := nutrition.ParseMealType(body.MealType)
	if !ok {
		apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
		return
	}
	if body.Date == "" {
		body.Date = h.today()
	} else if _, err := time.Parse(time.DateOnly, body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	ing := body.RawIngredient.Normalize()
	if ing.Name == "" {
		apiError(c, http.StatusBadRequest, "food_name is required")
		return
	}
	if ing.AmountG <= 0 {
		apiError(c, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	item, err := queryOne[mealLogItem](h.db, c, insertItemSQL,
		insertItemArgs(userID, body.Date, mealType, ing, nil))
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.notify(userID, realtime.EventMealLogChanged, gin.H{"date": body.Date})
	c.JSON(http.StatusCreated, loggedItem{mealLogItem: item, Nutrients: item.ingredient().Contribution().Rounded()})
}

// updateMealLogItem updates an existing log entry.
// PUT /api/meal-log/items/:id. Uses COALESCE so omitted fields keep their current value.
func (h *Handler) updateMealLogItem(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body struct {
		Date            *string  `json:"date"`
		MealType        *string  `json:"meal_type"`
		FoodName        *string  `json:"food_name"`
		FoodNameAr      *string  `json:"food_name_ar"`
		AmountG         *float64 `json:"amount"`
		CaloriesPer100g *float64 `json:"calories_per_100g"`
		ProteinPer100g  *float64 `json:"protein_per_100g"`
		CarbsPer100g    *float64 `json:"carbs_per_100g"`
		FatPer100g      *float64 `json:"fat_per_100g"`
		FiberPer100g    *float64 `json:"fiber_per_100g"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date != nil {
		if _, err := time.Parse(time.DateOnly, *body.Date); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}
	if body.MealType != nil {
		t, ok := nutrition.ParseMealType(*body.MealType)
		if !ok {
			apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
			return
		}
		s := string(t)
		body.MealType = &s
	}
	if body.FoodName != nil && strings.TrimSpace(*body.FoodName) == "" {
		apiError(c, http.StatusBadRequest, "food_name must not be empty")
		return
	}
	if body.AmountG != nil && *body.AmountG <= 0 {
		apiError(c, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	item, err := queryOne[mealLogItem](h.db, c,
		`UPDATE meal_log_items SET
			date = COALESCE(@date::date, date),
			meal_type = COALESCE(@mealType, meal_type),
			food_name = COALESCE(@foodName, food_name),
			food_name_ar = COALESCE(@foodNameAr, food_name_ar),
			amount_g = COALESCE(@amount, amount_g),
			calories_per_100g = COALESCE(@calories, calories_per_100g),
			protein_per_100g = COALESCE(@protein, protein_per_100g),
			carbs_per_100g = COALESCE(@carbs, carbs_per_100g),
			fat_per_100g = COALESCE(@fat, fat_per_100g),
			fiber_per_100g = COALESCE(@fiber, fiber_per_100g),
			updated_at = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"date": body.Date, "mealType": body.MealType,
			"foodName": body.FoodName, "foodNameAr": body.FoodNameAr, "amount": body.AmountG,
			"calories": body.CaloriesPer100g, "protein": body.ProteinPer100g,
			"carbs": body.CarbsPer100g, "fat": body.FatPer100g, "fiber": body.FiberPer100g,
		})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "item not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update item")
		}
		return
	}

	h.notify(userID, realtime.EventMealLogChanged, gin.H{"date": item.Date})
	c.JSON(http.StatusOK, loggedItem{mealLogItem: item, Nutrients: item.ingredient().Contribution().Rounded()})
}

// deleteMealLogItem removes a log entry by ID.
// DELETE /api/meal-log/items/:id. Returns 204 on success, 404 if not found.
func (h *Handler) deleteMealLogItem(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM meal_log_items WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "item not found")
		return
	}

	h.notify(userID, realtime.EventMealLogChanged, gin.H{"id": id})
	c.Status(http.StatusNoContent)
}

/* ─── Plan selection ─────────────────────────────────────────────────── */

// selectMealRequest is the body for POST /api/meal-log/select. Day is the
// 1-based plan day, MealIndex the 0-based meal within it.
type selectMealRequest struct {
	PlanID    int    `json:"plan_id"`
	Day       int    `json:"day"`
	MealIndex int    `json:"meal_index"`
	Date      string `json:"date"`
}

// pickPlannedMeal locates one meal in a stored plan. The meal type falls back
// to snack when neither a tag nor the name classifies it.
func pickPlannedMeal(days []nutrition.DayPlan, day, mealIndex int) (nutrition.DayPlan, nutrition.PlannedMeal, bool) {
	idx := sort.Search(len(days), func(i int) bool { return days[i].Day >= day })
	if idx == len(days) || days[idx].Day != day {
		return nutrition.DayPlan{}, nutrition.PlannedMeal{}, false
	}
	d := days[idx]
	if mealIndex < 0 || mealIndex >= len(d.Meals) {
		return nutrition.DayPlan{}, nutrition.PlannedMeal{}, false
	}
	m := d.Meals[mealIndex]
	if m.Type == "" {
		m.Type = nutrition.Snack
	}
	return d, m, true
}

// selectPlannedMeal copies a planned meal's ingredients into the patient's
// log in one transaction. The date defaults to the plan day's date.
// POST /api/meal-log/select.
func (h *Handler) selectPlannedMeal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body selectMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date != "" {
		if _, err := time.Parse(time.DateOnly, body.Date); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	plan, err := queryOne[mealPlan](h.db, c,
		"SELECT * FROM meal_plans WHERE id = @id AND patient_id = @userID",
		pgx.NamedArgs{"id": body.PlanID, "userID": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "meal plan not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch meal plan")
		}
		return
	}

	day, meal, ok := pickPlannedMeal(plan.Days, body.Day, body.MealIndex)
	if !ok {
		apiError(c, http.StatusBadRequest, "no such day or meal in plan")
		return
	}
	if body.Date == "" {
		body.Date = day.Date.String()
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer tx.Rollback(c) //nolint:errcheck

	items := make([]loggedItem, 0, len(meal.Ingredients))
	for _, ing := range meal.Ingredients {
		rows, err := tx.Query(c, insertItemSQL, insertItemArgs(userID, body.Date, meal.Type, ing, &plan.ID))
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to log meal")
			return
		}
		item, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[mealLogItem])
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to log meal")
			return
		}
		items = append(items, loggedItem{mealLogItem: item, Nutrients: item.ingredient().Contribution().Rounded()})
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to log meal")
		return
	}

	h.notify(userID, realtime.EventMealLogChanged, gin.H{"date": body.Date, "plan_id": plan.ID})
	c.JSON(http.StatusCreated, gin.H{"meal_id": meal.ID, "items": items})
}
