package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
	"lg/clinic-nutrition-api/realtime"
)

// loadProfile fetches a patient's profile row without computed fields.
func (h *Handler) loadProfile(c *gin.Context, patientID int) (patientProfile, error) {
	return queryOne[patientProfile](h.db, c,
		"SELECT * FROM patient_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": patientID})
}

// loadTarget fetches a patient's profile and returns the day target it
// implies. A nil target with a nil error means no calorie value is known.
func (h *Handler) loadTarget(c *gin.Context, patientID int) (*dayTarget, error) {
	p, err := h.loadProfile(c, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	populateComputed(&p, h.clock())
	return targetFor(&p), nil
}

// writeProfile responds with p and its computed fields, or a 404/500.
func (h *Handler) writeProfile(c *gin.Context, patientID int) {
	p, err := h.loadProfile(c, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "profile not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		}
		return
	}
	populateComputed(&p, h.clock())
	c.JSON(http.StatusOK, p)
}

// getOwnProfile returns the authenticated patient's profile.
// GET /api/profile.
func (h *Handler) getOwnProfile(c *gin.Context) {
	h.writeProfile(c, c.GetInt("user_id"))
}

// getPatientProfile returns a patient's profile with computed energy and
// macro targets.
// GET /api/patients/:id/profile.
func (h *Handler) getPatientProfile(c *gin.Context) {
	h.writeProfile(c, c.GetInt("patient_id"))
}

// listPatients returns every patient with a profile, most recently updated first.
// GET /api/patients (doctor).
func (h *Handler) listPatients(c *gin.Context) {
	patients, err := queryMany[patientSummary](h.db, c,
		`SELECT p.user_id, u.username, p.full_name, p.goal, p.diet_type, p.current_weight, p.updated_at
		 FROM patient_profiles p JOIN users u ON u.id = p.user_id
		 ORDER BY p.updated_at DESC NULLS LAST, p.user_id`,
		pgx.NamedArgs{})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch patients")
		return
	}
	if patients == nil {
		patients = []patientSummary{}
	}
	c.JSON(http.StatusOK, patients)
}

// patchOwnProfile lets a patient update their own body fields.
// PATCH /api/profile. The doctor-assigned calorie value is not writable here.
func (h *Handler) patchOwnProfile(c *gin.Context) {
	h.patchProfile(c, c.GetInt("user_id"), false)
}

// patchPatientProfile lets a doctor update any profile field.
// PATCH /api/patients/:id/profile.
func (h *Handler) patchPatientProfile(c *gin.Context) {
	h.patchProfile(c, c.GetInt("patient_id"), true)
}

// validateProfilePatch checks enum and range fields before saving. It returns
// the first problem found, or "" when the body is acceptable.
func validateProfilePatch(body *patchProfileRequest) string {
	if body.Gender != nil && !nutrition.ValidGender(*body.Gender) {
		return "gender must be one of: male, female"
	}
	if body.ActivityLevel != nil && !nutrition.ValidActivityLevel(*body.ActivityLevel) {
		return "activity_level must be one of: sedentary, light, moderate, active, very_active"
	}
	if body.Goal != nil && !nutrition.ValidGoal(*body.Goal) {
		return "goal must be one of: lose_weight, maintain_weight, gain_weight, build_muscle, improve_health"
	}
	if body.DietType != nil {
		if _, ok := nutrition.ParseDietType(*body.DietType); !ok {
			return "unknown diet_type"
		}
	}
	if body.DateOfBirth != nil {
		if _, err := time.Parse(time.DateOnly, *body.DateOfBirth); err != nil {
			return "invalid date_of_birth, expected YYYY-MM-DD"
		}
	}
	if body.HeightCM != nil && (*body.HeightCM <= 0 || *body.HeightCM > 300) {
		return "height_cm must be between 0 and 300"
	}
	if body.CurrentWeightKG != nil && (*body.CurrentWeightKG <= 0 || *body.CurrentWeightKG > 700) {
		return "current_weight must be between 0 and 700"
	}
	if body.TargetWeightKG != nil && (*body.TargetWeightKG <= 0 || *body.TargetWeightKG > 700) {
		return "target_weight must be between 0 and 700"
	}
	if body.DailyCalories != nil && (*body.DailyCalories < 0 || *body.DailyCalories > 10000) {
		return "daily_calories must be between 0 and 10000"
	}
	return ""
}

// patchProfile updates only the provided fields. Uses pointer fields in the
// request body to distinguish "not provided" from zero. When the updated
// profile yields a computable daily calorie value it is persisted into
// stored_daily_calories so later reads have a fallback.
func (h *Handler) patchProfile(c *gin.Context, patientID int, clinical bool) {
	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateProfilePatch(&body); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if !clinical && body.DailyCalories != nil {
		apiError(c, http.StatusForbidden, "daily_calories is set by the doctor")
		return
	}

	// Build SET clause dynamically: only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": patientID}
	set := func(column, arg string, value any) {
		setClauses = append(setClauses, column+" = @"+arg)
		args[arg] = value
	}

	if body.FullName != nil {
		set("full_name", "fullName", *body.FullName)
	}
	if body.Gender != nil {
		set("gender", "gender", *body.Gender)
	}
	if body.DateOfBirth != nil {
		set("date_of_birth", "dateOfBirth", *body.DateOfBirth)
	}
	if body.HeightCM != nil {
		set("height_cm", "heightCM", *body.HeightCM)
	}
	if body.CurrentWeightKG != nil {
		set("current_weight", "currentWeight", *body.CurrentWeightKG)
	}
	if body.TargetWeightKG != nil {
		set("target_weight", "targetWeight", *body.TargetWeightKG)
	}
	if body.ActivityLevel != nil {
		set("activity_level", "activityLevel", *body.ActivityLevel)
	}
	if body.Goal != nil {
		set("goal", "goal", *body.Goal)
	}
	if body.DietType != nil {
		set("diet_type", "dietType", strings.ToLower(strings.TrimSpace(*body.DietType)))
	}
	if body.Notes != nil {
		set("notes", "notes", *body.Notes)
	}
	if body.DailyCalories != nil {
		// 0 clears the doctor override
		if *body.DailyCalories == 0 {
			set("daily_calories", "dailyCalories", nil)
		} else {
			set("daily_calories", "dailyCalories", *body.DailyCalories)
		}
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE patient_profiles SET " +
		strings.Join(setClauses, ", ") +
		", updated_at = now() WHERE user_id = @userID RETURNING *"

	p, err := queryOne[patientProfile](h.db, c, query, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "profile not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	h.refreshComputed(c, &p)
	h.notify(patientID, realtime.EventProfileUpdated, gin.H{"user_id": patientID})
	c.JSON(http.StatusOK, p)
}

// staleStoredCalories reports the estimate to persist when the stored
// fallback no longer matches it. p must already be populated.
func staleStoredCalories(p *patientProfile) (int, bool) {
	if p.CalculatedDailyCalories == nil {
		return 0, false
	}
	if p.StoredDailyCalories != nil && *p.StoredDailyCalories == *p.CalculatedDailyCalories {
		return 0, false
	}
	return *p.CalculatedDailyCalories, true
}

// refreshComputed populates p and persists a changed estimate as the stored
// fallback value. Callers run it after any write to the profile's body fields.
func (h *Handler) refreshComputed(c *gin.Context, p *patientProfile) {
	populateComputed(p, h.clock())
	daily, ok := staleStoredCalories(p)
	if !ok {
		return
	}
	_, err := h.db.Exec(c,
		"UPDATE patient_profiles SET stored_daily_calories = @daily WHERE user_id = @userID",
		pgx.NamedArgs{"daily": daily, "userID": p.UserID})
	if err != nil {
		log.Error().Err(err).Int("patient", p.UserID).Msg("[refreshComputed] stored_daily_calories update failed")
		return
	}
	p.StoredDailyCalories = &daily
}
