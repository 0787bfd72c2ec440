package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/realtime"
)

// maxWeightKG bounds accepted weights; anything above is a unit mix-up.
const maxWeightKG = 700.0

// getMeasurements returns measurement entries for the authenticated user within [start, end].
// GET /api/measurements?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Returns an empty array (not null) if no entries exist in the range.
func (h *Handler) getMeasurements(c *gin.Context) {
	userID := c.GetInt("user_id")
	start := c.Query("start")
	end := c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	if _, err := time.Parse(time.DateOnly, start); err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(time.DateOnly, end); err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	entries, err := queryMany[measurement](h.db, c,
		`SELECT * FROM measurements
		 WHERE user_id = @userID AND date >= @start AND date <= @end
		 ORDER BY date ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch measurements")
		return
	}
	if entries == nil {
		entries = []measurement{}
	}

	c.JSON(http.StatusOK, entries)
}

// measurementBody is shared by upsert and update; pointer fields tell
// "omitted" apart from zero.
type measurementBody struct {
	Date       *string  `json:"date"`
	WeightKG   *float64 `json:"weight_kg"`
	BodyFatPct *float64 `json:"body_fat_pct"`
	WaistCM    *float64 `json:"waist_cm"`
	Notes      *string  `json:"notes"`
}

func (b *measurementBody) validate() string {
	if b.Date != nil {
		if _, err := time.Parse(time.DateOnly, *b.Date); err != nil {
			return "invalid date, expected YYYY-MM-DD"
		}
	}
	if b.WeightKG != nil && (*b.WeightKG <= 0 || *b.WeightKG > maxWeightKG) {
		return "weight_kg must be between 0 and 700"
	}
	if b.BodyFatPct != nil && (*b.BodyFatPct < 0 || *b.BodyFatPct > 100) {
		return "body_fat_pct must be between 0 and 100"
	}
	if b.WaistCM != nil && (*b.WaistCM <= 0 || *b.WaistCM > 500) {
		return "waist_cm must be between 0 and 500"
	}
	return ""
}

// upsertMeasurement creates or updates the measurement for the given date.
// POST /api/measurements. Body: { "date", "weight_kg", "body_fat_pct"?, "waist_cm"?, "notes"? }.
// The UNIQUE(user_id, date) constraint means posting the same date updates in place.
func (h *Handler) upsertMeasurement(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body measurementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == nil || *body.Date == "" {
		apiError(c, http.StatusBadRequest, "date is required")
		return
	}
	if body.WeightKG == nil {
		apiError(c, http.StatusBadRequest, "weight_kg is required")
		return
	}
	if msg := body.validate(); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	entry, err := queryOne[measurement](h.db, c,
		`INSERT INTO measurements (user_id, date, weight_kg, body_fat_pct, waist_cm, notes)
		 VALUES (@userID, @date, @weightKG, @bodyFat, @waist, @notes)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			weight_kg    = EXCLUDED.weight_kg,
			body_fat_pct = EXCLUDED.body_fat_pct,
			waist_cm     = EXCLUDED.waist_cm,
			notes        = EXCLUDED.notes
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":   userID,
			"date":     *body.Date,
			"weightKG": *body.WeightKG,
			"bodyFat":  body.BodyFatPct,
			"waist":    body.WaistCM,
			"notes":    body.Notes,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to upsert measurement")
		return
	}

	h.syncCurrentWeight(c, userID)
	c.JSON(http.StatusCreated, entry)
}

// syncCurrentWeight sets the profile's current_weight to the newest
// measurement, so estimates follow the latest weigh-in after any insert,
// edit or delete. A profile whose user has no measurements left keeps its
// weight. The stored daily calorie fallback is refreshed with it.
func (h *Handler) syncCurrentWeight(c *gin.Context, userID int) {
	p, err := queryOne[patientProfile](h.db, c,
		`WITH latest AS (
			SELECT weight_kg FROM measurements
			WHERE user_id = @userID
			ORDER BY date DESC
			LIMIT 1
		 )
		 UPDATE patient_profiles pp
		 SET current_weight = latest.weight_kg, updated_at = now()
		 FROM latest
		 WHERE pp.user_id = @userID
		   AND pp.current_weight IS DISTINCT FROM latest.weight_kg
		 RETURNING pp.*`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Error().Err(err).Int("user", userID).Msg("[syncCurrentWeight] update failed")
		}
		return
	}
	h.refreshComputed(c, &p)
	h.notify(userID, realtime.EventProfileUpdated, gin.H{"user_id": userID})
}

// updateMeasurement partially updates an existing measurement.
// PUT /api/measurements/:id. Uses COALESCE so omitted fields keep their current values.
func (h *Handler) updateMeasurement(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body measurementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	entry, err := queryOne[measurement](h.db, c,
		`UPDATE measurements SET
			date         = COALESCE(@date::date, date),
			weight_kg    = COALESCE(@weightKG, weight_kg),
			body_fat_pct = COALESCE(@bodyFat, body_fat_pct),
			waist_cm     = COALESCE(@waist, waist_cm),
			notes        = COALESCE(@notes, notes)
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id":       id,
			"userID":   userID,
			"date":     body.Date,
			"weightKG": body.WeightKG,
			"bodyFat":  body.BodyFatPct,
			"waist":    body.WaistCM,
			"notes":    body.Notes,
		})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "measurement not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update measurement")
		}
		return
	}

	h.syncCurrentWeight(c, userID)
	c.JSON(http.StatusOK, entry)
}

// deleteMeasurement removes a measurement by ID.
// DELETE /api/measurements/:id. Returns 204 on success, 404 if not found.
// Ownership is enforced by requiring both id and user_id to match.
func (h *Handler) deleteMeasurement(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM measurements WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete measurement")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "measurement not found")
		return
	}

	h.syncCurrentWeight(c, userID)
	c.Status(http.StatusNoContent)
}
