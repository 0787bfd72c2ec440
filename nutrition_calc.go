package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lg/clinic-nutrition-api/nutrition"
)

// estimateRequest is a profile sent for a one-off estimate. Nothing is stored.
type estimateRequest struct {
	Gender          *string  `json:"gender"`
	DateOfBirth     *string  `json:"date_of_birth"`
	HeightCM        *float64 `json:"height_cm"`
	CurrentWeightKG *float64 `json:"current_weight"`
	ActivityLevel   *string  `json:"activity_level"`
	Goal            *string  `json:"goal"`
}

type estimateResponse struct {
	nutrition.EnergyEstimate
	Macros nutrition.MacroTargets `json:"macros"`
}

// estimateEnergy computes BMR, TDEE, daily calories and macro targets for a
// profile. POST /api/nutrition/estimate (public).
// Returns 422 when the profile lacks the fields the estimate needs.
func (h *Handler) estimateEnergy(c *gin.Context) {
	var body estimateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p := nutrition.PatientProfile{
		Gender:          body.Gender,
		HeightCM:        body.HeightCM,
		CurrentWeightKG: body.CurrentWeightKG,
		ActivityLevel:   body.ActivityLevel,
		Goal:            body.Goal,
	}
	if body.DateOfBirth != nil && *body.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, *body.DateOfBirth)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
			return
		}
		p.DateOfBirth = &dob
	}

	est, ok := nutrition.Estimate(p, h.clock())
	if !ok {
		apiError(c, http.StatusUnprocessableEntity, "insufficient profile data")
		return
	}
	goal := ""
	if body.Goal != nil {
		goal = *body.Goal
	}
	c.JSON(http.StatusOK, estimateResponse{
		EnergyEstimate: est,
		Macros:         nutrition.AllocateMacros(est.DailyCalories, goal, *body.CurrentWeightKG),
	})
}

// evaluateRequest carries either precomputed totals or the ingredients to sum.
type evaluateRequest struct {
	Actual      *nutrition.Nutrients      `json:"actual"`
	Ingredients []nutrition.RawIngredient `json:"ingredients"`
	Target      nutrition.Target          `json:"target"`
}

// evaluateCompliance scores intake against a target.
// POST /api/nutrition/evaluate (public). When ingredients are sent they are
// aggregated and take precedence over actual.
func (h *Handler) evaluateCompliance(c *gin.Context) {
	var body evaluateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var actual nutrition.Nutrients
	switch {
	case len(body.Ingredients) > 0:
		ings := make([]nutrition.Ingredient, 0, len(body.Ingredients))
		for _, ri := range body.Ingredients {
			ings = append(ings, ri.Normalize())
		}
		actual = nutrition.Aggregate(ings)
	case body.Actual != nil:
		actual = *body.Actual
	default:
		apiError(c, http.StatusBadRequest, "actual or ingredients is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actual":     actual.Rounded(),
		"target":     body.Target,
		"compliance": nutrition.Evaluate(actual, body.Target),
	})
}
