// Package nutrition holds the clinic's calorie and meal-plan arithmetic:
// energy expenditure, macro targets, ingredient aggregation, template-based
// meal plan generation and plan compliance. Everything here is a pure
// function over in-memory data; callers own fetching and persistence.
package nutrition

import (
	"math"
	"time"
)

const (
	defaultAge            = 30
	minimumDailyCalories  = 1200
	defaultActivityFactor = 1.55
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// Also used by the API to validate profile updates.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// goalAdjustments is the kcal delta applied on top of TDEE per goal.
var goalAdjustments = map[string]int{
	"lose_weight":     -500,
	"maintain_weight": 0,
	"gain_weight":     500,
	"build_muscle":    300,
	"improve_health":  0,
}

// PatientProfile is the read-only subset of a patient record the estimator
// needs. Nil pointers mean the backend has no value for that field.
type PatientProfile struct {
	ID              string
	Gender          *string
	HeightCM        *float64
	CurrentWeightKG *float64
	DateOfBirth     *time.Time
	ActivityLevel   *string
	Goal            *string
}

// EnergyEstimate is the result of Estimate. All values are kcal/day.
type EnergyEstimate struct {
	BMR           int `json:"bmr"`
	TDEE          int `json:"tdee"`
	DailyCalories int `json:"daily_calories"`
}

// ValidActivityLevel reports whether level has a known multiplier.
func ValidActivityLevel(level string) bool {
	_, ok := activityMultipliers[level]
	return ok
}

// ValidGoal reports whether goal is one of the known goal values.
func ValidGoal(goal string) bool {
	_, ok := goalAdjustments[goal]
	return ok
}

// ValidGender reports whether g is male or female.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// AgeOn returns completed years between dob and asOf.
func AgeOn(dob, asOf time.Time) int {
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}

// Estimate computes BMR (Mifflin-St Jeor), TDEE and the goal-adjusted daily
// calorie target for p as of the given instant. Returns ok=false when weight,
// height, gender or activity level is missing or unusable; callers fall back
// to a stored or default value (see ResolveDailyCalories).
func Estimate(p PatientProfile, asOf time.Time) (est EnergyEstimate, ok bool) {
	if p.Gender == nil || p.HeightCM == nil || p.CurrentWeightKG == nil || p.ActivityLevel == nil {
		return EnergyEstimate{}, false
	}
	if *p.HeightCM <= 0 || *p.CurrentWeightKG <= 0 || !ValidGender(*p.Gender) {
		return EnergyEstimate{}, false
	}

	age := defaultAge
	if p.DateOfBirth != nil {
		age = AgeOn(*p.DateOfBirth, asOf)
		// DOB in the future or implausibly old
		if age < 0 || age > 130 {
			return EnergyEstimate{}, false
		}
	}

	bmrF := 10**p.CurrentWeightKG + 6.25**p.HeightCM - 5*float64(age)
	if *p.Gender == GenderMale {
		bmrF += 5
	} else {
		bmrF -= 161
	}
	bmr := int(math.Round(bmrF))

	mult, found := activityMultipliers[*p.ActivityLevel]
	if !found {
		mult = defaultActivityFactor
	}
	tdee := int(math.Round(float64(bmr) * mult))

	adjust := 0
	if p.Goal != nil {
		adjust = goalAdjustments[*p.Goal]
	}
	daily := tdee + adjust
	if daily < minimumDailyCalories {
		daily = minimumDailyCalories
	}

	return EnergyEstimate{BMR: bmr, TDEE: tdee, DailyCalories: daily}, true
}
