package main

import (
	"time"

	"lg/clinic-nutrition-api/nutrition"
)

// toNutritionProfile copies the fields the estimator needs off a stored profile.
func toNutritionProfile(p *patientProfile) nutrition.PatientProfile {
	np := nutrition.PatientProfile{
		Gender:          p.Gender,
		HeightCM:        p.HeightCM,
		CurrentWeightKG: p.CurrentWeightKG,
		ActivityLevel:   p.ActivityLevel,
		Goal:            p.Goal,
	}
	if p.DateOfBirth != nil && !p.DateOfBirth.IsZero() {
		dob := p.DateOfBirth.Time
		np.DateOfBirth = &dob
	}
	return np
}

// populateComputed fills the computed-only fields on p as of asOf. The
// energy fields stay nil when the profile is incomplete; the daily calorie
// value then falls back to the stored one.
func populateComputed(p *patientProfile, asOf time.Time) {
	var computed *nutrition.EnergyEstimate
	if est, ok := nutrition.Estimate(toNutritionProfile(p), asOf); ok {
		computed = &est
		p.ComputedBMR = &est.BMR
		p.ComputedTDEE = &est.TDEE
		p.CalculatedDailyCalories = &est.DailyCalories
	}

	res, ok := nutrition.ResolveDailyCalories(p.DailyCalories, computed, p.StoredDailyCalories)
	p.DailyCaloriesSource = res.Source
	if !ok {
		return
	}
	p.ResolvedDailyCalories = &res.Calories

	// Macro targets need a weight to size protein
	if p.CurrentWeightKG == nil || *p.CurrentWeightKG <= 0 {
		return
	}
	goal := ""
	if p.Goal != nil {
		goal = *p.Goal
	}
	m := nutrition.AllocateMacros(res.Calories, goal, *p.CurrentWeightKG)
	p.ProteinTargetG = &m.ProteinG
	p.CarbsTargetG = &m.CarbsG
	p.FatTargetG = &m.FatG
	p.MacrosOverallocated = m.Overallocated
}

// targetFor returns the day target implied by a populated profile, or nil
// when no daily calorie value could be resolved.
func targetFor(p *patientProfile) *dayTarget {
	if p.ResolvedDailyCalories == nil {
		return nil
	}
	return &dayTarget{Calories: *p.ResolvedDailyCalories, ProteinG: p.ProteinTargetG}
}

// mondayOf returns the Monday of the week containing t at midnight UTC.
// AddDate keeps month and year boundaries correct; direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func mondayOf(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	d := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
