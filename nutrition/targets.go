package nutrition

// CalorieSource records which link of the fallback chain produced a daily
// calorie value.
type CalorieSource string

const (
	SourceAPI         CalorieSource = "api"
	SourceComputed    CalorieSource = "computed"
	SourceStored      CalorieSource = "stored"
	SourceUnavailable CalorieSource = "unavailable"
)

// CalorieResolution is the outcome of ResolveDailyCalories.
type CalorieResolution struct {
	Calories int           `json:"calories"`
	Source   CalorieSource `json:"source"`
}

// ResolveDailyCalories walks the fallback chain API-supplied value, freshly
// computed estimate, previously stored value. Non-positive values are
// skipped. ok=false means no link had a value.
func ResolveDailyCalories(apiSupplied *int, computed *EnergyEstimate, stored *int) (CalorieResolution, bool) {
	switch {
	case apiSupplied != nil && *apiSupplied > 0:
		return CalorieResolution{Calories: *apiSupplied, Source: SourceAPI}, true
	case computed != nil && computed.DailyCalories > 0:
		return CalorieResolution{Calories: computed.DailyCalories, Source: SourceComputed}, true
	case stored != nil && *stored > 0:
		return CalorieResolution{Calories: *stored, Source: SourceStored}, true
	}
	return CalorieResolution{Source: SourceUnavailable}, false
}
