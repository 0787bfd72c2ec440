// CLI for the nutrition calculations without a database: energy estimates,
// plan generation and diet resolution. Prints JSON.
// Usage: go run ./cmd/mealplan <command> [flags]
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lg/clinic-nutrition-api/nutrition"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mealplan",
		Short:        "Clinic nutrition calculations from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("templates", "", "Template YAML file (default: built-in templates)")

	root.AddCommand(estimateCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(dietTypesCmd())
	root.AddCommand(foodsCmd())
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadLibrary honors the --templates flag.
func loadLibrary(cmd *cobra.Command) (*nutrition.TemplateLibrary, error) {
	path, _ := cmd.Flags().GetString("templates")
	if path == "" {
		return nutrition.LoadDefaultTemplates()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return nutrition.LoadTemplates(f)
}

func parseDate(flag, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DD", flag, s)
	}
	return t, nil
}

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate BMR, TDEE, daily calories and macro targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			gender, _ := cmd.Flags().GetString("gender")
			height, _ := cmd.Flags().GetFloat64("height")
			weight, _ := cmd.Flags().GetFloat64("weight")
			activity, _ := cmd.Flags().GetString("activity")
			goal, _ := cmd.Flags().GetString("goal")
			dob, _ := cmd.Flags().GetString("dob")
			asOfStr, _ := cmd.Flags().GetString("as-of")

			p := nutrition.PatientProfile{
				Gender:          &gender,
				HeightCM:        &height,
				CurrentWeightKG: &weight,
				ActivityLevel:   &activity,
				Goal:            &goal,
			}
			if dob != "" {
				t, err := parseDate("dob", dob)
				if err != nil {
					return err
				}
				p.DateOfBirth = &t
			}
			asOf := time.Now()
			if asOfStr != "" {
				t, err := parseDate("as-of", asOfStr)
				if err != nil {
					return err
				}
				asOf = t
			}

			est, ok := nutrition.Estimate(p, asOf)
			if !ok {
				return fmt.Errorf("insufficient profile data: gender, height, weight and activity are required")
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				nutrition.EnergyEstimate
				Macros nutrition.MacroTargets `json:"macros"`
			}{est, nutrition.AllocateMacros(est.DailyCalories, goal, weight)})
		},
	}
	cmd.Flags().String("gender", "", "male or female")
	cmd.Flags().Float64("height", 0, "Height in cm")
	cmd.Flags().Float64("weight", 0, "Weight in kg")
	cmd.Flags().String("activity", "moderate", "sedentary, light, moderate, active, very_active")
	cmd.Flags().String("goal", "maintain_weight", "lose_weight, maintain_weight, gain_weight, build_muscle, improve_health")
	cmd.Flags().String("dob", "", "Date of birth YYYY-MM-DD (age 30 when omitted)")
	cmd.Flags().String("as-of", "", "Date to compute age on (default today)")
	return cmd
}

// planDay is a generated day with its rounded totals.
type planDay struct {
	nutrition.DayPlan
	Totals nutrition.Nutrients `json:"totals"`
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a meal plan from the diet templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary(cmd)
			if err != nil {
				return err
			}
			diet, _ := cmd.Flags().GetString("diet")
			days, _ := cmd.Flags().GetInt("days")
			startStr, _ := cmd.Flags().GetString("start")
			endStr, _ := cmd.Flags().GetString("end")
			lang, _ := cmd.Flags().GetString("lang")

			start := time.Now()
			if startStr != "" {
				if start, err = parseDate("start", startStr); err != nil {
					return err
				}
			}
			if endStr != "" {
				end, err := parseDate("end", endStr)
				if err != nil {
					return err
				}
				if days, err = nutrition.PeriodDays(start, end); err != nil {
					return err
				}
			}

			plan, err := nutrition.NewGenerator(lib, lang).Generate(diet, days, start)
			if err != nil {
				return err
			}
			out := make([]planDay, len(plan))
			for i, d := range plan {
				out[i] = planDay{DayPlan: d, Totals: d.Totals().Rounded()}
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				DietType     nutrition.DietType  `json:"diet_type"`
				Days         []planDay           `json:"days"`
				PeriodTotals nutrition.Nutrients `json:"period_totals"`
			}{nutrition.ResolveDietType(diet), out, nutrition.PeriodTotals(plan).Rounded()})
		},
	}
	cmd.Flags().String("diet", "balanced", "Diet type or free-text diet label")
	cmd.Flags().Int("days", 7, "Number of days (ignored when --end is set)")
	cmd.Flags().String("start", "", "First day YYYY-MM-DD (default today)")
	cmd.Flags().String("end", "", "Last day YYYY-MM-DD, inclusive")
	cmd.Flags().String("lang", "en", "Display language: en or ar")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <label>",
		Short: "Resolve a free-text diet label to a diet type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.Join(args, " ")
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"label":     label,
				"diet_type": string(nutrition.ResolveDietType(label)),
			})
		},
	}
}

func dietTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diet-types",
		Short: "List diet types and their template cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary(cmd)
			if err != nil {
				return err
			}
			type entry struct {
				DietType  nutrition.DietType `json:"diet_type"`
				Templates []string           `json:"templates"`
			}
			var out []entry
			for _, d := range lib.DietTypes() {
				e := entry{DietType: d}
				for _, t := range lib.Templates(d) {
					e.Templates = append(e.Templates, t.Name)
				}
				out = append(out, e)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func foodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "foods",
		Short: "List the food nutrient table",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), lib.Foods())
		},
	}
}
