package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// suggestConfig points the suggester at an OpenAI-compatible API.
type suggestConfig struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// suggestRequest is the request body for POST /api/meals/suggest.
type suggestRequest struct {
	Description string `json:"description"`
	MealType    string `json:"meal_type"`
	Lang        string `json:"lang"`
}

// suggestionResponse is a parsed meal with its computed totals. Confidence
// is 1-5 indicating how accurate the nutrient values are.
type suggestionResponse struct {
	Meal       nutrition.Meal      `json:"meal"`
	Totals     nutrition.Nutrients `json:"totals"`
	Confidence int                 `json:"confidence"`
}

// mealShares is the fraction of the daily target each meal type should carry.
var mealShares = map[nutrition.MealType]float64{
	nutrition.Breakfast: 0.25,
	nutrition.Lunch:     0.35,
	nutrition.Dinner:    0.30,
	nutrition.Snack:     0.10,
}

/* ─── OpenAI prompt constants ────────────────────────────────────────── */

const mealSystemPrompt = `You are a clinical nutrition assistant. Parse the meal description into its ingredients and return a JSON object with:
- "name" (string, cleaned up title case meal name)
- "name_ar" (string, the meal name in Arabic)
- "meal_type" (one of: breakfast, lunch, dinner, snack)
- "ingredients" (array of objects, each with:
    "food_name" (string, English), "food_name_ar" (string, Arabic),
    "amount" (number, grams eaten),
    "calories_per_100g", "protein_per_100g", "carbs_per_100g", "fat_per_100g", "fiber_per_100g" (numbers, per 100 g of the food))
- "confidence" (integer 1-5: 5=exact known nutritional data, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Nutrient values must be per 100 g, never totals for the amount. Estimate gram amounts for household measures.
Always provide your best estimate, even for unfamiliar or vague dishes. Only return {"error": "unrecognized"} if the input is not food at all (e.g. random characters, non-food objects).
Return only valid JSON, no explanation.`

// mealTargetHint is appended when the patient's daily target is known.
const mealTargetHint = `
The patient's %s should provide about %d kcal. If the description leaves portions open, size them toward that.`

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat map[string]any  `json:"response_format"`
}

var errSuggestDisabled = errors.New("suggest API key not set")

// callOpenAI sends a chat completions request and returns the raw content string
// from the first choice. Uses raw net/http to avoid pulling in the OpenAI SDK.
func callOpenAI(ctx context.Context, cfg suggestConfig, messages []openAIMessage) (string, error) {
	if cfg.apiKey == "" {
		return "", errSuggestDisabled
	}
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	reqBody := openAIRequest{
		Model:       cfg.model,
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: map[string]any{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(cfg.baseURL, "/")+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.apiKey)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	// Parse the response to extract choices[0].message.content
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

/* ─── Handler ────────────────────────────────────────────────────────── */

// suggestMeal handles POST /api/meals/suggest.
// Accepts a free-text meal description, asks the model to break it into
// per-100g ingredients, and returns the normalized meal with its totals.
func (h *Handler) suggestMeal(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}
	mealType, typed := nutrition.ParseMealType(req.MealType)
	if req.MealType != "" && !typed {
		apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
		return
	}

	messages := []openAIMessage{
		{Role: "system", Content: mealSystemPrompt + h.targetHint(c, mealType)},
		{Role: "user", Content: req.Description},
	}

	content, err := callOpenAI(c.Request.Context(), h.suggest, messages)
	if err != nil {
		log.Error().Err(err).Msg("[suggest] OpenAI error")
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	resp, recognized, err := parseSuggestion(content, mealType)
	if err != nil {
		log.Error().Err(err).Msg("[suggest] failed to parse OpenAI response")
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}
	if !recognized {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseSuggestion decodes the model's JSON into a normalized meal. Returns
// recognized=false when the model declined or produced no usable ingredient.
// A requested meal type overrides whatever the model chose.
func parseSuggestion(content string, want nutrition.MealType) (suggestionResponse, bool, error) {
	var raw struct {
		nutrition.RawMeal
		Confidence int    `json:"confidence"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return suggestionResponse{}, false, err
	}
	if raw.Error == "unrecognized" {
		return suggestionResponse{}, false, nil
	}

	meal := raw.RawMeal.Normalize()
	kept := meal.Ingredients[:0]
	for _, ing := range meal.Ingredients {
		if ing.Name != "" && ing.AmountG > 0 {
			kept = append(kept, ing)
		}
	}
	meal.Ingredients = kept
	if meal.Name == "" || len(meal.Ingredients) == 0 {
		return suggestionResponse{}, false, nil
	}
	if want != "" {
		meal.Type = want
	}

	return suggestionResponse{
		Meal:       meal,
		Totals:     meal.Totals().Rounded(),
		Confidence: raw.Confidence,
	}, true, nil
}

// targetHint tells the model how many calories this meal should carry for
// the caller. Empty when the meal type or the daily target is unknown.
func (h *Handler) targetHint(c *gin.Context, mealType nutrition.MealType) string {
	if h.db == nil || mealType == "" {
		return ""
	}
	target, err := h.loadTarget(c, c.GetInt("user_id"))
	if err != nil || target == nil {
		return ""
	}
	kcal := int(float64(target.Calories)*mealShares[mealType] + 0.5)
	return fmt.Sprintf(mealTargetHint, mealType, kcal)
}
