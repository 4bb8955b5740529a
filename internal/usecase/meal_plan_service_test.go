package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartration/backend/internal/domain"
)

func sampleMealPlanRequest() *domain.MealPlanRequest {
	return &domain.MealPlanRequest{
		Receipt: domain.ReceiptRecord{
			Store: "FRESH MARKET",
			Date:  "2024-03-15",
			Total: 12.27,
			Items: []domain.ReceiptItem{
				{Name: "Chicken Breast", UnitPrice: 5.99, Quantity: 1},
				{Name: "Milk", UnitPrice: 3.49, Quantity: 2},
				{Name: "Bananas", UnitPrice: 1.29, Quantity: 1},
			},
		},
		Preferences: domain.UserPreferences{
			Allergies:     []string{"peanuts"},
			HouseholdSize: 2,
		},
	}
}

func newTestMealPlanService(llm domain.LLMClient) *MealPlanService {
	return NewMealPlanService(llm, MealPlanServiceConfig{Now: fixedNow(2024, time.March, 16)})
}

func TestMealPlanService_GenerateMealPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the model plan", func(t *testing.T) {
		llm := &MockLLMClient{response: "Sure! Here is the plan.\n" + validMealPlanJSON + "\nLet me know."}
		svc := newTestMealPlanService(llm)

		plan, err := svc.GenerateMealPlan(ctx, sampleMealPlanRequest())
		require.NoError(t, err)

		assert.Equal(t, "llm", plan.Source)
		require.Len(t, plan.Days, 1)
		assert.Equal(t, "Banana Oats", plan.Days[0].Breakfast.Name)
		assert.Equal(t, time.Date(2024, time.March, 16, 9, 30, 0, 0, time.UTC), plan.GeneratedAt)

		require.Len(t, llm.opts, 1)
		assert.Equal(t, domain.CompletionOptions{MaxTokens: 4000, Temperature: 0.7}, llm.opts[0])
	})

	t.Run("unusable reply falls back", func(t *testing.T) {
		svc := newTestMealPlanService(&MockLLMClient{response: "I'd love to help, but I can't."})

		plan, err := svc.GenerateMealPlan(ctx, sampleMealPlanRequest())
		require.NoError(t, err)

		assert.Equal(t, "fallback", plan.Source)
		assert.Equal(t, FallbackMealPlan(), plan.Days)
	})

	t.Run("reply missing a meal falls back", func(t *testing.T) {
		svc := newTestMealPlanService(&MockLLMClient{response: `{"mealPlans": [{"day": "Day 1", "breakfast": {"name": "Toast"}}]}`})

		plan, err := svc.GenerateMealPlan(ctx, sampleMealPlanRequest())
		require.NoError(t, err)
		assert.Equal(t, "fallback", plan.Source)
	})

	errorTests := []struct {
		name    string
		request *domain.MealPlanRequest
		llmErr  error
		wantErr error
	}{
		{"nil request", nil, nil, domain.ErrInvalidRequest},
		{"no items", &domain.MealPlanRequest{}, nil, domain.ErrInvalidRequest},
		{"transport failure", sampleMealPlanRequest(), errors.New("connection reset"), domain.ErrLLMAPIFailure},
		{"api failure", sampleMealPlanRequest(), domain.ErrLLMAPIFailure, domain.ErrLLMAPIFailure},
		{"rate limited", sampleMealPlanRequest(), domain.ErrRateLimited, domain.ErrRateLimited},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &MockLLMClient{err: tt.llmErr}
			svc := newTestMealPlanService(llm)

			plan, err := svc.GenerateMealPlan(ctx, tt.request)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid requests never reach the model", func(t *testing.T) {
		llm := &MockLLMClient{}
		_, _ = newTestMealPlanService(llm).GenerateMealPlan(ctx, &domain.MealPlanRequest{})
		assert.Empty(t, llm.prompts)
	})
}

func TestMealPlanService_BuildPrompt(t *testing.T) {
	svc := newTestMealPlanService(&MockLLMClient{})

	t.Run("receipt and preferences", func(t *testing.T) {
		req := sampleMealPlanRequest()
		prompt := svc.BuildPrompt(req.Receipt, req.Preferences)

		assert.Contains(t, prompt, "Store: FRESH MARKET\n")
		assert.Contains(t, prompt, "Total Spent: $12.27\n")
		assert.Contains(t, prompt, "Date: 2024-03-15\n")
		assert.Contains(t, prompt, "PROTEINS:\n- Chicken Breast ($5.99)\n")
		assert.Contains(t, prompt, "DAIRY:\n- Milk x2 ($3.49)\n")
		assert.Contains(t, prompt, "FRUITS:\n- Bananas ($1.29)\n")
		assert.Contains(t, prompt, "Allergies: peanuts\n")
		assert.Contains(t, prompt, "Household Size: 2 people\n")
		assert.Contains(t, prompt, "Spice Tolerance: 3/5\n")
		assert.Contains(t, prompt, "Max Daily Budget: $15.00\n")
		assert.Contains(t, prompt, `"mealPlans"`)
		assert.NotContains(t, prompt, "Dietary Restrictions")
		assert.NotContains(t, prompt, "Cooking for Children")
	})

	t.Run("unknown store and date", func(t *testing.T) {
		prompt := svc.BuildPrompt(domain.ReceiptRecord{Store: domain.UnknownStore}, domain.UserPreferences{
			HasChildren:    true,
			SpiceTolerance: 5,
			MaxSpending:    22.5,
		})

		assert.Contains(t, prompt, "Store: Unknown\n")
		assert.Contains(t, prompt, "Date: Recent\n")
		assert.Contains(t, prompt, "Cooking for Children: Yes (Ages: Not specified)\n")
		assert.Contains(t, prompt, "Spice Tolerance: 5/5\n")
		assert.Contains(t, prompt, "Max Daily Budget: $22.50\n")
	})
}

func TestFallbackMealPlan(t *testing.T) {
	days := FallbackMealPlan()
	require.Len(t, days, 1)

	day := days[0]
	assert.InDelta(t, day.Breakfast.Cost+day.Lunch.Cost+day.Dinner.Cost, day.TotalDailyCost, 1e-9)
	for _, meal := range []domain.Meal{day.Breakfast, day.Lunch, day.Dinner} {
		assert.NotEmpty(t, meal.Name)
		assert.NotEmpty(t, meal.Ingredients)
	}
}
