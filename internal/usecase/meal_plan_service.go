package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/smartration/backend/internal/domain"
)

const (
	defaultSpiceTolerance = 3
	defaultMaxSpending    = 15.0
)

// MealPlanServiceConfig holds configuration for the meal plan service
type MealPlanServiceConfig struct {
	MaxTokens          int
	Temperature        float64
	EnableDebugLogging bool
	Now                func() time.Time
}

// MealPlanService turns a parsed receipt into a meal plan via the LLM
type MealPlanService struct {
	llm                domain.LLMClient
	categorizer        *ItemCategorizer
	output             *StructuredOutput
	opts               domain.CompletionOptions
	enableDebugLogging bool
	now                func() time.Time
}

// NewMealPlanService creates a meal plan service
func NewMealPlanService(llm domain.LLMClient, config MealPlanServiceConfig) *MealPlanService {
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &MealPlanService{
		llm:                llm,
		categorizer:        NewItemCategorizer(),
		output:             mustStructuredOutput("meal-plan", mealPlanSchema),
		opts:               domain.CompletionOptions{MaxTokens: maxTokens, Temperature: temperature},
		enableDebugLogging: config.EnableDebugLogging,
		now:                now,
	}
}

// GenerateMealPlan asks the model for a plan that uses only the receipt's items.
// An unusable model reply yields FallbackMealPlan; a failed call is returned.
func (s *MealPlanService) GenerateMealPlan(ctx context.Context, request *domain.MealPlanRequest) (*domain.MealPlan, error) {
	if request == nil || len(request.Receipt.Items) == 0 {
		return nil, fmt.Errorf("%w: receipt has no items", domain.ErrInvalidRequest)
	}

	prompt := s.BuildPrompt(request.Receipt, request.Preferences)
	if s.enableDebugLogging {
		log.Printf("[MEALPLAN] Prompt (%d chars) for %d items", len(prompt), len(request.Receipt.Items))
	}

	response, err := s.llm.Complete(ctx, prompt, s.opts)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrLLMAPIFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMAPIFailure, err)
	}

	var doc struct {
		MealPlans []domain.DayPlan `json:"mealPlans"`
	}
	if err := s.output.Decode(response, &doc); err != nil {
		log.Printf("[MEALPLAN] Using fallback plan: %v", err)
		return &domain.MealPlan{
			Days:        FallbackMealPlan(),
			Source:      "fallback",
			GeneratedAt: s.now().UTC(),
		}, nil
	}

	log.Printf("[MEALPLAN] Generated %d day plans from %d items", len(doc.MealPlans), len(request.Receipt.Items))

	return &domain.MealPlan{
		Days:        doc.MealPlans,
		Source:      "llm",
		GeneratedAt: s.now().UTC(),
	}, nil
}

// BuildPrompt renders the receipt and preferences into the planning prompt
func (s *MealPlanService) BuildPrompt(receipt domain.ReceiptRecord, prefs domain.UserPreferences) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist and meal planning expert. ")
	b.WriteString("Create a personalized meal plan using ONLY the ingredients from this grocery receipt. ")
	b.WriteString("The goal is to make nutritious, delicious meals that will last until the next grocery shopping trip.\n\n")

	store := receipt.Store
	if store == "" || store == domain.UnknownStore {
		store = "Unknown"
	}
	date := receipt.Date
	if date == "" {
		date = "Recent"
	}

	b.WriteString("RECEIPT DATA:\n")
	fmt.Fprintf(&b, "Store: %s\n", store)
	fmt.Fprintf(&b, "Total Spent: $%.2f\n", receipt.Total)
	fmt.Fprintf(&b, "Date: %s\n\n", date)

	b.WriteString("INGREDIENTS AVAILABLE:\n")
	for _, group := range s.categorizer.Group(receipt.Items) {
		fmt.Fprintf(&b, "%s:\n", strings.ToUpper(group.Category))
		for _, item := range group.Items {
			if item.Quantity > 1 {
				fmt.Fprintf(&b, "- %s x%d ($%.2f)\n", item.Name, item.Quantity, item.UnitPrice)
			} else {
				fmt.Fprintf(&b, "- %s ($%.2f)\n", item.Name, item.UnitPrice)
			}
		}
	}

	b.WriteString("\nUSER PREFERENCES:\n")
	writePreferences(&b, prefs)

	spice := prefs.SpiceTolerance
	if spice == 0 {
		spice = defaultSpiceTolerance
	}
	maxSpending := prefs.MaxSpending
	if maxSpending == 0 {
		maxSpending = defaultMaxSpending
	}
	fmt.Fprintf(&b, "Spice Tolerance: %d/5\n", spice)
	fmt.Fprintf(&b, "Max Daily Budget: $%.2f\n\n", maxSpending)

	b.WriteString(mealPlanRequirements)
	return b.String()
}

// writePreferences appends only the preferences the user actually set
func writePreferences(b *strings.Builder, prefs domain.UserPreferences) {
	if len(prefs.DietaryRestrictions) > 0 {
		fmt.Fprintf(b, "Dietary Restrictions: %s\n", strings.Join(prefs.DietaryRestrictions, ", "))
	}
	if len(prefs.Allergies) > 0 {
		fmt.Fprintf(b, "Allergies: %s\n", strings.Join(prefs.Allergies, ", "))
	}
	if prefs.HouseholdSize > 0 {
		fmt.Fprintf(b, "Household Size: %d people\n", prefs.HouseholdSize)
	}
	if len(prefs.FoodPreferences) > 0 {
		fmt.Fprintf(b, "Food Preferences: %s\n", strings.Join(prefs.FoodPreferences, ", "))
	}
	if len(prefs.CuisinePreferences) > 0 {
		fmt.Fprintf(b, "Cuisine Preferences: %s\n", strings.Join(prefs.CuisinePreferences, ", "))
	}
	if prefs.AvoidIngredients != "" {
		fmt.Fprintf(b, "Ingredients to Avoid: %s\n", prefs.AvoidIngredients)
	}
	if prefs.HasChildren {
		ages := prefs.ChildrenAges
		if ages == "" {
			ages = "Not specified"
		}
		fmt.Fprintf(b, "Cooking for Children: Yes (Ages: %s)\n", ages)
	}
	if prefs.SpecialDietary != "" {
		fmt.Fprintf(b, "Special Dietary Needs: %s\n", prefs.SpecialDietary)
	}
}

const mealPlanRequirements = `REQUIREMENTS:
1. Use ONLY the ingredients listed above
2. Plan as many days of meals as the ingredients reasonably allow
3. Ensure meals are nutritious, balanced, and sustainable
4. Consider food preservation and storage to make ingredients last
5. Include step-by-step cooking instructions
6. Provide nutritional information (protein, carbs, fat, calories)
7. Calculate cost per meal using the provided prices
8. Include prep time in minutes for each meal
9. Respect all dietary restrictions, allergies and avoided ingredients
10. If cooking for children, keep meals kid-friendly

FORMAT YOUR RESPONSE AS JSON:
{
  "mealPlans": [
    {
      "day": "Day 1",
      "breakfast": {
        "name": "Meal Name",
        "ingredients": ["ingredient1", "ingredient2"],
        "instructions": "Step-by-step cooking instructions",
        "nutritionalInfo": "Protein: Xg, Carbs: Xg, Fat: Xg, Calories: X",
        "cost": 2.50,
        "prepTime": 15
      },
      "lunch": { ... },
      "dinner": { ... },
      "totalDailyCost": 8.50
    }
  ]
}`

// FallbackMealPlan is served when the model reply cannot be used
func FallbackMealPlan() []domain.DayPlan {
	return []domain.DayPlan{
		{
			Day: "Day 1",
			Breakfast: domain.Meal{
				Name:            "Simple Breakfast",
				Ingredients:     []string{"Bread", "Eggs", "Butter"},
				Instructions:    "Toast bread and fry eggs. Serve with butter.",
				NutritionalInfo: "Protein: 12g, Carbs: 15g, Fat: 8g, Calories: 200",
				Cost:            2.00,
				PrepTime:        10,
			},
			Lunch: domain.Meal{
				Name:            "Basic Lunch",
				Ingredients:     []string{"Bread", "Cheese", "Vegetables"},
				Instructions:    "Make a sandwich with cheese and vegetables.",
				NutritionalInfo: "Protein: 15g, Carbs: 25g, Fat: 10g, Calories: 300",
				Cost:            3.00,
				PrepTime:        5,
			},
			Dinner: domain.Meal{
				Name:            "Simple Dinner",
				Ingredients:     []string{"Pasta", "Tomato sauce", "Cheese"},
				Instructions:    "Cook pasta, add sauce and cheese.",
				NutritionalInfo: "Protein: 18g, Carbs: 45g, Fat: 12g, Calories: 400",
				Cost:            4.00,
				PrepTime:        20,
			},
			TotalDailyCost: 9.00,
		},
	}
}
