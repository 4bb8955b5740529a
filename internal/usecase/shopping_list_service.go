package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smartration/backend/internal/domain"
)

const (
	maxPlanDays        = 30
	mealsPerDay        = 3
	categoryBudgetFlex = 1.2
)

// Priorities of catalog items, in allocation order
var priorityOrder = []string{"high", "medium", "low"}

// catalogItem is one entry of the built-in budget food database
type catalogItem struct {
	Name     string
	Price    float64
	Unit     string
	Priority string
}

// fallbackCatalog is used when no model-generated list is available
var fallbackCatalog = map[string][]catalogItem{
	CategoryProteins: {
		{"Chicken Breast", 2.99, "lb", "high"},
		{"Ground Beef (80/20)", 3.49, "lb", "high"},
		{"Eggs (Dozen)", 2.49, "dozen", "high"},
		{"Canned Tuna", 1.29, "can", "medium"},
		{"Pork Chops", 2.79, "lb", "medium"},
		{"Turkey Ground", 3.99, "lb", "medium"},
		{"Canned Beans (Black)", 0.89, "can", "low"},
		{"Lentils (Dry)", 1.49, "lb", "low"},
	},
	CategoryVegetables: {
		{"Onions", 0.99, "lb", "high"},
		{"Carrots", 0.89, "lb", "high"},
		{"Potatoes", 0.79, "lb", "high"},
		{"Cabbage", 0.69, "lb", "medium"},
		{"Frozen Mixed Vegetables", 1.49, "bag", "medium"},
		{"Spinach (Frozen)", 1.29, "bag", "medium"},
		{"Bell Peppers", 1.99, "lb", "low"},
		{"Broccoli", 1.49, "lb", "low"},
	},
	CategoryGrains: {
		{"White Rice (5lb)", 4.99, "bag", "high"},
		{"Bread (Whole Wheat)", 2.49, "loaf", "high"},
		{"Pasta (Spaghetti)", 1.29, "lb", "high"},
		{"Oatmeal (Quick)", 2.99, "container", "medium"},
		{"Tortillas (Corn)", 1.99, "pack", "medium"},
		{"Flour (All Purpose)", 2.49, "5lb", "low"},
	},
	CategoryDairy: {
		{"Milk (2%)", 3.49, "gallon", "high"},
		{"Cheese (Cheddar)", 2.99, "8oz", "medium"},
		{"Butter", 3.99, "lb", "medium"},
		{"Yogurt (Plain)", 2.49, "32oz", "low"},
		{"Cottage Cheese", 2.99, "16oz", "low"},
	},
	CategoryPantry: {
		{"Cooking Oil", 2.99, "bottle", "high"},
		{"Salt", 0.99, "container", "high"},
		{"Black Pepper", 1.49, "container", "medium"},
		{"Garlic Powder", 1.29, "container", "medium"},
		{"Tomato Sauce", 1.19, "can", "medium"},
		{"Chicken Broth", 1.49, "box", "low"},
		{"Soy Sauce", 1.99, "bottle", "low"},
	},
	CategoryFruits: {
		{"Bananas", 0.59, "lb", "high"},
		{"Apples", 1.99, "lb", "medium"},
		{"Oranges", 1.49, "lb", "medium"},
		{"Frozen Mixed Berries", 2.99, "bag", "low"},
	},
	CategorySnacks: {
		{"Peanut Butter", 2.49, "jar", "medium"},
		{"Crackers", 1.99, "box", "low"},
		{"Popcorn Kernels", 1.49, "bag", "low"},
	},
}

// daysPerItem is how many person-days one unit of a category covers
var daysPerItem = map[string]int{
	CategoryProteins:   3,
	CategoryVegetables: 2,
	CategoryGrains:     4,
	CategoryDairy:      5,
}

var (
	meatTerms  = []string{"chicken", "beef", "pork", "turkey", "tuna"}
	animalTerm = []string{"milk", "cheese", "butter", "yogurt", "eggs"}
)

// ShoppingListServiceConfig holds configuration for the shopping list service
type ShoppingListServiceConfig struct {
	MaxTokens   int
	Temperature float64
	Now         func() time.Time
}

// ShoppingListService builds budgeted shopping lists. The LLM is optional;
// without it every list comes from the built-in catalog.
type ShoppingListService struct {
	llm    domain.LLMClient
	output *StructuredOutput
	opts   domain.CompletionOptions
	now    func() time.Time
}

// NewShoppingListService creates a shopping list service. llm may be nil.
func NewShoppingListService(llm domain.LLMClient, config ShoppingListServiceConfig) *ShoppingListService {
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ShoppingListService{
		llm:    llm,
		output: mustStructuredOutput("shopping-list", shoppingListSchema),
		opts:   domain.CompletionOptions{MaxTokens: maxTokens, Temperature: temperature},
		now:    now,
	}
}

// Generate returns a shopping list for the request, preferring the model
// and falling back to the built-in catalog on any model failure.
func (s *ShoppingListService) Generate(ctx context.Context, request *domain.ShoppingListRequest) (*domain.ShoppingList, error) {
	if err := validateShoppingListRequest(request); err != nil {
		return nil, err
	}

	if s.llm != nil {
		list, err := s.generateWithLLM(ctx, request)
		if err == nil {
			log.Printf("[SHOPPING] Generated %d items via LLM, total=%.2f", len(list.Items), list.TotalCost)
			return list, nil
		}
		log.Printf("[SHOPPING] LLM generation failed, using fallback catalog: %v", err)
	}

	list := s.GenerateFallback(request)
	log.Printf("[SHOPPING] Generated %d items from fallback catalog, total=%.2f", len(list.Items), list.TotalCost)
	return list, nil
}

func validateShoppingListRequest(request *domain.ShoppingListRequest) error {
	if request == nil {
		return domain.ErrInvalidRequest
	}
	if request.Budget <= 0 {
		return fmt.Errorf("%w: budget must be positive", domain.ErrInvalidRequest)
	}
	if request.DaysToPlan < 1 || request.DaysToPlan > maxPlanDays {
		return fmt.Errorf("%w: daysToPlan must be between 1 and %d", domain.ErrInvalidRequest, maxPlanDays)
	}
	if len(request.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", domain.ErrInvalidRequest)
	}
	return nil
}

// llmShoppingList is the document shape requested from the model
type llmShoppingList struct {
	Name  string `json:"name"`
	Items []struct {
		Name           string  `json:"name"`
		Category       string  `json:"category"`
		EstimatedPrice float64 `json:"estimatedPrice"`
		Quantity       int     `json:"quantity"`
		Unit           string  `json:"unit"`
		Priority       string  `json:"priority"`
		Notes          string  `json:"notes"`
	} `json:"items"`
	TotalCost      float64 `json:"totalCost"`
	EstimatedMeals int     `json:"estimatedMeals"`
	DaysOfFood     int     `json:"daysOfFood"`
}

func (s *ShoppingListService) generateWithLLM(ctx context.Context, request *domain.ShoppingListRequest) (*domain.ShoppingList, error) {
	response, err := s.llm.Complete(ctx, buildShoppingListPrompt(request), s.opts)
	if err != nil {
		return nil, err
	}

	var doc llmShoppingList
	if err := s.output.Decode(response, &doc); err != nil {
		return nil, err
	}

	household := householdSize(request.Preferences)
	list := &domain.ShoppingList{
		ID:             uuid.NewString(),
		Name:           doc.Name,
		Items:          make([]domain.ShoppingItem, 0, len(doc.Items)),
		TotalCost:      doc.TotalCost,
		EstimatedMeals: doc.EstimatedMeals,
		DaysOfFood:     doc.DaysOfFood,
		CreatedAt:      s.now().UTC(),
		Metadata:       domain.ShoppingListMetadata{GeneratedBy: "llm", Timestamp: s.now().UTC()},
	}
	if list.Name == "" {
		list.Name = fmt.Sprintf("%d-Day Sustainable Shopping List", request.DaysToPlan)
	}
	if list.EstimatedMeals <= 0 {
		list.EstimatedMeals = request.DaysToPlan * mealsPerDay * household
	}
	if list.DaysOfFood <= 0 {
		list.DaysOfFood = request.DaysToPlan
	}

	var sum float64
	for _, item := range doc.Items {
		out := domain.ShoppingItem{
			ID:             uuid.NewString(),
			Name:           item.Name,
			Category:       item.Category,
			EstimatedPrice: item.EstimatedPrice,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			Priority:       item.Priority,
			Notes:          item.Notes,
		}
		if out.Quantity <= 0 {
			out.Quantity = 1
		}
		if out.Unit == "" {
			out.Unit = "unit"
		}
		if out.Priority == "" {
			out.Priority = "medium"
		}
		sum += out.EstimatedPrice * float64(out.Quantity)
		list.Items = append(list.Items, out)
	}
	if list.TotalCost <= 0 {
		list.TotalCost = roundCents(sum)
	}

	return list, nil
}

func buildShoppingListPrompt(request *domain.ShoppingListRequest) string {
	prefs := request.Preferences
	spice := prefs.SpiceTolerance
	if spice == 0 {
		spice = defaultSpiceTolerance
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a sustainable food shopping expert. Generate a shopping list for %d days of meals for %d person(s) with a budget of $%.2f.\n\n",
		request.DaysToPlan, householdSize(prefs), request.Budget)

	b.WriteString("User Preferences:\n")
	fmt.Fprintf(&b, "- Allergies: %s\n", joinOrNone(prefs.Allergies))
	fmt.Fprintf(&b, "- Dietary Restrictions: %s\n", joinOrNone(prefs.DietaryRestrictions))
	fmt.Fprintf(&b, "- Avoid Ingredients: %s\n", orNone(prefs.AvoidIngredients))
	fmt.Fprintf(&b, "- Food Preferences: %s\n", joinOrNone(prefs.FoodPreferences))
	fmt.Fprintf(&b, "- Cuisine Preferences: %s\n", joinOrNone(prefs.CuisinePreferences))
	fmt.Fprintf(&b, "- Spice Tolerance: %d/5\n", spice)
	fmt.Fprintf(&b, "- Special Dietary: %s\n", orNone(prefs.SpecialDietary))
	fmt.Fprintf(&b, "- Categories to include: %s\n\n", strings.Join(request.Categories, ", "))

	b.WriteString(`Requirements:
1. Focus on sustainable, budget-friendly ingredients
2. Include ingredients for complete meals (breakfast, lunch, dinner)
3. Respect all allergies and dietary restrictions
4. Stay within budget
5. Provide realistic quantities for the household size

Return ONLY a valid JSON object with this exact structure:
{
  "name": "Shopping List Name",
  "items": [
    {
      "name": "Ingredient Name",
      "category": "proteins|vegetables|grains|dairy|pantry|fruits|snacks",
      "estimatedPrice": 2.99,
      "quantity": 2,
      "unit": "lb",
      "priority": "high|medium|low",
      "notes": "Optional notes about the ingredient"
    }
  ],
  "totalCost": 45.67,
  "estimatedMeals": 21,
  "daysOfFood": 7
}`)
	return b.String()
}

// GenerateFallback allocates the budget across the requested categories
// using the built-in catalog. It never calls the model.
func (s *ShoppingListService) GenerateFallback(request *domain.ShoppingListRequest) *domain.ShoppingList {
	prefs := request.Preferences
	household := householdSize(prefs)
	categoryBudget := request.Budget / float64(len(request.Categories))
	maxCategoryBudget := categoryBudget * categoryBudgetFlex

	items := make([]domain.ShoppingItem, 0)
	var totalCost float64

	for _, category := range request.Categories {
		safe := filterCatalog(fallbackCatalog[category], prefs)
		quantity := itemQuantity(category, household, request.DaysToPlan)
		var spent float64

		for _, priority := range priorityOrder {
			for _, item := range safe {
				if item.Priority != priority {
					continue
				}
				if spent >= maxCategoryBudget {
					break
				}
				cost := item.Price * float64(quantity)
				if spent+cost > maxCategoryBudget {
					continue
				}
				items = append(items, domain.ShoppingItem{
					ID:             uuid.NewString(),
					Name:           item.Name,
					Category:       category,
					EstimatedPrice: item.Price,
					Quantity:       quantity,
					Unit:           item.Unit,
					Priority:       item.Priority,
					Notes:          itemNotes(item.Name, prefs),
				})
				spent += cost
				totalCost += cost
			}
		}
	}

	// Drop low priority items until the list fits the budget
	if totalCost > request.Budget {
		kept := items[:0]
		for _, item := range items {
			if item.Priority == "low" && totalCost > request.Budget {
				totalCost -= item.EstimatedPrice * float64(item.Quantity)
				continue
			}
			kept = append(kept, item)
		}
		items = kept
	}

	now := s.now().UTC()
	return &domain.ShoppingList{
		ID:             uuid.NewString(),
		Name:           fmt.Sprintf("%d-Day Budget Shopping List", request.DaysToPlan),
		Items:          items,
		TotalCost:      roundCents(totalCost),
		EstimatedMeals: request.DaysToPlan * mealsPerDay * household,
		DaysOfFood:     request.DaysToPlan,
		CreatedAt:      now,
		Metadata:       domain.ShoppingListMetadata{GeneratedBy: "fallback-database", Timestamp: now},
	}
}

// filterCatalog removes items excluded by allergies, diet or avoided ingredients
func filterCatalog(items []catalogItem, prefs domain.UserPreferences) []catalogItem {
	vegetarian := containsFold(prefs.DietaryRestrictions, "Vegetarian")
	vegan := containsFold(prefs.DietaryRestrictions, "Vegan")
	avoid := strings.ToLower(prefs.AvoidIngredients)

	safe := make([]catalogItem, 0, len(items))
	for _, item := range items {
		name := strings.ToLower(item.Name)

		if slices.ContainsFunc(prefs.Allergies, func(a string) bool {
			a = strings.TrimSpace(strings.ToLower(a))
			return a != "" && strings.Contains(name, a)
		}) {
			continue
		}
		if vegetarian && containsAny(name, meatTerms) {
			continue
		}
		if vegan && (containsAny(name, meatTerms) || containsAny(name, animalTerm)) {
			continue
		}
		if avoid != "" && strings.Contains(avoid, name) {
			continue
		}
		safe = append(safe, item)
	}
	return safe
}

// itemQuantity covers household x days person-days with each unit
func itemQuantity(category string, household, days int) int {
	per, ok := daysPerItem[category]
	if !ok {
		per = 7
	}
	return int(math.Ceil(float64(household*days) / float64(per)))
}

func itemNotes(name string, prefs domain.UserPreferences) string {
	lower := strings.ToLower(name)
	var notes []string

	if prefs.HasChildren && strings.Contains(lower, "chicken") {
		notes = append(notes, "Great for kids")
	}
	if prefs.SpiceTolerance > 0 && prefs.SpiceTolerance < 3 &&
		(strings.Contains(lower, "pepper") || strings.Contains(lower, "hot")) {
		notes = append(notes, "Use sparingly")
	}
	if strings.EqualFold(prefs.ShoppingFrequency, "weekly") && strings.Contains(lower, "milk") {
		notes = append(notes, "Buy fresh")
	}

	return strings.Join(notes, ", ")
}

func householdSize(prefs domain.UserPreferences) int {
	if prefs.HouseholdSize > 0 {
		return prefs.HouseholdSize
	}
	return 1
}

func containsFold(values []string, target string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, target) })
}

func containsAny(s string, terms []string) bool {
	return slices.ContainsFunc(terms, func(t string) bool { return strings.Contains(s, t) })
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
