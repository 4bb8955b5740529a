package domain

import "time"

// UserPreferences are the dietary preferences collected during onboarding
type UserPreferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	HouseholdSize       int      `json:"householdSize,omitempty"`
	SpiceTolerance      int      `json:"spiceTolerance,omitempty"`
	MaxSpending         float64  `json:"maxSpending,omitempty"`
	FoodPreferences     []string `json:"foodPreferences,omitempty"`
	CuisinePreferences  []string `json:"cuisinePreferences,omitempty"`
	AvoidIngredients    string   `json:"avoidIngredients,omitempty"`
	HasChildren         bool     `json:"hasChildren,omitempty"`
	ChildrenAges        string   `json:"childrenAges,omitempty"`
	SpecialDietary      string   `json:"specialDietary,omitempty"`
	ShoppingFrequency   string   `json:"shoppingFrequency,omitempty"`
}

// Meal is a single planned meal
type Meal struct {
	Name            string   `json:"name"`
	Ingredients     []string `json:"ingredients"`
	Instructions    string   `json:"instructions"`
	NutritionalInfo string   `json:"nutritionalInfo"`
	Cost            float64  `json:"cost"`
	PrepTime        int      `json:"prepTime"`
}

// DayPlan holds the three meals planned for one day
type DayPlan struct {
	Day            string  `json:"day"`
	Breakfast      Meal    `json:"breakfast"`
	Lunch          Meal    `json:"lunch"`
	Dinner         Meal    `json:"dinner"`
	TotalDailyCost float64 `json:"totalDailyCost"`
}

// MealPlanRequest asks for a meal plan built from a parsed receipt
type MealPlanRequest struct {
	Receipt     ReceiptRecord   `json:"receipt"`
	Preferences UserPreferences `json:"preferences"`
}

// MealPlan is the generated plan; Source is "llm" or "fallback"
type MealPlan struct {
	Days        []DayPlan `json:"mealPlans"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ShoppingItem is one entry of a shopping list
type ShoppingItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	Quantity       int     `json:"quantity"`
	Unit           string  `json:"unit"`
	Priority       string  `json:"priority"`
	Notes          string  `json:"notes,omitempty"`
}

// ShoppingListRequest asks for a budgeted shopping list
type ShoppingListRequest struct {
	Budget      float64         `json:"budget"`
	DaysToPlan  int             `json:"daysToPlan"`
	Categories  []string        `json:"categories"`
	Preferences UserPreferences `json:"preferences"`
}

// ShoppingListMetadata records how the list was produced
type ShoppingListMetadata struct {
	GeneratedBy string    `json:"generatedBy"` // "llm" or "fallback-database"
	Timestamp   time.Time `json:"timestamp"`
}

// ShoppingList is a generated shopping list
type ShoppingList struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Items          []ShoppingItem       `json:"items"`
	TotalCost      float64              `json:"totalCost"`
	EstimatedMeals int                  `json:"estimatedMeals"`
	DaysOfFood     int                  `json:"daysOfFood"`
	CreatedAt      time.Time            `json:"createdAt"`
	Metadata       ShoppingListMetadata `json:"metadata"`
}
