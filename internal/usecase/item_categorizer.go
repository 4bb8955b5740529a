package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/smartration/backend/internal/domain"
)

// Food categories shared by the meal planner and the shopping list
const (
	CategoryProteins   = "proteins"
	CategoryDairy      = "dairy"
	CategoryGrains     = "grains"
	CategoryVegetables = "vegetables"
	CategoryFruits     = "fruits"
	CategoryBeverages  = "beverages"
	CategorySnacks     = "snacks"
	CategoryPantry     = "pantry"
	CategoryOther      = "other"
)

// categoryOrder is the display order used when grouping items
var categoryOrder = []string{
	CategoryProteins, CategoryDairy, CategoryGrains, CategoryVegetables,
	CategoryFruits, CategoryBeverages, CategorySnacks, CategoryPantry, CategoryOther,
}

var tokenPunctuationRegex = regexp.MustCompile(`[^a-z0-9\s]`)

// foodTermCategories maps food keywords to their category
var foodTermCategories = map[string]string{
	// Proteins
	"chicken": CategoryProteins, "beef": CategoryProteins, "pork": CategoryProteins,
	"fish": CategoryProteins, "salmon": CategoryProteins, "turkey": CategoryProteins,
	"lamb": CategoryProteins, "shrimp": CategoryProteins, "tuna": CategoryProteins,
	"bacon": CategoryProteins, "sausage": CategoryProteins, "steak": CategoryProteins,
	"ham": CategoryProteins, "eggs": CategoryProteins, "egg": CategoryProteins,
	"tofu": CategoryProteins, "beans": CategoryProteins, "lentils": CategoryProteins,
	// Dairy
	"milk": CategoryDairy, "cheese": CategoryDairy, "yogurt": CategoryDairy,
	"butter": CategoryDairy, "cream": CategoryDairy, "cheddar": CategoryDairy,
	"mozzarella": CategoryDairy, "parmesan": CategoryDairy,
	// Grains
	"bread": CategoryGrains, "rice": CategoryGrains, "pasta": CategoryGrains,
	"cereal": CategoryGrains, "oats": CategoryGrains, "oatmeal": CategoryGrains,
	"flour": CategoryGrains, "noodles": CategoryGrains, "tortilla": CategoryGrains,
	"tortillas": CategoryGrains, "bagel": CategoryGrains, "spaghetti": CategoryGrains,
	// Vegetables
	"lettuce": CategoryVegetables, "tomato": CategoryVegetables, "tomatoes": CategoryVegetables,
	"potato": CategoryVegetables, "potatoes": CategoryVegetables, "onion": CategoryVegetables,
	"onions": CategoryVegetables, "carrot": CategoryVegetables, "carrots": CategoryVegetables,
	"broccoli": CategoryVegetables, "spinach": CategoryVegetables, "cucumber": CategoryVegetables,
	"pepper": CategoryVegetables, "peppers": CategoryVegetables, "corn": CategoryVegetables,
	"cabbage": CategoryVegetables, "garlic": CategoryVegetables, "celery": CategoryVegetables,
	// Fruits
	"apple": CategoryFruits, "apples": CategoryFruits, "banana": CategoryFruits,
	"bananas": CategoryFruits, "orange": CategoryFruits, "oranges": CategoryFruits,
	"strawberry": CategoryFruits, "strawberries": CategoryFruits, "blueberry": CategoryFruits,
	"blueberries": CategoryFruits, "grape": CategoryFruits, "grapes": CategoryFruits,
	"lemon": CategoryFruits, "lime": CategoryFruits, "avocado": CategoryFruits,
	"berries": CategoryFruits,
	// Beverages
	"juice": CategoryBeverages, "soda": CategoryBeverages, "cola": CategoryBeverages,
	"coffee": CategoryBeverages, "tea": CategoryBeverages, "water": CategoryBeverages,
	"lemonade": CategoryBeverages,
	// Snacks & sweets
	"chips": CategorySnacks, "crackers": CategorySnacks, "cookies": CategorySnacks,
	"candy": CategorySnacks, "chocolate": CategorySnacks, "cake": CategorySnacks,
	"popcorn": CategorySnacks,
	// Pantry & condiments
	"ketchup": CategoryPantry, "mustard": CategoryPantry, "mayo": CategoryPantry,
	"mayonnaise": CategoryPantry, "sauce": CategoryPantry, "salsa": CategoryPantry,
	"dressing": CategoryPantry, "syrup": CategoryPantry, "honey": CategoryPantry,
	"jam": CategoryPantry, "oil": CategoryPantry, "salt": CategoryPantry,
	"sugar": CategoryPantry, "broth": CategoryPantry, "vinegar": CategoryPantry,
}

// receiptAbbreviations expands common receipt shorthand before lookup
var receiptAbbreviations = map[string]string{
	"mlk": "milk", "chkn": "chicken", "chk": "chicken", "bnls": "chicken",
	"brd": "bread", "chs": "cheese", "bnna": "banana", "bnns": "bananas",
	"grnd": "beef", "yog": "yogurt", "ygrt": "yogurt", "tom": "tomato",
	"pot": "potato", "org": "", "gv": "", "whl": "", "lg": "", "sm": "",
}

// ItemCategorizer classifies receipt item names into food categories
type ItemCategorizer struct {
	fuzzyEditDistance int
}

// NewItemCategorizer creates a categorizer; fuzzy matching tolerates one edit
func NewItemCategorizer() *ItemCategorizer {
	return &ItemCategorizer{fuzzyEditDistance: 1}
}

// Categorize returns the category of an item name, or CategoryOther
func (c *ItemCategorizer) Categorize(name string) string {
	tokens := categoryTokens(name)

	for _, token := range tokens {
		if category, ok := foodTermCategories[token]; ok {
			return category
		}
	}

	// OCR misreads: "CHIKEN", "BANANSA"
	for _, token := range tokens {
		if len(token) < 4 {
			continue
		}
		for term, category := range foodTermCategories {
			if levenshteinDistance(token, term) <= c.fuzzyEditDistance {
				return category
			}
		}
	}

	return CategoryOther
}

// Group buckets items by category in display order, omitting empty categories
func (c *ItemCategorizer) Group(items []domain.ReceiptItem) []CategoryGroup {
	byCategory := make(map[string][]domain.ReceiptItem)
	for _, item := range items {
		category := c.Categorize(item.Name)
		byCategory[category] = append(byCategory[category], item)
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for _, category := range categoryOrder {
		if items, ok := byCategory[category]; ok {
			groups = append(groups, CategoryGroup{Category: category, Items: items})
		}
	}
	return groups
}

// CategoryGroup is a set of receipt items sharing a category
type CategoryGroup struct {
	Category string
	Items    []domain.ReceiptItem
}

// categoryTokens lowercases, strips punctuation and expands abbreviations
func categoryTokens(s string) []string {
	cleaned := tokenPunctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if expanded, ok := receiptAbbreviations[word]; ok {
			word = expanded
		}
		if len(word) <= 1 || isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	// Deterministic fuzzy matching relies on a stable token order
	sort.SliceStable(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	return tokens
}

// isNumeric checks if a string is a pure number
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// levenshteinDistance computes the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
