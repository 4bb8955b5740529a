package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartration/backend/internal/domain"
)

func TestItemCategorizer_Categorize(t *testing.T) {
	c := NewItemCategorizer()

	tests := []struct {
		name     string
		expected string
	}{
		{"Bananas", CategoryFruits},
		{"GV WHL MLK", CategoryDairy},
		{"CHKN BRST", CategoryProteins},
		{"2% Milk", CategoryDairy},
		{"White Rice", CategoryGrains},
		{"Chicken Broth", CategoryProteins},
		{"Green Tea", CategoryBeverages},
		{"Corn Tortillas", CategoryGrains},
		{"Ketchup", CategoryPantry},
		{"CHIKEN THIGHS", CategoryProteins},
		{"BROCOLI", CategoryVegetables},
		{"Paper Towels", CategoryOther},
		{"TEO", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Categorize(tt.name))
		})
	}
}

func TestItemCategorizer_Group(t *testing.T) {
	c := NewItemCategorizer()

	groups := c.Group([]domain.ReceiptItem{
		{Name: "Milk", UnitPrice: 3.49, Quantity: 1},
		{Name: "Bananas", UnitPrice: 1.29, Quantity: 1},
		{Name: "Paper Towels", UnitPrice: 2.99, Quantity: 1},
		{Name: "Chicken", UnitPrice: 5.99, Quantity: 1},
		{Name: "Cheddar", UnitPrice: 2.50, Quantity: 1},
	})

	require.Len(t, groups, 4)
	assert.Equal(t, CategoryProteins, groups[0].Category)
	assert.Equal(t, CategoryDairy, groups[1].Category)
	assert.Equal(t, []string{"Milk", "Cheddar"}, []string{groups[1].Items[0].Name, groups[1].Items[1].Name})
	assert.Equal(t, CategoryFruits, groups[2].Category)
	assert.Equal(t, CategoryOther, groups[3].Category)

	assert.Empty(t, c.Group(nil))
}

func TestCategoryTokens(t *testing.T) {
	assert.Equal(t, []string{"chicken", "breast"}, categoryTokens("CHKN. Breast"))
	assert.Equal(t, []string{"milk"}, categoryTokens("GV 2% MLK 1"))
	assert.Empty(t, categoryTokens("12 x"))
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"milk", "milk", 0},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"chiken", "chicken", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshteinDistance(tt.a, tt.b))
		})
	}
}
