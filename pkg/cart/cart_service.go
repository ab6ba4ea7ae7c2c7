package cart

import (
	"RecipeShare/domain"
	"bytes"
	"context"
	"fmt"
	"sort"
)

type (
	CartService interface {
		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
		GetCartRecipes(ctx context.Context, userID string) ([]domain.RecipePreview, error)
	}

	cartService struct {
		cartRepository CartRepository
	}
)

func NewCartService(cartRepository CartRepository) CartService {
	return &cartService{cartRepository: cartRepository}
}

type ingredientKey struct {
	name string
	unit string
}

// GetShoppingList aggregates ingredient amounts across every recipe in the
// user's cart, grouped by (name, measurement unit). Output is sorted
// alphabetically by name, then unit, so repeated downloads are identical.
// An empty cart yields an empty list.
func (s *cartService) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	rows, err := s.cartRepository.GetCartRecipeIngredients(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals := make(map[ingredientKey]int)
	for _, row := range rows {
		if row.Ingredient == nil {
			continue
		}
		key := ingredientKey{name: row.Ingredient.Name, unit: row.Ingredient.MeasurementUnit}
		totals[key] += row.Amount
	}

	items := make([]domain.ShoppingListItem, 0, len(totals))
	for key, amount := range totals {
		items = append(items, domain.ShoppingListItem{
			Name:            key.name,
			MeasurementUnit: key.unit,
			Amount:          amount,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})

	return items, nil
}

func (s *cartService) GetCartRecipes(ctx context.Context, userID string) ([]domain.RecipePreview, error) {
	recipes, err := s.cartRepository.GetCartRecipes(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]domain.RecipePreview, 0, len(recipes))
	for _, r := range recipes {
		res = append(res, domain.RecipePreview{
			ID:          r.ID.String(),
			Name:        r.Name,
			ImageURL:    r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}
	return res, nil
}

// RenderShoppingList writes one line per aggregated ingredient in the form
// "<name>: <amount>, <unit>".
func RenderShoppingList(items []domain.ShoppingListItem) []byte {
	var buf bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&buf, "%s: %d, %s\n", item.Name, item.Amount, item.MeasurementUnit)
	}
	return buf.Bytes()
}
