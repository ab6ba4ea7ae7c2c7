package cart

import (
	"RecipeShare/entities"
	"context"

	"gorm.io/gorm"
)

type (
	CartRepository interface {
		GetCartRecipeIngredients(ctx context.Context, userID string) ([]*entities.RecipeIngredient, error)
		GetCartRecipes(ctx context.Context, userID string) ([]*entities.Recipe, error)
	}

	cartRepository struct {
		db *gorm.DB
	}
)

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetCartRecipeIngredients returns every ingredient row of every recipe the
// user has placed in the shopping cart, with the ingredient preloaded.
func (r *cartRepository) GetCartRecipeIngredients(ctx context.Context, userID string) ([]*entities.RecipeIngredient, error) {
	var rows []*entities.RecipeIngredient

	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *cartRepository) GetCartRecipes(ctx context.Context, userID string) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe

	if err := r.db.WithContext(ctx).
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
		Where("shopping_carts.user_id = ?", userID).
		Order("shopping_carts.created_at desc").
		Find(&recipes).Error; err != nil {
		return nil, err
	}

	return recipes, nil
}
