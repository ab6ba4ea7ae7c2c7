package recipe

import (
	"RecipeShare/domain"
	"RecipeShare/entities"
	"RecipeShare/pkg/relation"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		DeleteRecipe(ctx context.Context, id string) error
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]*entities.Recipe, int64, error)

		AddFavorite(ctx context.Context, userID, recipeID string) (bool, error)
		RemoveFavorite(ctx context.Context, userID, recipeID string) error
		IsFavorited(ctx context.Context, userID, recipeID string) (bool, error)
		AddToCart(ctx context.Context, userID, recipeID string) (bool, error)
		RemoveFromCart(ctx context.Context, userID, recipeID string) error
		IsInCart(ctx context.Context, userID, recipeID string) (bool, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// CreateRecipe persists the recipe, its tag links and its ingredient rows in
// one transaction, so a failed bulk insert leaves nothing behind.
func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		if len(ingredients) > 0 {
			if err := tx.Create(&ingredients).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateRecipe saves the recipe fields, replaces the tag set and wholly
// replaces the ingredient rows (delete-all-then-insert, not a diff).
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "RecipeIngredients", "Author").Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(recipe.Tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if len(ingredients) > 0 {
			if err := tx.Create(&ingredients).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Recipe{}, "id = ?", id).Error
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("RecipeIngredients.Ingredient").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// GetRecipes applies the list filters: author, tag slugs (any-of), favorited
// by viewer, in viewer's cart. The viewer-bound filters are skipped when the
// filter carries no viewer, so anonymous listings never error.
func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	if err := r.filteredRecipes(ctx, filter).Distinct("recipes.id").Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.filteredRecipes(ctx, filter).
		Distinct("recipes.*").
		Preload("Author").
		Preload("Tags").
		Preload("RecipeIngredients.Ingredient").
		Order("recipes.created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

// filteredRecipes builds the recipe query for the list filters. The tag slug
// filter is a union: a single join plus IN matches recipes carrying any of
// the slugs, deduplicated by the callers' DISTINCT.
func (r *recipeRepository) filteredRecipes(ctx context.Context, filter domain.RecipeFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if filter.AuthorID != "" {
		db = db.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		db = db.
			Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
	}
	if filter.IsFavorited && filter.Viewer != "" {
		db = db.
			Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
			Where("favorites.user_id = ?", filter.Viewer)
	}
	if filter.IsInShoppingCart && filter.Viewer != "" {
		db = db.
			Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
			Where("shopping_carts.user_id = ?", filter.Viewer)
	}

	return db
}

func (r *recipeRepository) AddFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, domain.ErrParseUUID
	}
	recipeUUID, err := uuid.Parse(recipeID)
	if err != nil {
		return false, domain.ErrParseUUID
	}

	row := entities.Favorite{
		ID:       uuid.New(),
		UserID:   userUUID,
		RecipeID: recipeUUID,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	return relation.Add(ctx, r.db, map[string]interface{}{
		"user_id":   userUUID,
		"recipe_id": recipeUUID,
	}, &row)
}

func (r *recipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	return relation.Remove[entities.Favorite](ctx, r.db, map[string]interface{}{
		"user_id":   userID,
		"recipe_id": recipeID,
	})
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	return relation.Exists[entities.Favorite](ctx, r.db, map[string]interface{}{
		"user_id":   userID,
		"recipe_id": recipeID,
	})
}

func (r *recipeRepository) AddToCart(ctx context.Context, userID, recipeID string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, domain.ErrParseUUID
	}
	recipeUUID, err := uuid.Parse(recipeID)
	if err != nil {
		return false, domain.ErrParseUUID
	}

	row := entities.ShoppingCart{
		ID:       uuid.New(),
		UserID:   userUUID,
		RecipeID: recipeUUID,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	return relation.Add(ctx, r.db, map[string]interface{}{
		"user_id":   userUUID,
		"recipe_id": recipeUUID,
	}, &row)
}

func (r *recipeRepository) RemoveFromCart(ctx context.Context, userID, recipeID string) error {
	return relation.Remove[entities.ShoppingCart](ctx, r.db, map[string]interface{}{
		"user_id":   userID,
		"recipe_id": recipeID,
	})
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	return relation.Exists[entities.ShoppingCart](ctx, r.db, map[string]interface{}{
		"user_id":   userID,
		"recipe_id": recipeID,
	})
}
