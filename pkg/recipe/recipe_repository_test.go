package recipe

import (
	"RecipeShare/domain"
	"RecipeShare/entities"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newDryRunDB opens a postgres-dialect gorm handle that only renders SQL, so
// query shapes can be asserted without a live database.
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func renderListQuery(t *testing.T, filter domain.RecipeFilter) (string, []interface{}) {
	t.Helper()
	repo := NewRecipeRepository(newDryRunDB(t)).(*recipeRepository)

	var recipes []*entities.Recipe
	tx := repo.filteredRecipes(context.Background(), filter).Find(&recipes)
	require.NoError(t, tx.Error)
	return tx.Statement.SQL.String(), tx.Statement.Vars
}

func TestFilteredRecipesTagSlugUnion(t *testing.T) {
	sql, vars := renderListQuery(t, domain.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
	})

	assert.Contains(t, sql, "JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id")
	assert.Contains(t, sql, "JOIN tags ON tags.id = recipe_tags.tag_id")
	assert.Contains(t, sql, "tags.slug IN")
	assert.Contains(t, vars, "breakfast")
	assert.Contains(t, vars, "dinner")
}

func TestFilteredRecipesViewerBoundFilters(t *testing.T) {
	viewer := uuid.NewString()

	sql, vars := renderListQuery(t, domain.RecipeFilter{
		IsFavorited:      true,
		IsInShoppingCart: true,
		Viewer:           viewer,
	})

	assert.Contains(t, sql, "JOIN favorites ON favorites.recipe_id = recipes.id")
	assert.Contains(t, sql, "favorites.user_id")
	assert.Contains(t, sql, "JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id")
	assert.Contains(t, sql, "shopping_carts.user_id")
	assert.Contains(t, vars, viewer)
}

func TestFilteredRecipesAnonymousSkipsViewerJoins(t *testing.T) {
	sql, _ := renderListQuery(t, domain.RecipeFilter{
		IsFavorited:      true,
		IsInShoppingCart: true,
	})

	assert.NotContains(t, sql, "favorites")
	assert.NotContains(t, sql, "shopping_carts")
}

func TestFilteredRecipesAuthor(t *testing.T) {
	author := uuid.NewString()

	sql, vars := renderListQuery(t, domain.RecipeFilter{AuthorID: author})

	assert.Contains(t, sql, "recipes.author_id")
	assert.Contains(t, vars, author)
}

// queryRecorder captures the rendered SQL of every statement gorm builds.
type queryRecorder struct {
	queries []string
}

func (r *queryRecorder) LogMode(logger.LogLevel) logger.Interface      { return r }
func (r *queryRecorder) Info(context.Context, string, ...interface{})  {}
func (r *queryRecorder) Warn(context.Context, string, ...interface{})  {}
func (r *queryRecorder) Error(context.Context, string, ...interface{}) {}
func (r *queryRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.queries = append(r.queries, sql)
}

func TestGetRecipesQueriesAreDistinct(t *testing.T) {
	rec := &queryRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	repo := NewRecipeRepository(db)

	_, _, err = repo.GetRecipes(context.Background(), domain.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
	})
	require.NoError(t, err)

	// both the count and the list query must dedupe the tag-join fan-out
	require.Len(t, rec.queries, 2)
	for _, q := range rec.queries {
		assert.Contains(t, q, "DISTINCT")
		assert.Contains(t, q, "JOIN recipe_tags")
	}
}
