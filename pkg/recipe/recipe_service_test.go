package recipe

import (
	"RecipeShare/domain"
	"RecipeShare/entities"
	"RecipeShare/pkg/user"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRecipeRepository struct {
	recipes   map[string]*entities.Recipe
	favorites map[string]bool
	cart      map[string]bool

	createdRows []*entities.RecipeIngredient
	updatedRows []*entities.RecipeIngredient
	deleted     []string

	createErr error
	updateErr error
}

func newFakeRecipeRepository() *fakeRecipeRepository {
	return &fakeRecipeRepository{
		recipes:   make(map[string]*entities.Recipe),
		favorites: make(map[string]bool),
		cart:      make(map[string]bool),
	}
}

func (f *fakeRecipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.recipes[recipe.ID.String()] = recipe
	f.createdRows = ingredients
	return nil
}

func (f *fakeRecipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.recipes[recipe.ID.String()] = recipe
	f.updatedRows = ingredients
	return nil
}

func (f *fakeRecipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	delete(f.recipes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRecipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return recipe, nil
}

func (f *fakeRecipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]*entities.Recipe, int64, error) {
	var out []*entities.Recipe
	for _, r := range f.recipes {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecipeRepository) AddFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	key := userID + "/" + recipeID
	if f.favorites[key] {
		return false, nil
	}
	f.favorites[key] = true
	return true, nil
}

func (f *fakeRecipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	key := userID + "/" + recipeID
	if !f.favorites[key] {
		return gorm.ErrRecordNotFound
	}
	delete(f.favorites, key)
	return nil
}

func (f *fakeRecipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	return f.favorites[userID+"/"+recipeID], nil
}

func (f *fakeRecipeRepository) AddToCart(ctx context.Context, userID, recipeID string) (bool, error) {
	key := userID + "/" + recipeID
	if f.cart[key] {
		return false, nil
	}
	f.cart[key] = true
	return true, nil
}

func (f *fakeRecipeRepository) RemoveFromCart(ctx context.Context, userID, recipeID string) error {
	key := userID + "/" + recipeID
	if !f.cart[key] {
		return gorm.ErrRecordNotFound
	}
	delete(f.cart, key)
	return nil
}

func (f *fakeRecipeRepository) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	return f.cart[userID+"/"+recipeID], nil
}

type fakeTagRepository struct {
	tags map[string]*entities.Tag
}

func (f *fakeTagRepository) GetTags(ctx context.Context) ([]*entities.Tag, error) {
	var out []*entities.Tag
	for _, t := range f.tags {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTagRepository) GetTagByID(ctx context.Context, id string) (*entities.Tag, error) {
	t, ok := f.tags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTagRepository) GetTagsByIDs(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	var out []*entities.Tag
	for _, id := range ids {
		if t, ok := f.tags[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeIngredientRepository struct {
	ingredients map[string]*entities.Ingredient
}

func (f *fakeIngredientRepository) GetIngredients(ctx context.Context, namePrefix string) ([]*entities.Ingredient, error) {
	var out []*entities.Ingredient
	for _, in := range f.ingredients {
		out = append(out, in)
	}
	return out, nil
}

func (f *fakeIngredientRepository) GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error) {
	in, ok := f.ingredients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return in, nil
}

func (f *fakeIngredientRepository) GetIngredientsByIDs(ctx context.Context, ids []string) ([]*entities.Ingredient, error) {
	var out []*entities.Ingredient
	for _, id := range ids {
		if in, ok := f.ingredients[id]; ok {
			out = append(out, in)
		}
	}
	return out, nil
}

type fakeUserRepository struct {
	user.UserRepository
	following map[string]bool
}

func (f *fakeUserRepository) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	return f.following[userID+"/"+authorID], nil
}

type fakeStorage struct {
	uploaded []string
	removed  []string
}

func (f *fakeStorage) UploadBytes(fileName string, data []byte, dir string) (string, error) {
	key := dir + "/" + fileName
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeStorage) DeleteFile(objectKey string) error {
	f.removed = append(f.removed, objectKey)
	return nil
}

func (f *fakeStorage) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (f *fakeStorage) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

type serviceFixture struct {
	service     RecipeService
	recipes     *fakeRecipeRepository
	tags        *fakeTagRepository
	ingredients *fakeIngredientRepository
	users       *fakeUserRepository
	storage     *fakeStorage

	tag        *entities.Tag
	ingredient *entities.Ingredient
}

func newServiceFixture() *serviceFixture {
	tag := &entities.Tag{ID: uuid.New(), Name: "dinner", Color: "#49B64E", Slug: "dinner"}
	ingredient := &entities.Ingredient{ID: uuid.New(), Name: "flour", MeasurementUnit: "g"}

	f := &serviceFixture{
		recipes:     newFakeRecipeRepository(),
		tags:        &fakeTagRepository{tags: map[string]*entities.Tag{tag.ID.String(): tag}},
		ingredients: &fakeIngredientRepository{ingredients: map[string]*entities.Ingredient{ingredient.ID.String(): ingredient}},
		users:       &fakeUserRepository{following: make(map[string]bool)},
		storage:     &fakeStorage{},
		tag:         tag,
		ingredient:  ingredient,
	}
	f.service = NewRecipeService(f.recipes, f.tags, f.ingredients, f.users, f.storage)
	return f
}

func (f *serviceFixture) validRequest() domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Name:        "Pancakes",
		Image:       base64.StdEncoding.EncodeToString([]byte("image-bytes")),
		Text:        "Mix and fry",
		CookingTime: 15,
		Tags:        []string{f.tag.ID.String()},
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: f.ingredient.ID.String(), Amount: 200},
		},
	}
}

func (f *serviceFixture) seedRecipe(authorID uuid.UUID) *entities.Recipe {
	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Name:        "Pancakes",
		ImageURL:    "https://cdn.test/recipes/old.png",
		Text:        "Mix and fry",
		CookingTime: 15,
		Tags:        []*entities.Tag{f.tag},
	}
	f.recipes.recipes[recipe.ID.String()] = recipe
	return recipe
}

func TestCreateRecipeRejectsZeroCookingTime(t *testing.T) {
	f := newServiceFixture()
	req := f.validRequest()
	req.CookingTime = 0

	_, err := f.service.CreateRecipe(context.Background(), req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrInvalidCookingTime)
}

func TestCreateRecipeRejectsZeroAmount(t *testing.T) {
	f := newServiceFixture()
	req := f.validRequest()
	req.Ingredients[0].Amount = 0

	_, err := f.service.CreateRecipe(context.Background(), req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrInvalidIngredientAmount)
}

func TestCreateRecipeRejectsUnknownTag(t *testing.T) {
	f := newServiceFixture()
	req := f.validRequest()
	req.Tags = []string{uuid.New().String()}

	_, err := f.service.CreateRecipe(context.Background(), req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
}

func TestCreateRecipeRejectsUnknownIngredient(t *testing.T) {
	f := newServiceFixture()
	req := f.validRequest()
	req.Ingredients[0].ID = uuid.New().String()

	_, err := f.service.CreateRecipe(context.Background(), req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}

func TestCreateRecipeStoresRecipeAndUploadsImage(t *testing.T) {
	f := newServiceFixture()

	res, err := f.service.CreateRecipe(context.Background(), f.validRequest(), uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", res.Name)
	assert.True(t, strings.HasPrefix(res.ImageURL, "https://cdn.test/recipes/"))
	require.Len(t, f.recipes.createdRows, 1)
	assert.Equal(t, 200, f.recipes.createdRows[0].Amount)
	assert.Len(t, f.storage.uploaded, 1)
}

func TestCreateRecipeRemovesImageOnFailedInsert(t *testing.T) {
	f := newServiceFixture()
	f.recipes.createErr = errors.New("insert failed")

	_, err := f.service.CreateRecipe(context.Background(), f.validRequest(), uuid.New().String())
	require.Error(t, err)

	require.Len(t, f.storage.uploaded, 1)
	assert.Equal(t, f.storage.uploaded, f.storage.removed)
}

func TestUpdateRecipeKeepsOldImageOnFailedSave(t *testing.T) {
	f := newServiceFixture()
	author := uuid.New()
	recipe := f.seedRecipe(author)
	f.recipes.updateErr = errors.New("save failed")

	req := domain.UpdateRecipeRequest(f.validRequest())
	_, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, author.String())
	require.Error(t, err)

	// the replacement upload is rolled back, the old image survives
	require.Len(t, f.storage.uploaded, 1)
	assert.Equal(t, f.storage.uploaded, f.storage.removed)
	assert.NotContains(t, f.storage.removed, "recipes/old.png")
}

func TestUpdateRecipeRejectsNonAuthor(t *testing.T) {
	f := newServiceFixture()
	recipe := f.seedRecipe(uuid.New())

	req := domain.UpdateRecipeRequest(f.validRequest())
	_, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
}

func TestUpdateRecipeReplacesIngredientRows(t *testing.T) {
	f := newServiceFixture()
	author := uuid.New()
	recipe := f.seedRecipe(author)

	second := &entities.Ingredient{ID: uuid.New(), Name: "sugar", MeasurementUnit: "g"}
	f.ingredients.ingredients[second.ID.String()] = second

	req := domain.UpdateRecipeRequest(f.validRequest())
	req.Image = ""
	req.Ingredients = []domain.RecipeIngredientRequest{
		{ID: second.ID.String(), Amount: 50},
	}

	_, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, author.String())
	require.NoError(t, err)

	require.Len(t, f.recipes.updatedRows, 1)
	assert.Equal(t, second.ID, f.recipes.updatedRows[0].IngredientID)
	assert.Equal(t, 50, f.recipes.updatedRows[0].Amount)
	assert.Empty(t, f.storage.uploaded)
}

func TestDeleteRecipePermissions(t *testing.T) {
	f := newServiceFixture()
	author := uuid.New()
	recipe := f.seedRecipe(author)

	err := f.service.DeleteRecipe(context.Background(), recipe.ID.String(), uuid.New().String(), domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	err = f.service.DeleteRecipe(context.Background(), recipe.ID.String(), uuid.New().String(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.Contains(t, f.recipes.deleted, recipe.ID.String())
	assert.Contains(t, f.storage.removed, "recipes/old.png")
}

func TestAddFavoriteIsIdempotent(t *testing.T) {
	f := newServiceFixture()
	recipe := f.seedRecipe(uuid.New())
	userID := uuid.New().String()

	preview, created, err := f.service.AddFavorite(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, recipe.ID.String(), preview.ID)

	_, created, err = f.service.AddFavorite(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAddFavoriteUnknownRecipe(t *testing.T) {
	f := newServiceFixture()

	_, _, err := f.service.AddFavorite(context.Background(), uuid.New().String(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRemoveFavoriteNotPresent(t *testing.T) {
	f := newServiceFixture()
	recipe := f.seedRecipe(uuid.New())

	err := f.service.RemoveFavorite(context.Background(), recipe.ID.String(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrFavoriteNotFound)
}

func TestCartToggle(t *testing.T) {
	f := newServiceFixture()
	recipe := f.seedRecipe(uuid.New())
	userID := uuid.New().String()

	_, created, err := f.service.AddToCart(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = f.service.AddToCart(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, f.service.RemoveFromCart(context.Background(), recipe.ID.String(), userID))
	err = f.service.RemoveFromCart(context.Background(), recipe.ID.String(), userID)
	assert.ErrorIs(t, err, domain.ErrCartEntryNotFound)
}

func TestGetRecipeDetailAnonymousFlags(t *testing.T) {
	f := newServiceFixture()
	recipe := f.seedRecipe(uuid.New())
	userID := uuid.New().String()

	_, _, err := f.service.AddFavorite(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)

	res, err := f.service.GetRecipeDetail(context.Background(), recipe.ID.String(), "")
	require.NoError(t, err)
	assert.False(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)

	res, err = f.service.GetRecipeDetail(context.Background(), recipe.ID.String(), userID)
	require.NoError(t, err)
	assert.True(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)
}

func TestDecodeBase64ImageDataURI(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF}
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	data, ext, err := decodeBase64Image(payload)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, ".jpg", ext)

	_, _, err = decodeBase64Image("not base64 at all!!!")
	assert.ErrorIs(t, err, domain.ErrInvalidImageData)
}
