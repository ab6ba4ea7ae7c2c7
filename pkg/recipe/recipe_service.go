package recipe

import (
	"RecipeShare/domain"
	"RecipeShare/entities"
	"RecipeShare/internal/utils/storage"
	"RecipeShare/pkg/ingredient"
	"RecipeShare/pkg/tag"
	"RecipeShare/pkg/user"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID, userID, role string) error
		GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error)

		AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipePreview, bool, error)
		RemoveFavorite(ctx context.Context, recipeID, userID string) error
		AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipePreview, bool, error)
		RemoveFromCart(ctx context.Context, recipeID, userID string) error
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		tagRepository        tag.TagRepository
		ingredientRepository ingredient.IngredientRepository
		userRepository       user.UserRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	tagRepository tag.TagRepository,
	ingredientRepository ingredient.IngredientRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		tagRepository:        tagRepository,
		ingredientRepository: ingredientRepository,
		userRepository:       userRepository,
		s3:                   s3,
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	if req.CookingTime < 1 {
		return domain.RecipeResponse{}, domain.ErrInvalidCookingTime
	}
	if len(req.Tags) == 0 {
		return domain.RecipeResponse{}, domain.ErrNoTags
	}
	if len(req.Ingredients) == 0 {
		return domain.RecipeResponse{}, domain.ErrNoIngredients
	}
	for _, in := range req.Ingredients {
		if in.Amount < 1 {
			return domain.RecipeResponse{}, domain.ErrInvalidIngredientAmount
		}
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipeID := uuid.New()
	rows, err := s.buildIngredientRows(ctx, recipeID, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	// upload last so no object is stranded by a validation failure
	imageURL, err := s.uploadImage(req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    userUUID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        tags,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, rows); err != nil {
		s.removeImage(imageURL)
		return domain.RecipeResponse{}, err
	}

	created, err := s.recipeRepository.GetRecipeByID(ctx, recipe.ID.String())
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return s.toRecipeResponse(ctx, created, userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID.String() != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	if req.CookingTime < 1 {
		return domain.RecipeResponse{}, domain.ErrInvalidCookingTime
	}
	if len(req.Tags) == 0 {
		return domain.RecipeResponse{}, domain.ErrNoTags
	}
	if len(req.Ingredients) == 0 {
		return domain.RecipeResponse{}, domain.ErrNoIngredients
	}
	for _, in := range req.Ingredients {
		if in.Amount < 1 {
			return domain.RecipeResponse{}, domain.ErrInvalidIngredientAmount
		}
	}

	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	rows, err := s.buildIngredientRows(ctx, recipe.ID, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	// the old image is kept until the save succeeds
	oldImageURL := ""
	if req.Image != "" {
		imageURL, err := s.uploadImage(req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		oldImageURL = recipe.ImageURL
		recipe.ImageURL = imageURL
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	recipe.Tags = tags
	recipe.UpdatedAt = time.Now()

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, rows); err != nil {
		if req.Image != "" {
			s.removeImage(recipe.ImageURL)
		}
		return domain.RecipeResponse{}, err
	}
	s.removeImage(oldImageURL)

	updated, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return s.toRecipeResponse(ctx, updated, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, userID, role string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != userID && role != domain.RoleAdmin {
		return domain.ErrNotRecipeAuthor
	}

	s.removeImage(recipe.ImageURL)

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		dto, err := s.toRecipeResponse(ctx, r, filter.Viewer)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, dto)
	}
	return res, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	return s.toRecipeResponse(ctx, recipe, viewerID)
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipePreview, bool, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipePreview{}, false, domain.ErrRecipeNotFound
		}
		return domain.RecipePreview{}, false, err
	}

	created, err := s.recipeRepository.AddFavorite(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipePreview{}, false, err
	}
	return toRecipePreview(recipe), created, nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID string) error {
	if err := s.recipeRepository.RemoveFavorite(ctx, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrFavoriteNotFound
		}
		return err
	}
	return nil
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipePreview, bool, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipePreview{}, false, domain.ErrRecipeNotFound
		}
		return domain.RecipePreview{}, false, err
	}

	created, err := s.recipeRepository.AddToCart(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipePreview{}, false, err
	}
	return toRecipePreview(recipe), created, nil
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID string) error {
	if err := s.recipeRepository.RemoveFromCart(ctx, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCartEntryNotFound
		}
		return err
	}
	return nil
}

func (s *recipeService) resolveTags(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	tags, err := s.tagRepository.GetTagsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueStrings(ids)) {
		return nil, domain.ErrTagNotFound
	}
	return tags, nil
}

// buildIngredientRows resolves the submitted ingredient ids and produces the
// join rows to insert. Every id must exist.
func (s *recipeService) buildIngredientRows(ctx context.Context, recipeID uuid.UUID, reqs []domain.RecipeIngredientRequest) ([]*entities.RecipeIngredient, error) {
	ids := make([]string, 0, len(reqs))
	for _, in := range reqs {
		ids = append(ids, in.ID)
	}

	ingredients, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(ingredients))
	for _, in := range ingredients {
		known[in.ID.String()] = true
	}

	rows := make([]*entities.RecipeIngredient, 0, len(reqs))
	for _, in := range reqs {
		if !known[in.ID] {
			return nil, domain.ErrIngredientNotFound
		}
		ingredientUUID, err := uuid.Parse(in.ID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		rows = append(rows, &entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientUUID,
			Amount:       in.Amount,
		})
	}
	return rows, nil
}

// uploadImage decodes a base64 payload (with or without a data URI prefix)
// and stores it in S3, returning the public URL.
func (s *recipeService) uploadImage(payload string) (string, error) {
	data, ext, err := decodeBase64Image(payload)
	if err != nil {
		return "", err
	}

	objectKey, err := s.s3.UploadBytes(uuid.New().String()+ext, data, "recipes")
	if err != nil {
		return "", err
	}
	return s.s3.GetPublicLinkKey(objectKey), nil
}

// removeImage best-effort deletes a previously uploaded recipe image.
func (s *recipeService) removeImage(imageURL string) {
	if imageURL == "" {
		return
	}
	if objectKey := s.s3.GetObjectKeyFromLink(imageURL); objectKey != "" {
		_ = s.s3.DeleteFile(objectKey)
	}
}

func decodeBase64Image(payload string) ([]byte, string, error) {
	ext := ".png"
	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return nil, "", domain.ErrInvalidImageData
		}
		switch {
		case strings.Contains(parts[0], "image/jpeg"):
			ext = ".jpg"
		case strings.Contains(parts[0], "image/gif"):
			ext = ".gif"
		}
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", domain.ErrInvalidImageData
	}
	return data, ext, nil
}

// toRecipeResponse assembles the nested read payload. The viewer-dependent
// flags stay false for anonymous viewers.
func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, viewerID string) (domain.RecipeResponse, error) {
	res := domain.RecipeResponse{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
		Tags:        make([]domain.TagResponse, 0, len(recipe.Tags)),
		Ingredients: make([]domain.RecipeIngredientResponse, 0, len(recipe.RecipeIngredients)),
	}

	for _, t := range recipe.Tags {
		res.Tags = append(res.Tags, domain.TagResponse{
			ID:    t.ID.String(),
			Name:  t.Name,
			Color: t.Color,
			Slug:  t.Slug,
		})
	}

	for _, row := range recipe.RecipeIngredients {
		if row.Ingredient == nil {
			continue
		}
		res.Ingredients = append(res.Ingredients, domain.RecipeIngredientResponse{
			ID:              row.Ingredient.ID.String(),
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}

	if recipe.Author != nil {
		res.Author = domain.UserResponse{
			ID:        recipe.Author.ID.String(),
			Email:     recipe.Author.Email,
			Username:  recipe.Author.Username,
			FirstName: recipe.Author.FirstName,
			LastName:  recipe.Author.LastName,
		}
	}

	if viewerID != "" {
		isFavorited, err := s.recipeRepository.IsFavorited(ctx, viewerID, res.ID)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		res.IsFavorited = isFavorited

		isInCart, err := s.recipeRepository.IsInCart(ctx, viewerID, res.ID)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		res.IsInShoppingCart = isInCart

		if recipe.Author != nil && recipe.Author.ID.String() != viewerID {
			isSubscribed, err := s.userRepository.IsFollowing(ctx, viewerID, recipe.Author.ID.String())
			if err != nil {
				return domain.RecipeResponse{}, err
			}
			res.Author.IsSubscribed = isSubscribed
		}
	}

	return res, nil
}

func toRecipePreview(recipe *entities.Recipe) domain.RecipePreview {
	return domain.RecipePreview{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
