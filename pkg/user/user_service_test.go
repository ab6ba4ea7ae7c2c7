package user

import (
	"RecipeShare/domain"
	"RecipeShare/entities"
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepository struct {
	users    map[string]*entities.User
	follows  map[string]bool
	recipes  map[string][]*entities.Recipe
	followed []*entities.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{
		users:   make(map[string]*entities.User),
		follows: make(map[string]bool),
		recipes: make(map[string][]*entities.Recipe),
	}
}

func (f *fakeUserRepository) CreateUser(ctx context.Context, user *entities.User) error {
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepository) UpdateUser(ctx context.Context, user *entities.User) error {
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepository) AddFollow(ctx context.Context, userID, authorID string) (bool, error) {
	key := userID + "/" + authorID
	if f.follows[key] {
		return false, nil
	}
	f.follows[key] = true
	return true, nil
}

func (f *fakeUserRepository) RemoveFollow(ctx context.Context, userID, authorID string) error {
	key := userID + "/" + authorID
	if !f.follows[key] {
		return gorm.ErrRecordNotFound
	}
	delete(f.follows, key)
	return nil
}

func (f *fakeUserRepository) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	return f.follows[userID+"/"+authorID], nil
}

func (f *fakeUserRepository) GetFollowedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	return f.followed, int64(len(f.followed)), nil
}

func (f *fakeUserRepository) GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, int64, error) {
	recipes := f.recipes[authorID]
	total := int64(len(recipes))
	if limit > 0 && len(recipes) > limit {
		recipes = recipes[:limit]
	}
	return recipes, total, nil
}

type fakeJWTService struct{}

func (fakeJWTService) GenerateTokenUser(userId string, role string) string { return "token-" + role }

func (fakeJWTService) ValidateTokenUser(token string) (*jwtlib.Token, error) {
	return &jwtlib.Token{Valid: true}, nil
}

func (fakeJWTService) GetUserIDByToken(token string) (string, string, error) {
	return "", "", nil
}

func (fakeJWTService) GenerateTokenOneShot(data map[string]any, duration time.Duration) (string, error) {
	return "one-shot", nil
}

func (fakeJWTService) ValidateTokenOneShot(token string) (jwtlib.MapClaims, error) {
	return jwtlib.MapClaims{}, domain.ErrTokenInvalid
}

func seedUser(repo *fakeUserRepository, email, password string) *entities.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &entities.User{
		ID:        uuid.New(),
		Email:     email,
		Username:  "cook",
		FirstName: "Ada",
		Password:  string(hashed),
		Role:      domain.RoleUser,
	}
	repo.users[u.ID.String()] = u
	return u
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepository()
	seedUser(repo, "ada@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	_, err := service.RegisterUser(context.Background(), domain.RegisterUserRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestRegisterUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepository()
	service := NewUserService(repo, fakeJWTService{})

	res, err := service.RegisterUser(context.Background(), domain.RegisterUserRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "secret123",
	})
	require.NoError(t, err)

	stored := repo.users[res.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
	assert.Equal(t, domain.RoleUser, stored.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepository()
	seedUser(repo, "ada@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	_, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	_, err = service.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestLoginReturnsToken(t *testing.T) {
	repo := newFakeUserRepository()
	seedUser(repo, "ada@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	res, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "token-user", res.Token)
	assert.Equal(t, domain.RoleUser, res.Role)
}

func TestSubscribeToSelf(t *testing.T) {
	repo := newFakeUserRepository()
	u := seedUser(repo, "ada@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	_, _, err := service.Subscribe(context.Background(), u.ID.String(), u.ID.String(), 3)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)
}

func TestSubscribeUnknownAuthor(t *testing.T) {
	repo := newFakeUserRepository()
	u := seedUser(repo, "ada@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	_, _, err := service.Subscribe(context.Background(), u.ID.String(), uuid.New().String(), 3)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	repo := newFakeUserRepository()
	follower := seedUser(repo, "ada@example.com", "secret123")
	author := seedUser(repo, "bob@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	sub, created, err := service.Subscribe(context.Background(), follower.ID.String(), author.ID.String(), 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, author.ID.String(), sub.ID)
	assert.True(t, sub.IsSubscribed)

	_, created, err = service.Subscribe(context.Background(), follower.ID.String(), author.ID.String(), 3)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSubscriptionBoundsRecipePreviews(t *testing.T) {
	repo := newFakeUserRepository()
	follower := seedUser(repo, "ada@example.com", "secret123")
	author := seedUser(repo, "bob@example.com", "secret123")
	for i := 0; i < 5; i++ {
		repo.recipes[author.ID.String()] = append(repo.recipes[author.ID.String()], &entities.Recipe{
			ID:          uuid.New(),
			AuthorID:    author.ID,
			Name:        "soup",
			CookingTime: 30,
		})
	}
	service := NewUserService(repo, fakeJWTService{})

	sub, _, err := service.Subscribe(context.Background(), follower.ID.String(), author.ID.String(), 3)
	require.NoError(t, err)
	assert.Len(t, sub.Recipes, 3)
	assert.Equal(t, int64(5), sub.RecipesCount)
}

func TestUnsubscribeNotFollowing(t *testing.T) {
	repo := newFakeUserRepository()
	follower := seedUser(repo, "ada@example.com", "secret123")
	author := seedUser(repo, "bob@example.com", "secret123")
	service := NewUserService(repo, fakeJWTService{})

	err := service.Unsubscribe(context.Background(), follower.ID.String(), author.ID.String())
	assert.ErrorIs(t, err, domain.ErrFollowNotFound)

	_, _, err = service.Subscribe(context.Background(), follower.ID.String(), author.ID.String(), 3)
	require.NoError(t, err)
	require.NoError(t, service.Unsubscribe(context.Background(), follower.ID.String(), author.ID.String()))
}

func TestGetSubscriptions(t *testing.T) {
	repo := newFakeUserRepository()
	follower := seedUser(repo, "ada@example.com", "secret123")
	author := seedUser(repo, "bob@example.com", "secret123")
	repo.followed = []*entities.User{author}
	service := NewUserService(repo, fakeJWTService{})

	res, err := service.GetSubscriptions(context.Background(), follower.ID.String(), 1, 10, 3)
	require.NoError(t, err)
	require.Len(t, res.Authors, 1)
	assert.Equal(t, author.ID.String(), res.Authors[0].ID)
	assert.Equal(t, int64(1), res.Total)
}
