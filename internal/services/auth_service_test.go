package services_test

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func notFound() error { return apperr.NotFound("user not found") }

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	user := &models.User{Username: "testuser", Email: "test@example.com", Password: "password123"}

	mockRepo.On("GetByUsername", ctx, user.Username).Return(nil, notFound()).Once()
	mockRepo.On("GetByEmail", ctx, user.Email).Return(nil, notFound()).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role, "role defaults to customer")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Username already taken
	mockRepo.On("GetByUsername", ctx, "taken").Return(&models.User{Username: "taken"}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Username: "taken", Email: "x@example.com", Password: "password123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "already taken")

	// Email already registered
	mockRepo.On("GetByUsername", ctx, "fresh").Return(nil, notFound()).Once()
	mockRepo.On("GetByEmail", ctx, "dup@example.com").Return(&models.User{}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Username: "fresh", Email: "dup@example.com", Password: "password123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "already registered")
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{ID: "user-1", Username: "courier1", Password: string(hashed), Role: models.RoleCourier}
	mockRepo.On("GetByUsername", ctx, "courier1").Return(user, nil)
	mockRepo.On("GetByUsername", ctx, "ghost").Return(nil, notFound())

	token, err := authService.LoginUser(ctx, "courier1", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := authService.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, identity.Valid)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, []string{models.RoleCourier}, identity.Roles)

	_, err = authService.LoginUser(ctx, "courier1", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindInvalidCredential))

	_, err = authService.LoginUser(ctx, "ghost", "password123")
	assert.True(t, apperr.Is(err, apperr.KindInvalidCredential))
}

func TestAuthService_VerifyRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, _ := expired.SignedString([]byte(testJWTSecret))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	forgedToken, _ := forged.SignedString([]byte("other_secret"))

	for name, token := range map[string]string{"expired": expiredToken, "forged": forgedToken, "garbage": "not-a-jwt"} {
		t.Run(name, func(t *testing.T) {
			identity, err := authService.Verify(ctx, token)
			require.NoError(t, err)
			assert.False(t, identity.Valid)
		})
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
		mockRepo.On("GetByUsername", ctx, "root").Return(nil, notFound())
		mockRepo.On("GetByEmail", ctx, "root@example.com").Return(nil, notFound())
		mockRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "root" && u.Role == models.RoleAdmin
		})).Return(nil).Once()

		require.NoError(t, authService.EnsureAdmin(ctx, "root", "root@example.com", "root-password"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("keeps existing account", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
		mockRepo.On("GetByUsername", ctx, "root").Return(&models.User{Username: "root", Role: models.RoleAdmin}, nil)

		require.NoError(t, authService.EnsureAdmin(ctx, "root", "root@example.com", "root-password"))
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
