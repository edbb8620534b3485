package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient для тестирования
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewStatusCmd(ctx)
	if err := args.Error(0); err != nil {
		cmd.SetErr(err)
	}
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	cmd := redis.NewIntCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(int64(args.Int(0)))
	}
	return cmd
}

func (m *MockRedisClient) Keys(ctx context.Context, pattern string) *redis.StringSliceCmd {
	args := m.Called(ctx, pattern)
	cmd := redis.NewStringSliceCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.Get(0).([]string))
	}
	return cmd
}

func TestUser_ToJSON(t *testing.T) {
	user := &User{
		ID:    123,
		Name:  "Test User",
		Email: "test@example.com",
		Role:  "user",
	}

	data, err := user.ToJSON()
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	restored, err := UserFromJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, restored.ID)
	assert.Equal(t, user.Name, restored.Name)
	assert.Equal(t, user.Email, restored.Email)
	assert.Equal(t, user.Role, restored.Role)
}

func TestUser_IsAdmin(t *testing.T) {
	adminUser := &User{Role: "admin"}
	regularUser := &User{Role: "user"}

	assert.True(t, adminUser.IsAdmin())
	assert.False(t, regularUser.IsAdmin())
}

func TestUser_IsEmailVerified(t *testing.T) {
	now := time.Now()
	verified := &User{EmailVerifiedAt: &now}
	unverified := &User{}

	assert.True(t, verified.IsEmailVerified())
	assert.False(t, unverified.IsEmailVerified())
}

func TestCache_SetAndGetUser(t *testing.T) {
	mockClient := &MockRedisClient{}
	cache := NewCache(mockClient, 5*time.Minute)

	user := &User{
		ID:    123,
		Name:  "Test User",
		Email: "test@example.com",
	}

	token := "test-token-123"
	ctx := context.Background()

	userData, _ := user.ToJSON()
	mockClient.On("Set", ctx, mock.AnythingOfType("string"), userData, 5*time.Minute).Return(nil)

	err := cache.SetUser(ctx, token, user)
	assert.NoError(t, err)

	mockClient.On("Get", ctx, mock.AnythingOfType("string")).Return(string(userData), nil)

	restored, err := cache.GetUser(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, user.ID, restored.ID)

	mockClient.AssertExpectations(t)
}

func TestCache_GetUser_Miss(t *testing.T) {
	mockClient := &MockRedisClient{}
	cache := NewCache(mockClient, 5*time.Minute)

	mockClient.On("Get", mock.Anything, mock.AnythingOfType("string")).Return("", redis.Nil)

	user, err := cache.GetUser(context.Background(), "unknown-token")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestCache_TokenKeyIsHashed(t *testing.T) {
	mockClient := &MockRedisClient{}
	cache := NewCache(mockClient, time.Minute)

	secret := "very-secret-bearer-token"
	key := cache.tokenKey(secret)

	assert.True(t, strings.HasPrefix(key, "auth:token:"))
	assert.NotContains(t, key, secret)
	// Один и тот же токен всегда дает один и тот же ключ
	assert.Equal(t, key, cache.tokenKey(secret))
	assert.NotEqual(t, key, cache.tokenKey("other-token"))
}

func TestValidator_ValidateToken(t *testing.T) {
	accountAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 7, "name": "Rider", "email": "rider@example.com", "role": "user"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer accountAPI.Close()

	mockClient := &MockRedisClient{}
	mockClient.On("Get", mock.Anything, mock.AnythingOfType("string")).Return("", redis.Nil)
	mockClient.On("Set", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(nil)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	validator := NewValidator(accountAPI.URL, NewCache(mockClient, time.Minute), logger)

	t.Run("valid token", func(t *testing.T) {
		user, err := validator.ValidateToken(context.Background(), "good-token")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "Rider", user.Name)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := validator.ValidateToken(context.Background(), "bad-token-12")
		assert.Error(t, err)
	})
}
