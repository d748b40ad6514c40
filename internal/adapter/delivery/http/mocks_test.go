package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/ratelimit"
)

type MockURLUseCase struct {
	mock.Mock
}

func (m *MockURLUseCase) ShortenURL(ctx context.Context, originalURL string, ownerID *int64, customCode string) (*entity.URL, error) {
	args := m.Called(ctx, originalURL, ownerID, customCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) ResolveShortCode(ctx context.Context, shortCode string, referrer, userAgent *string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode, referrer, userAgent)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URLStats, error) {
	args := m.Called(ctx, shortCode)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}

func (m *MockURLUseCase) ListUserURLs(ctx context.Context, ownerID int64) ([]*entity.URL, error) {
	args := m.Called(ctx, ownerID)
	urls, _ := args.Get(0).([]*entity.URL)
	return urls, args.Error(1)
}

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	args := m.Called(ctx, name, email, password)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) Login(ctx context.Context, email, password string) (auth.Token, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Token), args.Error(1)
}

func (m *MockUserUseCase) Authenticate(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Admit(ctx context.Context, key string, now time.Time) (ratelimit.Decision, error) {
	args := m.Called(ctx, key, now)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}
