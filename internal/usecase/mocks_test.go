package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

type MockAllocator struct {
	mock.Mock
}

func (a *MockAllocator) Allocate(ctx context.Context, req shortcode.Request) (*entity.URL, error) {
	args := a.Called(ctx, req)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveByOwner(ctx context.Context, ownerID int64) ([]*entity.URL, error) {
	args := r.Called(ctx, ownerID)
	urls, _ := args.Get(0).([]*entity.URL)
	return urls, args.Error(1)
}

type MockVisitRepository struct {
	mock.Mock
}

func (r *MockVisitRepository) Save(ctx context.Context, visit *entity.Visit) (*entity.Visit, error) {
	args := r.Called(ctx, visit)
	saved, _ := args.Get(0).(*entity.Visit)
	return saved, args.Error(1)
}

func (r *MockVisitRepository) Stats(ctx context.Context, url *entity.URL) (*entity.URLStats, error) {
	args := r.Called(ctx, url)
	stats, _ := args.Get(0).(*entity.URLStats)
	return stats, args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (r *MockUserRepository) Save(ctx context.Context, user *entity.User) (*entity.User, error) {
	args := r.Called(ctx, user)
	saved, _ := args.Get(0).(*entity.User)
	return saved, args.Error(1)
}

func (r *MockUserRepository) RetrieveByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := r.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) Issue(userID int64) (auth.Token, error) {
	args := m.Called(userID)
	return args.Get(0).(auth.Token), args.Error(1)
}

func (m *MockTokenManager) Parse(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}
