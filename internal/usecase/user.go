package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"golang.org/x/crypto/bcrypt"
)

type userRepository interface {
	Save(ctx context.Context, user *entity.User) (*entity.User, error)
	RetrieveByEmail(ctx context.Context, email string) (*entity.User, error)
}

type tokenManager interface {
	Issue(userID int64) (auth.Token, error)
	Parse(token string) (int64, error)
}

type UserUseCase struct {
	userRepo   userRepository
	tokens     tokenManager
	bcryptCost int
}

func NewUserUseCase(userRepo userRepository, tokens tokenManager) *UserUseCase {
	return &UserUseCase{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (uc *UserUseCase) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	const op = "usecase.UserUseCase.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := uc.userRepo.Save(ctx, &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register user: %w", op, err)
	}

	return user, nil
}

// Login checks the credentials and issues a session token. Unknown emails and
// wrong passwords both yield entity.ErrInvalidCredentials.
func (uc *UserUseCase) Login(ctx context.Context, email, password string) (auth.Token, error) {
	const op = "usecase.UserUseCase.Login"

	user, err := uc.userRepo.RetrieveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return auth.Token{}, fmt.Errorf("%s: %w", op, entity.ErrInvalidCredentials)
		}
		return auth.Token{}, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return auth.Token{}, fmt.Errorf("%s: %w", op, entity.ErrInvalidCredentials)
	}

	token, err := uc.tokens.Issue(user.ID)
	if err != nil {
		return auth.Token{}, fmt.Errorf("%s: failed to issue token: %w", op, err)
	}

	return token, nil
}

// Authenticate returns the id of the user a session token was issued for.
func (uc *UserUseCase) Authenticate(token string) (int64, error) {
	const op = "usecase.UserUseCase.Authenticate"

	userID, err := uc.tokens.Parse(token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}
