package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const sessionCookieName = "session"

type userUseCase interface {
	Register(ctx context.Context, name, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (auth.Token, error)
	Authenticate(token string) (int64, error)
}

type userHandler struct {
	useCase       userUseCase
	validate      *validator.Validate
	secureCookies bool
}

func newUserHandler(useCase userUseCase, validate *validator.Validate, secureCookies bool) *userHandler {
	return &userHandler{
		useCase:       useCase,
		validate:      validate,
		secureCookies: secureCookies,
	}
}

func (h *userHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest

	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	user, err := h.useCase.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, entity.ErrUserExists) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, newErrorResponse(entity.ErrUserExists.Error()))
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(user))
}

// login issues a session token, returned both in the body and as a cookie.
func (h *userHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	token, err := h.useCase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidCredentials) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, invalidCredentialsResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	render.Status(r, http.StatusOK)
	render.JSON(w, r, tokenResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}
