package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string, ownerID *int64, customCode string) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string, referrer, userAgent *string) (*entity.URL, error)
	GetURLStats(ctx context.Context, shortCode string) (*entity.URLStats, error)
	ListUserURLs(ctx context.Context, ownerID int64) ([]*entity.URL, error)
}

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
	baseURL  string
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate, baseURL string) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		validate: validate,
		baseURL:  baseURL,
	}
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	ownerID, ok := userIDFromContext(r.Context())
	if req.CustomShortCode != "" && !ok {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, newErrorResponse("you must be logged in to use custom short codes"))
		return
	}

	var owner *int64
	if ok {
		owner = &ownerID
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.OriginalURL, owner, req.CustomShortCode)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrShortCodeReserved):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newErrorResponse(entity.ErrShortCodeReserved.Error()))
		case errors.Is(err, entity.ErrOwnerRequired):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, newErrorResponse("you must be logged in to use custom short codes"))
		case errors.Is(err, entity.ErrShortCodeExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, newErrorResponse(entity.ErrShortCodeExists.Error()))
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toURLResponse(h.baseURL, url))
}

// redirect sends the client to the original URL behind the short code.
func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if !shortcode.IsValid(shortCode) || entity.IsReservedShortCode(shortCode) {
		http.NotFound(w, r)
		return
	}

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode, headerValue(r, "Referer"), headerValue(r, "User-Agent"))
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			http.Error(w, "short url not found", http.StatusNotFound)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		http.Error(w, "server error occurred", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	stats, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLStatsResponse(stats))
}

func (h *urlHandler) listUserURLs(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := userIDFromContext(r.Context())

	urls, err := h.useCase.ListUserURLs(r.Context(), ownerID)
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLListResponse(h.baseURL, urls))
}

func headerValue(r *http.Request, name string) *string {
	v := r.Header.Get(name)
	if v == "" {
		return nil
	}
	return &v
}
