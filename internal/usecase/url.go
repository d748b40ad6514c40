// Package usecase implements the application operations on top of the
// short code allocator and the repositories.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

type allocator interface {
	Allocate(ctx context.Context, req shortcode.Request) (*entity.URL, error)
}

type urlRepository interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveByOwner(ctx context.Context, ownerID int64) ([]*entity.URL, error)
}

type visitRepository interface {
	Save(ctx context.Context, visit *entity.Visit) (*entity.Visit, error)
	Stats(ctx context.Context, url *entity.URL) (*entity.URLStats, error)
}

type URLUseCase struct {
	allocator allocator
	urlRepo   urlRepository
	visitRepo visitRepository
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewURLUseCase(
	allocator allocator,
	urlRepo urlRepository,
	visitRepo visitRepository,
	logger *slog.Logger,
	m *metrics.Metrics,
) *URLUseCase {
	return &URLUseCase{
		allocator: allocator,
		urlRepo:   urlRepo,
		visitRepo: visitRepo,
		logger:    logger,
		metrics:   m,
	}
}

// ShortenURL reserves a short code for originalURL. A non-empty customCode is
// reserved verbatim and requires ownerID.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string, ownerID *int64, customCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	url, err := uc.allocator.Allocate(ctx, shortcode.Request{
		OriginalURL: originalURL,
		OwnerID:     ownerID,
		DesiredCode: customCode,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	return url, nil
}

// ResolveShortCode returns the URL behind shortCode and records the visit.
// A visit which can't be recorded is logged and doesn't fail the resolution.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string, referrer, userAgent *string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.metrics.Redirects.WithLabelValues(metrics.StatusNotFound).Inc()
		}
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.metrics.Redirects.WithLabelValues(metrics.StatusFound).Inc()

	_, err = uc.visitRepo.Save(ctx, &entity.Visit{
		URLID:     url.ID,
		Referrer:  referrer,
		UserAgent: userAgent,
	})
	if err != nil {
		uc.logger.WarnContext(ctx, "failed to record visit",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	return url, nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URLStats, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	stats, err := uc.visitRepo.Stats(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return stats, nil
}

// ListUserURLs returns the URLs owned by the user, newest first.
func (uc *URLUseCase) ListUserURLs(ctx context.Context, ownerID int64) ([]*entity.URL, error) {
	const op = "usecase.URLUseCase.ListUserURLs"

	urls, err := uc.urlRepo.RetrieveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list user urls: %w", op, err)
	}

	return urls, nil
}
