// Package shortcode allocates short codes which are unique across the
// persistent key space.
//
// Uniqueness is enforced by the store at insert time: a generated code which
// turns out to be taken is reported by the store as entity.ErrShortCodeExists
// and the allocator retries with a fresh code. Custom codes are probed before
// the insert so that the caller gets a descriptive error, and a duplicate
// reported by the insert itself is surfaced the same way.
package shortcode

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

const (
	DefaultLength     = 6
	DefaultMaxRetries = 5
)

var alphabetRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generate returns a random code of exactly length characters drawn from the
// URL-safe alphabet A-Za-z0-9_- using a cryptographically strong source.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	if length < 1 {
		return "", fmt.Errorf("%s: length must be positive, got %d", op, length)
	}

	code, err := gonanoid.New(length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// IsValid reports whether code consists only of URL-safe characters.
func IsValid(code string) bool {
	return alphabetRe.MatchString(code)
}

// Store is the persistent key space the allocator reserves codes in.
type Store interface {
	Exists(ctx context.Context, shortCode string) (bool, error)
	// Save inserts url and returns entity.ErrShortCodeExists if its short code is taken.
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
}

// Request describes a short code allocation.
type Request struct {
	OriginalURL string
	OwnerID     *int64
	DesiredCode string // DesiredCode is reserved verbatim when set.
	Length      int    // Length of a generated code, the allocator default when zero.
}

type Option func(*Allocator)

func WithMaxRetries(n int) Option {
	return func(a *Allocator) {
		a.maxRetries = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// WithGenerator replaces the random code source.
func WithGenerator(fn func(length int) (string, error)) Option {
	return func(a *Allocator) {
		a.generate = fn
	}
}

type Allocator struct {
	store      Store
	length     int
	maxRetries int
	generate   func(length int) (string, error)
	metrics    *metrics.Metrics
}

// New creates an allocator generating codes of length characters unless a
// request asks for another length.
func New(store Store, length int, opts ...Option) *Allocator {
	if length <= 0 {
		length = DefaultLength
	}

	a := &Allocator{
		store:      store,
		length:     length,
		maxRetries: DefaultMaxRetries,
		generate:   Generate,
		metrics:    metrics.Discard(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Allocate reserves a short code for req.OriginalURL and returns the stored URL.
func (a *Allocator) Allocate(ctx context.Context, req Request) (*entity.URL, error) {
	if req.DesiredCode != "" {
		return a.allocateCustom(ctx, req)
	}
	return a.allocateGenerated(ctx, req)
}

func (a *Allocator) allocateCustom(ctx context.Context, req Request) (*entity.URL, error) {
	const op = "shortcode.Allocator.allocateCustom"

	if req.OwnerID == nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrOwnerRequired)
	}
	if entity.IsReservedShortCode(req.DesiredCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeReserved)
	}

	exists, err := a.store.Exists(ctx, req.DesiredCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	url, err := a.store.Save(ctx, &entity.URL{
		ShortCode:   req.DesiredCode,
		OriginalURL: req.OriginalURL,
		OwnerID:     req.OwnerID,
		IsCustom:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
	}

	a.metrics.ShortCodesAllocated.WithLabelValues(metrics.KindCustom).Inc()

	return url, nil
}

func (a *Allocator) allocateGenerated(ctx context.Context, req Request) (*entity.URL, error) {
	const op = "shortcode.Allocator.allocateGenerated"

	length := req.Length
	if length == 0 {
		length = a.length
	}

	for i := 0; i < a.maxRetries; i++ {
		shortCode, err := a.generate(length)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if entity.IsReservedShortCode(shortCode) {
			a.metrics.ShortCodeCollisions.Inc()
			continue
		}

		url, err := a.store.Save(ctx, &entity.URL{
			ShortCode:   shortCode,
			OriginalURL: req.OriginalURL,
			OwnerID:     req.OwnerID,
		})
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				a.metrics.ShortCodeCollisions.Inc()
				continue
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		a.metrics.ShortCodesAllocated.WithLabelValues(metrics.KindGenerated).Inc()

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}
