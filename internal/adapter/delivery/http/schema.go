package http

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	OriginalURL     string `json:"original_url" validate:"required,url"`
	CustomShortCode string `json:"custom_short_code" validate:"omitempty,max=50,shortcode"`
}

// urlResponse represents the structure for a response containing shortened URL information.
type urlResponse struct {
	ShortenedURL string    `json:"shortened_url"`
	ShortCode    string    `json:"short_code"`
	OriginalURL  string    `json:"original_url"`
	IsCustom     bool      `json:"is_custom"`
	CreatedAt    time.Time `json:"created_at"`
}

func toURLResponse(baseURL string, url *entity.URL) urlResponse {
	return urlResponse{
		ShortenedURL: shortenedURL(baseURL, url.ShortCode),
		ShortCode:    url.ShortCode,
		OriginalURL:  url.OriginalURL,
		IsCustom:     url.IsCustom,
		CreatedAt:    url.CreatedAt,
	}
}

func toURLListResponse(baseURL string, urls []*entity.URL) []urlResponse {
	resp := make([]urlResponse, 0, len(urls))
	for _, url := range urls {
		resp = append(resp, toURLResponse(baseURL, url))
	}
	return resp
}

func shortenedURL(baseURL, shortCode string) string {
	return strings.TrimRight(baseURL, "/") + "/" + shortCode
}

type referrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// urlStatsResponse represents the structure for a response containing URL statistics.
type urlStatsResponse struct {
	ShortCode    string          `json:"short_code"`
	OriginalURL  string          `json:"original_url"`
	IsCustom     bool            `json:"is_custom"`
	CreatedAt    time.Time       `json:"created_at"`
	VisitCount   int64           `json:"visit_count"`
	LastVisit    *time.Time      `json:"last_visit"`
	TopReferrers []referrerCount `json:"top_referrers"`
}

func toURLStatsResponse(stats *entity.URLStats) urlStatsResponse {
	referrers := make([]referrerCount, 0, len(stats.TopReferrers))
	for _, r := range stats.TopReferrers {
		referrers = append(referrers, referrerCount{Referrer: r.Referrer, Count: r.Count})
	}

	return urlStatsResponse{
		ShortCode:    stats.URL.ShortCode,
		OriginalURL:  stats.URL.OriginalURL,
		IsCustom:     stats.URL.IsCustom,
		CreatedAt:    stats.URL.CreatedAt,
		VisitCount:   stats.VisitCount,
		LastVisit:    stats.LastVisit,
		TopReferrers: referrers,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(user *entity.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

func newErrorResponse(message string) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: message,
	}
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse   = newErrorResponse("empty request body")
	invalidRequestBodyResponse = newErrorResponse("invalid request body")
	urlNotFoundResponse        = newErrorResponse("url not found")
	unauthorizedResponse       = newErrorResponse("authentication required")
	invalidCredentialsResponse = newErrorResponse("invalid email or password")
	serverErrorResponse        = newErrorResponse("server error occurred")
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "email":
		return "invalid email"
	case "shortcode":
		return "only letters, digits, '-' and '_' are allowed"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
