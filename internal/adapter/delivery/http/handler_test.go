package http

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/ratelimit"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

const testBaseURL = "https://sho.rt"

type HandlersTestSuite struct {
	suite.Suite
	errUnknown      error
	ownerID         int64
	createdAt       time.Time
	logger          *httplog.Logger
	urlUseCaseMock  *MockURLUseCase
	userUseCaseMock *MockUserUseCase
	server          *httptest.Server
	e               *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.ownerID = 7
	suite.createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlUseCaseMock = new(MockURLUseCase)
	suite.userUseCaseMock = new(MockUserUseCase)

	router := NewRouter(suite.logger, Deps{
		URLUseCase:     suite.urlUseCaseMock,
		UserUseCase:    suite.userUseCaseMock,
		BaseURL:        testBaseURL,
		AllowedOrigins: []string{"*"},
	})
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlUseCaseMock.AssertExpectations(suite.T())
	suite.userUseCaseMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) expectSession() {
	suite.userUseCaseMock.
		On("Authenticate", "token").
		Once().
		Return(suite.ownerID, nil)
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestRegister() {
	const path = "/api/v1/register"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "empty request body")
	})

	suite.Run("validation error", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{
				"name":     "Jane",
				"email":    "not an email",
				"password": "s3cret-password",
			}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "email").
			HasValue("message", "invalid email")
	})

	suite.Run("short password", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{
				"name":     "Jane",
				"email":    "jane@example.com",
				"password": "short",
			}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "password").
			HasValue("message", "must be at least 8 characters long")
	})

	suite.Run("user exists", func() {
		suite.userUseCaseMock.
			On("Register", mock.Anything, "Jane", "jane@example.com", "s3cret-password").
			Once().
			Return(nil, entity.ErrUserExists)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{
				"name":     "Jane",
				"email":    "jane@example.com",
				"password": "s3cret-password",
			}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", entity.ErrUserExists.Error())
	})

	suite.Run("server error", func() {
		suite.userUseCaseMock.
			On("Register", mock.Anything, "Jane", "jane@example.com", "s3cret-password").
			Once().
			Return(nil, suite.errUnknown)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"name":     "Jane",
				"email":    "jane@example.com",
				"password": "s3cret-password",
			}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("message", "server error occurred")
	})

	suite.Run("success", func() {
		suite.userUseCaseMock.
			On("Register", mock.Anything, "Jane", "jane@example.com", "s3cret-password").
			Once().
			Return(&entity.User{ID: 1, Name: "Jane", Email: "jane@example.com", CreatedAt: suite.createdAt}, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{
				"name":     "Jane",
				"email":    "jane@example.com",
				"password": "s3cret-password",
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("id", 1)
		resp.HasValue("email", "jane@example.com")
		resp.NotContainsKey("password_hash")
	})
}

func (suite *HandlersTestSuite) TestLogin() {
	const path = "/api/v1/login"

	suite.Run("validation error", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"email": "jane@example.com"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "password").
			HasValue("message", "this field is required")
	})

	suite.Run("invalid credentials", func() {
		suite.userUseCaseMock.
			On("Login", mock.Anything, "jane@example.com", "wrong-password").
			Once().
			Return(auth.Token{}, entity.ErrInvalidCredentials)

		suite.e.POST(path).
			WithJSON(map[string]string{"email": "jane@example.com", "password": "wrong-password"}).
			Expect().
			Status(http.StatusUnauthorized).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("success", func() {
		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

		suite.userUseCaseMock.
			On("Login", mock.Anything, "jane@example.com", "s3cret-password").
			Once().
			Return(auth.Token{Value: "token", ExpiresAt: expiresAt}, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"email": "jane@example.com", "password": "s3cret-password"}).
			Expect().
			Status(http.StatusOK)

		resp.Cookie(sessionCookieName).Value().IsEqual("token")
		resp.JSON().Object().
			HasValue("token", "token").
			HasValue("expires_at", expiresAt.Format(time.RFC3339))
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/v1/shorten"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("invalid request body", func() {
		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "invalid request body")
	})

	suite.Run("validation error", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "invalid url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "original_url").
			ContainsKey("message")
	})

	suite.Run("invalid custom short code", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "my/code"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "custom_short_code")
	})

	suite.Run("custom short code without session", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "mine"}).
			Expect().
			Status(http.StatusForbidden).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("invalid session token", func() {
		suite.userUseCaseMock.
			On("Authenticate", "expired").
			Once().
			Return(int64(0), auth.ErrInvalidToken)

		suite.e.POST(path).
			WithHeader("Authorization", "Bearer expired").
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "mine"}).
			Expect().
			Status(http.StatusForbidden)
	})

	suite.Run("reserved short code", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", &suite.ownerID, "dashboard").
			Once().
			Return(nil, entity.ErrShortCodeReserved)

		suite.e.POST(path).
			WithHeader("Authorization", "Bearer token").
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "dashboard"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("message", entity.ErrShortCodeReserved.Error())
	})

	suite.Run("short code exists", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", &suite.ownerID, "mine").
			Once().
			Return(nil, entity.ErrShortCodeExists)

		suite.e.POST(path).
			WithCookie(sessionCookieName, "token").
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "mine"}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object().
			HasValue("message", entity.ErrShortCodeExists.Error())
	})

	suite.Run("retries exhausted", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", (*int64)(nil), "").
			Once().
			Return(nil, shortcode.ErrMaxRetriesExceeded)

		suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("message", "server error occurred")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", (*int64)(nil), "").
			Once().
			Return(&entity.URL{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				CreatedAt:   suite.createdAt,
			}, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("shortened_url", testBaseURL+"/abc123")
		resp.HasValue("short_code", "abc123")
		resp.HasValue("original_url", "https://example.com")
		resp.HasValue("is_custom", false)
		resp.ContainsKey("created_at")
	})

	suite.Run("success with custom short code", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", &suite.ownerID, "mine").
			Once().
			Return(&entity.URL{
				ID:          2,
				ShortCode:   "mine",
				OriginalURL: "https://example.com",
				OwnerID:     &suite.ownerID,
				IsCustom:    true,
				CreatedAt:   suite.createdAt,
			}, nil)

		resp := suite.e.POST(path).
			WithHeader("Authorization", "Bearer token").
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "mine"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("shortened_url", testBaseURL+"/mine")
		resp.HasValue("is_custom", true)
	})
}

func (suite *HandlersTestSuite) TestShortenURL_SingleCharacterCustomCode() {
	suite.Run("success", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ShortenURL", mock.Anything, "https://example.com", &suite.ownerID, "x").
			Once().
			Return(&entity.URL{
				ID:          3,
				ShortCode:   "x",
				OriginalURL: "https://example.com",
				OwnerID:     &suite.ownerID,
				IsCustom:    true,
				CreatedAt:   suite.createdAt,
			}, nil)

		suite.e.POST("/api/v1/shorten").
			WithHeader("Authorization", "Bearer token").
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_short_code": "x"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			HasValue("shortened_url", testBaseURL+"/x")
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	suite.Run("reserved short code", func() {
		suite.e.GET("/dashboard").
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", (*string)(nil), mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET("/abc123").
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusNotFound).
			Text().Contains("not found")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123", (*string)(nil), mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET("/abc123").
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("ResolveShortCode", mock.Anything, "abc123",
				mock.MatchedBy(func(referrer *string) bool {
					return referrer != nil && *referrer == "https://news.example.com"
				}),
				mock.MatchedBy(func(userAgent *string) bool {
					return userAgent != nil && *userAgent == "test-agent"
				}),
			).
			Once().
			Return(&entity.URL{ID: 1, ShortCode: "abc123", OriginalURL: "https://example.com/landing"}, nil)

		suite.e.GET("/abc123").
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			WithHeader("Referer", "https://news.example.com").
			WithHeader("User-Agent", "test-agent").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/landing")
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	const path = "/api/v1/stats/{shortCode}"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("message", "url not found")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("no visits", func() {
		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(&entity.URLStats{
				URL: entity.URL{ShortCode: "abc123", OriginalURL: "https://example.com", CreatedAt: suite.createdAt},
			}, nil)

		resp := suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("visit_count", 0)
		resp.Value("last_visit").IsNull()
		resp.Value("top_referrers").Array().IsEmpty()
	})

	suite.Run("success", func() {
		lastVisit := suite.createdAt.Add(time.Hour)

		suite.urlUseCaseMock.
			On("GetURLStats", mock.Anything, "abc123").
			Once().
			Return(&entity.URLStats{
				URL:        entity.URL{ShortCode: "abc123", OriginalURL: "https://example.com", CreatedAt: suite.createdAt},
				VisitCount: 3,
				LastVisit:  &lastVisit,
				TopReferrers: []entity.ReferrerCount{
					{Referrer: "https://news.example.com", Count: 2},
				},
			}, nil)

		resp := suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("short_code", "abc123")
		resp.HasValue("visit_count", 3)
		resp.HasValue("last_visit", lastVisit.Format(time.RFC3339))
		resp.Value("top_referrers").Array().Value(0).Object().
			HasValue("referrer", "https://news.example.com").
			HasValue("count", 2)
	})
}

func (suite *HandlersTestSuite) TestListUserURLs() {
	const path = "/api/v1/user/urls"

	suite.Run("no session", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusUnauthorized).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("invalid session", func() {
		suite.userUseCaseMock.
			On("Authenticate", "forged").
			Once().
			Return(int64(0), auth.ErrInvalidToken)

		suite.e.GET(path).
			WithCookie(sessionCookieName, "forged").
			Expect().
			Status(http.StatusUnauthorized)
	})

	suite.Run("server error", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ListUserURLs", mock.Anything, suite.ownerID).
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET(path).
			WithHeader("Authorization", "Bearer token").
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("empty list", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ListUserURLs", mock.Anything, suite.ownerID).
			Once().
			Return([]*entity.URL{}, nil)

		suite.e.GET(path).
			WithHeader("Authorization", "Bearer token").
			Expect().
			Status(http.StatusOK).
			JSON().Array().IsEmpty()
	})

	suite.Run("success", func() {
		suite.expectSession()
		suite.urlUseCaseMock.
			On("ListUserURLs", mock.Anything, suite.ownerID).
			Once().
			Return([]*entity.URL{
				{ShortCode: "mine", OriginalURL: "https://example.com/a", IsCustom: true},
				{ShortCode: "abc123", OriginalURL: "https://example.com/b"},
			}, nil)

		resp := suite.e.GET(path).
			WithHeader("Authorization", "Bearer token").
			Expect().
			Status(http.StatusOK).
			JSON().Array()

		resp.Length().IsEqual(2)
		resp.Value(0).Object().
			HasValue("short_code", "mine").
			HasValue("shortened_url", testBaseURL+"/mine")
	})
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestRouter_RateLimit(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 2, time.Minute)

	router := NewRouter(httplog.NewLogger("", httplog.Options{Writer: io.Discard}), Deps{
		URLUseCase:     new(MockURLUseCase),
		UserUseCase:    new(MockUserUseCase),
		Limiter:        limiter,
		AllowedOrigins: []string{"*"},
		Now:            func() time.Time { return now },
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	e := httpexpect.Default(t, server.URL)

	for _, remaining := range []string{"1", "0"} {
		resp := e.GET("/api/v1/ping").
			Expect().
			Status(http.StatusOK)

		resp.Header("X-RateLimit-Limit").IsEqual("2")
		resp.Header("X-RateLimit-Remaining").IsEqual(remaining)
		resp.Header("X-RateLimit-Reset").IsEqual("1700000060")
	}

	resp := e.GET("/api/v1/ping").
		Expect().
		Status(http.StatusTooManyRequests)

	resp.Header("Retry-After").IsEqual("60")
	resp.JSON().Object().
		HasValue("status", "error").
		HasValue("message", "rate limit exceeded, try again in 60 seconds")
}

func TestRouter_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	m.Redirects.WithLabelValues(metrics.StatusFound).Inc()

	router := NewRouter(httplog.NewLogger("", httplog.Options{Writer: io.Discard}), Deps{
		URLUseCase:     new(MockURLUseCase),
		UserUseCase:    new(MockUserUseCase),
		Metrics:        metrics.Handler(reg),
		AllowedOrigins: []string{"*"},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	httpexpect.Default(t, server.URL).
		GET("/metrics").
		Expect().
		Status(http.StatusOK).
		Text().Contains(`url_shortener_redirects_total{status="found"} 1`)
}
