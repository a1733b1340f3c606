package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func rateLimitedRouter(limiter ports.RateLimiter) *gin.Engine {
	r := gin.New()
	rule := RateLimitRule{Limit: 10, Window: time.Minute}
	r.Use(RateLimiter(limiter, "bids", rule, testLogger()))
	r.POST("/bid", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_Allowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)

	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(10), time.Minute).Return(&ports.RateLimitResult{
		Allowed:   true,
		Limit:     10,
		Remaining: 9,
		ResetAt:   time.Now().Add(time.Minute).Unix(),
	}, nil)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bid", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_Blocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)

	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(10), time.Minute).Return(&ports.RateLimitResult{
		Allowed:   false,
		Limit:     10,
		Remaining: 0,
		ResetAt:   time.Now().Add(30 * time.Second).Unix(),
	}, nil)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bid", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_001")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_StoreFailureDegradesOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)

	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(10), time.Minute).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bid", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
