package middleware

import (
	"fmt"

	"calltriage/internal/utils"
	"calltriage/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimitObserver is told about every rejected request.
type RateLimitObserver interface {
	RecordRateLimited(path string)
}

// RateLimitMiddleware limits requests per client IP. rate uses the limiter
// format, e.g. "120-M". Store errors let the request through.
func RateLimitMiddleware(rate string, log *logger.Logger, observer RateLimitObserver) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}
	lim := limiter.New(memory.NewStore(), r)

	return mgin.NewMiddleware(lim,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			if observer != nil {
				observer.RecordRateLimited(c.FullPath())
			}
			utils.TooManyRequestsResponse(c)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.WithContext(c.Request.Context()).WithError(err).Warn("Rate limiter unavailable")
			c.Next()
		}),
	), nil
}
