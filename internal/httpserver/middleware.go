package httpserver

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
	"tanglewood-gallery/internal/metrics"
)

const (
	sessionHeader    = "X-Cart-Session"
	sessionCookie    = "cart_session"
	sessionCookieAge = 30 * 24 * 60 * 60
	sessionCtxKey    = "cartSession"
)

// sessionMiddleware resolves the cart session from the header or cookie and
// issues a new one when the request carries none or a malformed id.
func sessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if id == "" {
			id, _ = c.Cookie(sessionCookie)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, sessionCookieAge, "/", "", secure, true)
		}
		c.Header(sessionHeader, id)
		c.Set(sessionCtxKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionCtxKey)
}

func metricsMiddleware(m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

const limiterCacheSize = 4096

type clientLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   *lru.Cache
}

func (l *clientLimiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.clients.Get(client); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
	l.clients.Add(client, limiter)
	return limiter
}

// rateLimitMiddleware allows perMinute requests per client address with an
// equal burst. perMinute <= 0 disables limiting.
func rateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	cache, _ := lru.New(limiterCacheSize) // only fails for non-positive sizes
	l := &clientLimiter{perMinute: perMinute, clients: cache}
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("too many checkout attempts, try again shortly"))
			return
		}
		c.Next()
	}
}
