package httpserver

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	cartsvc "storefront/internal/service/cart"
)

const (
	cartSessionHeader = "X-Cart-Session"
	cartSessionKey    = "cartSession"
	adminClaimsKey    = "adminClaims"
)

// cartSession picks up the caller's cart id, minting one for new visitors,
// and echoes it back so the client can keep sending it.
func cartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(cartSessionHeader))
		if id == "" {
			id = cartsvc.NewSessionID()
		}
		c.Set(cartSessionKey, id)
		c.Header(cartSessionHeader, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(cartSessionKey)
}

func requireAdmin(tokens TokenValidator, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		claims, err := tokens.Validate(parts[1])
		if err != nil {
			logger.Printf("admin auth: rejected path=%s error=%v", c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

type clientEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// clientLimiter keeps one token bucket per client IP. Idle buckets are
// dropped during later calls rather than by a background goroutine.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

const (
	limiterIdleTTL   = 30 * time.Minute
	limiterSweepTick = 5 * time.Minute
)

func newClientLimiter(perMinute int, now func() time.Time) *clientLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     now,
	}
}

func (l *clientLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweepTick {
		for k, e := range l.clients {
			if now.Sub(e.last) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.clients[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = e
	}
	e.last = now
	return e.limiter.AllowN(now, 1)
}

func rateLimit(l *clientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
