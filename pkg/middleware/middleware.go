package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ksred/klear-journal/internal/auth"
	"github.com/ksred/klear-journal/pkg/response"
)

const (
	claimsKey   = "claims"
	clientIDKey = "clientID"
)

// TokenValidator validates a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// RouteLimit applies PerMinute requests per client to paths starting with
// Prefix. An empty Methods list matches every method.
type RouteLimit struct {
	Prefix    string
	Methods   []string
	PerMinute float64
	Burst     int
}

func (r RouteLimit) matches(method, path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and route group
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limits   []RouteLimit
}

// NewRateLimiter creates a limiter for the given route groups. The first
// matching group wins; unmatched requests are not limited.
func NewRateLimiter(limits ...RouteLimit) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limits:   limits,
	}
}

func (rl *RateLimiter) limiter(clientID string, method, path string) *rate.Limiter {
	var route *RouteLimit
	for i := range rl.limits {
		if rl.limits[i].matches(method, path) {
			route = &rl.limits[i]
			break
		}
	}
	if route == nil {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := clientID + ":" + route.Prefix + ":" + strings.Join(route.Methods, ",")
	v, exists := rl.visitors[key]
	if !exists {
		burst := route.Burst
		if burst < 1 {
			burst = 1
		}
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(route.PerMinute/60.0), burst),
		}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than idle, every interval, until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(idle)
		}
	}
}

func (rl *RateLimiter) evict(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(rl.visitors, key)
		}
	}
}

// Middleware returns the gin handler enforcing the limits
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString(clientIDKey)
		if clientID == "" {
			clientID = c.ClientIP()
		}

		limiter := rl.limiter(clientID, c.Request.Method, c.Request.URL.Path)
		if limiter != nil && !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header and stores
// the token claims on the context
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || strings.ToLower(bearerToken[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(bearerToken[1])
		if err != nil {
			log.Debug().Err(err).Msg("rejected bearer token")
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Set(clientIDKey, claims.Subject)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by JWTAuth
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// RequestLogger logs every request once it has been handled
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if status := c.Writer.Status(); status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Str("client_id", c.GetString(clientIDKey)).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
