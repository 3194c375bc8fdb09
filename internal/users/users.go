package users

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/klear-journal/internal/auth"
	"github.com/ksred/klear-journal/pkg/middleware"
	"github.com/ksred/klear-journal/pkg/response"
)

const userKey = "user"

// Service resolves token claims to journal users
type Service struct {
	db     *Database
	logger zerolog.Logger
}

// NewService creates a user service on the given connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		logger: log.With().Str("service", "users").Logger(),
	}
}

// Resolve returns the user for the token subject, creating it on first sight
func (s *Service) Resolve(claims *auth.Claims) (*User, error) {
	user, err := s.db.GetBySubject(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	candidate := &User{
		ID:        uuid.New().String(),
		Subject:   claims.Subject,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}
	if err := s.db.CreateIfAbsent(candidate); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// A concurrent first request may have won the insert
	user, err = s.db.GetBySubject(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %q missing after create", claims.Subject)
	}
	if user.ID == candidate.ID {
		s.logger.Info().Str("user_id", user.ID).Str("subject", user.Subject).Msg("provisioned user")
	}
	return user, nil
}

// CurrentUser loads the authenticated user onto the context. It must run
// after middleware.JWTAuth.
func (s *Service) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.ClaimsFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			c.Abort()
			return
		}

		user, err := s.Resolve(claims)
		if err != nil {
			_ = c.Error(err)
			response.InternalError(c, "Failed to resolve user")
			c.Abort()
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the authenticated user on the context
func SetUser(c *gin.Context, user *User) {
	c.Set(userKey, user)
}

// FromContext returns the user stored by CurrentUser
func FromContext(c *gin.Context) (*User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*User)
	return user, ok && user != nil
}
