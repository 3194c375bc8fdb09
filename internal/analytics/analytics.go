package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/klear-journal/internal/config"
	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/trades"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
	"github.com/ksred/klear-journal/pkg/response"
)

// TradeLister loads a user's trades
type TradeLister interface {
	ListTradesByUserID(userID string, r trades.DateRange) ([]types.Trade, error)
}

// Dashboard is the analytics payload for one user
type Dashboard struct {
	Summary     metrics.Summary       `json:"summary"`
	EquityCurve []metrics.EquityPoint `json:"equity_curve"`
}

// Service computes dashboards and caches them per user until the user's
// trades change or the TTL passes
type Service struct {
	trades TradeLister
	equity metrics.EquityOptions
	cache  *ristretto.Cache
	ttl    time.Duration
	logger zerolog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

func NewService(lister TradeLister, cacheCfg config.Cache, equity metrics.EquityOptions) (*Service, error) {
	maxCost := cacheCfg.MaxCost
	if maxCost <= 0 {
		maxCost = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		// each dashboard costs 1, so MaxCost is an entry count
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics cache: %w", err)
	}

	return &Service{
		trades:      lister,
		equity:      equity,
		cache:       cache,
		ttl:         cacheCfg.TTL,
		logger:      log.With().Str("service", "analytics").Logger(),
		generations: make(map[string]uint64),
	}, nil
}

// EquityOptionsFromConfig maps the equity configuration onto curve options
func EquityOptionsFromConfig(cfg config.Equity) metrics.EquityOptions {
	opts := metrics.DefaultEquityOptions()
	if cfg.Baseline != 0 {
		opts.Baseline = cfg.Baseline
	}
	if cfg.PipValue != 0 {
		opts.PipValue = cfg.PipValue
	}
	if cfg.LossDelta != "" {
		opts.LossDelta = metrics.LossDelta(cfg.LossDelta)
	}
	return opts
}

// Compute builds the dashboard for a set of trades without touching the cache
func (s *Service) Compute(list []types.Trade) Dashboard {
	return Dashboard{
		Summary:     metrics.Summarize(list),
		EquityCurve: metrics.EquityCurve(list, s.equity),
	}
}

// Dashboard returns the user's dashboard, from the cache when possible
func (s *Service) Dashboard(userID string) (*Dashboard, error) {
	key := s.cacheKey(userID)
	if v, ok := s.cache.Get(key); ok {
		if d, ok := v.(*Dashboard); ok {
			return d, nil
		}
	}

	list, err := s.trades.ListTradesByUserID(userID, trades.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	d := s.Compute(list)
	if s.ttl > 0 {
		s.cache.SetWithTTL(key, &d, 1, s.ttl)
	}
	return &d, nil
}

// Invalidate drops the cached dashboard of the user. A computation already
// running for the old generation stores its result under a key no longer read.
func (s *Service) Invalidate(userID string) {
	s.mu.Lock()
	old := s.generations[userID]
	s.generations[userID] = old + 1
	s.mu.Unlock()

	s.cache.Del(fmt.Sprintf("%s:%d", userID, old))
	s.logger.Debug().Str("user_id", userID).Msg("analytics cache invalidated")
}

// Close releases the cache
func (s *Service) Close() {
	s.cache.Close()
}

func (s *Service) cacheKey(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s:%d", userID, s.generations[userID])
}

// GinHandlers contains HTTP handlers for analytics endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// DashboardHandler handles GET /analytics
func (h *GinHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		d, err := h.service.Dashboard(user.ID)
		response.Handle(c, d, err)
	}
}
