package trades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/screenshots"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
	"github.com/ksred/klear-journal/pkg/response"
)

var ErrTradeNotFound = errors.New("trade not found")

// Invalidator is notified whenever a user's trades change
type Invalidator interface {
	Invalidate(userID string)
}

// DeletionQueue records screenshot deletions to retry later
type DeletionQueue interface {
	Enqueue(key string, cause error) error
}

// Service handles trade journal operations
type Service struct {
	db          *Database
	store       screenshots.Store
	queue       DeletionQueue
	invalidator Invalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService creates a trade service. store, queue and invalidator may be nil.
func NewService(gormDB *gorm.DB, store screenshots.Store, queue DeletionQueue, invalidator Invalidator) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		store:       store,
		queue:       queue,
		invalidator: invalidator,
		logger:      log.With().Str("service", "trades").Logger(),
		now:         time.Now,
	}
}

// ListTrades returns the user's trades in the range, newest first
func (s *Service) ListTrades(userID string, r DateRange) ([]types.Trade, error) {
	return s.db.ListTradesByUserID(userID, r)
}

// GetTrade returns ErrTradeNotFound when the trade is absent or not the user's
func (s *Service) GetTrade(userID, tradeID string) (*types.Trade, error) {
	trade, err := s.db.GetTradeByIDAndUserID(tradeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade: %w", err)
	}
	if trade == nil {
		return nil, ErrTradeNotFound
	}
	return trade, nil
}

// CreateTrade stores a new trade with its derived pips and risk:reward. A
// screenshot that fails to upload is logged and the trade is saved without it.
func (s *Service) CreateTrade(ctx context.Context, userID string, in types.TradeInput, img *screenshots.Image) (*types.Trade, error) {
	trade := &types.Trade{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	metrics.Apply(trade, in)

	if img != nil {
		trade.ScreenshotURL = s.upload(ctx, img)
	}

	if err := s.db.CreateTrade(trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	s.changed(userID)

	s.logger.Info().
		Str("trade_id", trade.ID).
		Str("user_id", userID).
		Str("pair", trade.Pair).
		Msg("trade created")
	return trade, nil
}

// UpdateTrade replaces the editable fields and re-derives pips and
// risk:reward. A new screenshot replaces the old one only once it has
// uploaded and the trade is saved; the old image is then deleted. If the save
// fails the new image is removed instead.
func (s *Service) UpdateTrade(ctx context.Context, userID, tradeID string, in types.TradeInput, img *screenshots.Image) (*types.Trade, error) {
	trade, err := s.GetTrade(userID, tradeID)
	if err != nil {
		return nil, err
	}

	metrics.Apply(trade, in)

	previous := trade.ScreenshotURL
	if img != nil {
		if url := s.upload(ctx, img); url != "" {
			trade.ScreenshotURL = url
		}
	}

	if err := s.db.UpdateTrade(trade); err != nil {
		if trade.ScreenshotURL != previous {
			s.deleteScreenshot(ctx, trade.ScreenshotURL)
		}
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}
	s.changed(userID)

	if previous != "" && previous != trade.ScreenshotURL {
		s.deleteScreenshot(ctx, previous)
	}
	return trade, nil
}

// DeleteTrade removes the trade, then its screenshot on a best-effort basis
func (s *Service) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	trade, err := s.GetTrade(userID, tradeID)
	if err != nil {
		return err
	}

	deleted, err := s.db.DeleteTrade(tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if !deleted {
		return ErrTradeNotFound
	}
	s.changed(userID)

	if trade.ScreenshotURL != "" {
		s.deleteScreenshot(ctx, trade.ScreenshotURL)
	}
	return nil
}

func (s *Service) changed(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

func (s *Service) upload(ctx context.Context, img *screenshots.Image) string {
	if s.store == nil {
		s.logger.Warn().Msg("screenshot ignored, no store configured")
		return ""
	}
	url, err := s.store.Upload(ctx, screenshots.ObjectName(s.now()), img.Reader(), img.ContentType)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upload screenshot")
		return ""
	}
	return url
}

func (s *Service) deleteScreenshot(ctx context.Context, url string) {
	if s.store == nil {
		return
	}
	key := s.store.KeyFromURL(url)
	if key == "" {
		return
	}

	err := s.store.Delete(ctx, key)
	if err == nil {
		return
	}
	s.logger.Error().Err(err).Str("key", key).Msg("failed to delete screenshot")

	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(key, err); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to queue screenshot deletion")
	}
}

// GinHandlers contains HTTP handlers for trade endpoints
type GinHandlers struct {
	service  *Service
	maxBytes int64
}

// NewGinHandlers creates the trade handlers. maxBytes caps screenshot size.
func NewGinHandlers(service *Service, maxBytes int64) *GinHandlers {
	return &GinHandlers{
		service:  service,
		maxBytes: maxBytes,
	}
}

// ListTradesHandler handles GET /trades with optional dateFrom and dateTo
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		r, err := ParseDateRange(c.Query("dateFrom"), c.Query("dateTo"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		trades, err := h.service.ListTrades(user.ID, r)
		response.Handle(c, trades, err)
	}
}

// CreateTradeHandler handles POST /trades. The body is either a multipart
// form, which may carry a screenshot file, or a JSON object.
func (h *GinHandlers) CreateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		in, img, err := h.bindTrade(c)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		trade, err := h.service.CreateTrade(c.Request.Context(), user.ID, in, img)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Created(c, trade)
	}
}

// GetTradeHandler handles GET /trades/:id
func (h *GinHandlers) GetTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		trade, err := h.service.GetTrade(user.ID, c.Param("id"))
		if errors.Is(err, ErrTradeNotFound) {
			response.NotFound(c, "Trade not found")
			return
		}
		response.Handle(c, trade, err)
	}
}

// UpdateTradeHandler handles PUT /trades/:id
func (h *GinHandlers) UpdateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		in, img, err := h.bindTrade(c)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		trade, err := h.service.UpdateTrade(c.Request.Context(), user.ID, c.Param("id"), in, img)
		if errors.Is(err, ErrTradeNotFound) {
			response.NotFound(c, "Trade not found")
			return
		}
		response.Handle(c, trade, err)
	}
}

// DeleteTradeHandler handles DELETE /trades/:id
func (h *GinHandlers) DeleteTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		err := h.service.DeleteTrade(c.Request.Context(), user.ID, c.Param("id"))
		if errors.Is(err, ErrTradeNotFound) {
			response.NotFound(c, "Trade not found")
			return
		}
		response.Handle(c, gin.H{"message": "Trade deleted successfully"}, err)
	}
}

var formFields = []string{"date", "pair", "type", "entry", "sl", "tp", "result", "notes"}

func (h *GinHandlers) bindTrade(c *gin.Context) (types.TradeInput, *screenshots.Image, error) {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var body map[string]json.RawMessage
		if err := c.ShouldBindJSON(&body); err != nil {
			return types.TradeInput{}, nil, NewValidationError("body", "must be a JSON object")
		}
		in, err := ParseInput(jsonValues(body))
		return in, nil, err
	}

	values := make(map[string]string, len(formFields))
	for _, field := range formFields {
		values[field] = c.PostForm(field)
	}
	in, err := ParseInput(values)
	if err != nil {
		return in, nil, err
	}

	img, err := h.readScreenshot(c)
	if err != nil {
		return types.TradeInput{}, nil, err
	}
	return in, img, nil
}

func (h *GinHandlers) readScreenshot(c *gin.Context) (*screenshots.Image, error) {
	header, err := c.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, NewValidationError("screenshot", "could not be read")
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return nil, NewValidationError("screenshot", screenshots.ErrTooLarge.Error())
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer file.Close()

	img, err := screenshots.ReadImage(file, h.maxBytes)
	switch {
	case errors.Is(err, screenshots.ErrNotAnImage), errors.Is(err, screenshots.ErrTooLarge):
		return nil, NewValidationError("screenshot", err.Error())
	case err != nil:
		return nil, err
	}
	return img, nil
}
