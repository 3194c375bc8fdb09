package export

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/klear-journal/internal/metrics"
	"github.com/ksred/klear-journal/internal/trades"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
	"github.com/ksred/klear-journal/pkg/response"
)

const (
	formatCSV   = "csv"
	previewSize = 5
)

// TradeLister loads a user's trades newest first
type TradeLister interface {
	ListTrades(userID string, r trades.DateRange) ([]types.Trade, error)
}

// DateRange is the period a preview covers. Bounds are echoed from the
// request when given, otherwise taken from the oldest and newest trade.
type DateRange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// Preview summarises what an export would contain
type Preview struct {
	Stats      metrics.Summary `json:"stats"`
	TradeCount int             `json:"trade_count"`
	DateRange  DateRange       `json:"date_range"`
	Preview    []types.Trade   `json:"preview"`
}

// PreviewRequest is the body of POST /export
type PreviewRequest struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

type Service struct {
	trades TradeLister
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(lister TradeLister) *Service {
	return &Service{
		trades: lister,
		now:    time.Now,
		logger: log.With().Str("service", "export").Logger(),
	}
}

// Preview builds the export preview for the user's trades in the range
func (s *Service) Preview(userID string, req PreviewRequest) (*Preview, error) {
	r, err := trades.ParseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	list, err := s.trades.ListTrades(userID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	p := &Preview{
		Stats:      roundedSummary(metrics.Summarize(list)),
		TradeCount: len(list),
		DateRange:  previewRange(req, list),
		Preview:    list[:min(previewSize, len(list))],
	}
	return p, nil
}

// roundedSummary applies the display precision used by the export page
func roundedSummary(s metrics.Summary) metrics.Summary {
	s.WinRate = metrics.Round(s.WinRate, 1)
	s.TotalPips = metrics.Round(s.TotalPips, 1)
	s.AvgRiskReward = metrics.Round(s.AvgRiskReward, 2)
	s.ProfitFactor = metrics.Round(s.ProfitFactor, 2)
	return s
}

// previewRange expects list newest first
func previewRange(req PreviewRequest, list []types.Trade) DateRange {
	var r DateRange
	if from := strings.TrimSpace(req.DateFrom); from != "" {
		r.From = &from
	} else if len(list) > 0 {
		oldest := list[len(list)-1].Date.UTC().Format(time.RFC3339)
		r.From = &oldest
	}
	if to := strings.TrimSpace(req.DateTo); to != "" {
		r.To = &to
	} else if len(list) > 0 {
		newest := list[0].Date.UTC().Format(time.RFC3339)
		r.To = &newest
	}
	return r
}

// GinHandlers contains HTTP handlers for export endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// DownloadHandler handles GET /export?format=csv&dateFrom=&dateTo=
func (h *GinHandlers) DownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		format := strings.ToLower(c.DefaultQuery("format", formatCSV))
		if format != formatCSV {
			response.BadRequest(c, fmt.Sprintf("Unsupported export format %q", format))
			return
		}

		r, err := trades.ParseDateRange(c.Query("dateFrom"), c.Query("dateTo"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		list, err := h.service.trades.ListTrades(user.ID, r)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if len(list) == 0 {
			response.NotFound(c, "No trades found for export")
			return
		}

		filename := metrics.ExportFilename(h.service.now())
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := metrics.WriteCSV(c.Writer, list); err != nil {
			h.service.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to stream export")
			return
		}

		h.service.logger.Info().
			Str("user_id", user.ID).
			Int("trade_count", len(list)).
			Msg("trades exported")
	}
}

// PreviewHandler handles POST /export with an optional {dateFrom, dateTo} body
func (h *GinHandlers) PreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := users.FromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req PreviewRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				response.BadRequest(c, "Invalid request body")
				return
			}
		}

		p, err := h.service.Preview(user.ID, req)
		response.Handle(c, p, err)
	}
}
