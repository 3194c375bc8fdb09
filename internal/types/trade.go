package types

import "time"

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Outcome is the realised result of a trade
type Outcome string

const (
	OutcomeWin  Outcome = "Win"
	OutcomeLoss Outcome = "Loss"
)

// Trade is a single journal entry. Pips and RiskReward are derived from the
// prices, side, outcome and pair whenever the trade is written.
type Trade struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Date          time.Time `gorm:"not null" json:"date"`
	Pair          string    `gorm:"not null" json:"pair"`
	Type          Side      `gorm:"type:varchar(4);not null" json:"type"`
	Entry         float64   `gorm:"not null" json:"entry"`
	StopLoss      float64   `gorm:"column:sl;not null" json:"sl"`
	TakeProfit    float64   `gorm:"column:tp;not null" json:"tp"`
	Result        Outcome   `gorm:"type:varchar(4);not null" json:"result"`
	Pips          *float64  `json:"pips,omitempty"`
	RiskReward    float64   `gorm:"column:rr;not null" json:"rr"`
	Notes         string    `json:"notes,omitempty"`
	ScreenshotURL string    `json:"screenshot_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PipsValue returns the stored pips, treating an absent value as zero
func (t Trade) PipsValue() float64 {
	if t.Pips == nil {
		return 0
	}
	return *t.Pips
}

// TradeInput is the validated, typed form of a create or update request.
type TradeInput struct {
	Date       time.Time
	Pair       string
	Type       Side
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Result     Outcome
	Notes      string
}
