package types

import (
	"time"

	"gorm.io/gorm"
)

// SignalAction is the direction carried by an external trading signal.
type SignalAction string

const (
	ActionBuy   SignalAction = "buy"
	ActionSell  SignalAction = "sell"
	ActionClose SignalAction = "close"
)

// Valid reports whether the action is one of the known values. TradingView
// alerts commonly use long/short as synonyms for buy/sell, so those are
// accepted on ingress and normalized by the matching predicate.
func (a SignalAction) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionClose, "long", "short":
		return true
	}
	return false
}

// Signal is an external trading cue, typically a TradingView alert. Signals
// are immutable once stored and expire after a retention window; they are
// read by the matching predicate but never mutate an order directly.
type Signal struct {
	gorm.Model `json:"-"`
	SignalID   string       `gorm:"uniqueIndex" json:"signal_id"`
	Symbol     string       `gorm:"index" json:"symbol"`
	Action     SignalAction `json:"action"`
	Price      float64      `json:"price"`
	Quantity   *float64     `json:"quantity,omitempty"`
	Strategy   string       `json:"strategy,omitempty"`
	Source     string       `json:"source,omitempty"`
	Timeframe  string       `json:"timeframe,omitempty"`
	AlertName  string       `json:"alert_name,omitempty"`
	Interval   string       `json:"interval,omitempty"`
	Indicators string       `json:"indicators,omitempty"` // raw JSON payload
	ReceivedAt time.Time    `gorm:"index" json:"received_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// Expired reports whether the signal has passed its retention window.
func (s *Signal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
