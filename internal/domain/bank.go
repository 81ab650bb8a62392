package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankSnapshot is the bank state reported by one poll of a slot.
type BankSnapshot struct {
	SlotID          int             `json:"slotId"`
	GameDay         float64         `json:"gameDay"`
	LiquidCash      decimal.Decimal `json:"liquidCash"`
	InvestedSp500   decimal.Decimal `json:"investedSp500"`
	TotalAssets     decimal.Decimal `json:"totalAssets"`
	Sp500Price      decimal.Decimal `json:"sp500Price"`
	MortgageRate    *float64        `json:"mortgageRate"`
	NextDividendDay int             `json:"nextDividendDay"`
	NextGrowthDay   int             `json:"nextGrowthDay"`

	// ObservedAt is the local wall-clock time the snapshot was received.
	ObservedAt time.Time `json:"-"`
}

// Rate returns the mortgage rate as a fraction.
func (b *BankSnapshot) Rate() float64 {
	if b == nil {
		return 0
	}
	return NormalizeRatePtr(b.MortgageRate)
}

// SlotSummary describes one save-game slot.
type SlotSummary struct {
	SlotID      int             `json:"slotId"`
	ClientCount int             `json:"clientCount"`
	GameDay     float64         `json:"gameDay"`
	HasData     bool            `json:"hasData"`
	LiquidCash  decimal.Decimal `json:"liquidCash"`
}

// Label renders the slot for menus, e.g. "Y2 M3, 4 clients".
func (s SlotSummary) Label() string {
	if !s.HasData {
		return "empty"
	}
	return GameDateString(s.GameDay) + ", " + pluralize(s.ClientCount, "client")
}
