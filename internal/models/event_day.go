package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EventDay is one of the four festival days. Rows are seeded out of band;
// all lookups go by code, never by position.
type EventDay struct {
	bun.BaseModel `bun:"table:event_days"`

	ID    int64     `bun:"id,pk,autoincrement" json:"id"`
	Code  string    `bun:"code,notnull,unique" json:"code"`
	Date  time.Time `bun:"date,nullzero" json:"date,omitempty"`
	Label string    `bun:"label,nullzero" json:"label,omitempty"`
}

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID           int64   `bun:"id,pk,autoincrement" json:"id"`
	Code         string  `bun:"code,notnull,unique" json:"code"`
	Name         string  `bun:"name,notnull" json:"name"`
	Category     string  `bun:"category,notnull" json:"category"`
	DurationDays int     `bun:"duration_days,notnull" json:"durationDays"`
	BasePrice    float64 `bun:"base_price,nullzero" json:"basePrice"`
	PeakPrice    float64 `bun:"peak_price,nullzero" json:"peakPrice,omitempty"`
}
