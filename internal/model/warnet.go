package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warnet is a cybercafe venue renting PCs by the hour.  Prices are per
// hour; the member rate applies to users whose membership is at this
// warnet.
type Warnet struct {
	ID                  uint64          `json:"id"`
	Name                string          `json:"name"`
	Address             string          `json:"address"`
	Phone               *string         `json:"phone,omitempty"`
	ImageURL            *string         `json:"image_url,omitempty"`
	OpenTime            string          `json:"open_time"`
	CloseTime           string          `json:"close_time"`
	TotalPCs            uint32          `json:"total_pcs"`
	RegularPricePerHour decimal.Decimal `json:"regular_price_per_hour"`
	MemberPricePerHour  decimal.Decimal `json:"member_price_per_hour"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// WarnetRule is one house rule displayed on the warnet detail page.
type WarnetRule struct {
	ID        uint64 `json:"id"`
	WarnetID  uint64 `json:"warnet_id"`
	Rule      string `json:"rule"`
	SortOrder int    `json:"sort_order"`
}
