package models

import (
	"time"
)

// Trade is one recorded actual transaction near the subject property.
type Trade struct {
	Price    int64     `json:"price"`
	Date     time.Time `json:"date"`
	AreaSqm  float64   `json:"area_sqm"`
	Floor    *int      `json:"floor,omitempty"`
	Building string    `json:"building,omitempty"`
}

// Listing is one comparable asking-price listing near the subject property.
type Listing struct {
	Price   int64   `json:"price"`
	AreaSqm float64 `json:"area_sqm"`
}

// AuctionOutcome is one recent forced-sale result in the subject's vicinity,
// used to sanity-check the assumed recovery ratio.
type AuctionOutcome struct {
	AppraisedPrice int64     `json:"appraised_price"`
	SoldPrice      int64     `json:"sold_price"`
	Date           time.Time `json:"date"`
}

// MarketData bundles recent trades, comparable listings, and forced-sale
// outcomes for the subject's legal-dong. FairValue is the estimate derived
// from trades (most recent comparable, area-adjusted) that risk scoring uses.
type MarketData struct {
	LegalDongCd string           `json:"legal_dong_cd"`
	Trades      []Trade          `json:"trades"`
	Listings    []Listing        `json:"listings"`
	Auctions    []AuctionOutcome `json:"auctions"`
	FairValue   int64            `json:"fair_value"`
	FetchedAt   time.Time        `json:"fetched_at"`
}
