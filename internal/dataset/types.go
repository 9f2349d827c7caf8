package dataset

import (
	"time"
)

// Sentinel values for absent annotation context. Unmatched joins produce
// these, never empty strings or nulls.
const (
	NoPromotion = "none"
	NoHoliday   = "none"
)

// SaleEvent is one sold line item. Immutable once ingested.
type SaleEvent struct {
	TransactionID   string    `json:"transaction_id"`
	SKU             string    `json:"sku"`
	Store           string    `json:"store"`
	Date            time.Time `json:"date"`
	Quantity        float64   `json:"quantity"`
	DiscountedPrice float64   `json:"discounted_price"`
	ListPrice       float64   `json:"list_price"`
	PromotionID     int64     `json:"promotion_id"`
	PromoCodeUsed   bool      `json:"promo_code_used"`
	Weighted        bool      `json:"weighted"`
	LoyaltyBucket   string    `json:"loyalty_bucket"`
}

// ReturnRecord is a quantity returned against a specific
// (transaction, SKU, store) line.
type ReturnRecord struct {
	TransactionID string    `json:"transaction_id"`
	SKU           string    `json:"sku"`
	Store         string    `json:"store"`
	ReturnDate    time.Time `json:"return_date"`
	Quantity      float64   `json:"quantity"`
}

// Promotion is a promotion interval. ID 0 means "no promotion" and is
// never treated as active.
type Promotion struct {
	ID              int64     `json:"id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Type            string    `json:"type"`
	DiscountPercent float64   `json:"discount_percent"`
	Clearance       bool      `json:"clearance"`
}

// Holiday is one calendar entry. At most one entry per date matters for
// the holiday flag; proximity features scan the full set.
type Holiday struct {
	Date   time.Time `json:"date"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	DayOff bool      `json:"day_off"`
}

// Record is a sale line item augmented by the temporal join and the
// calendar/promotion annotation. It is the input row of the feature
// builder.
type Record struct {
	SaleEvent

	// Temporal join outputs
	ReturnedQty       float64 `json:"returned_qty"`
	NetUnits          float64 `json:"net_units"`
	BasketTotal       float64 `json:"basket_total"`
	CertificateAmount float64 `json:"certificate_amount"`

	// Calendar annotation
	IsHoliday   bool   `json:"is_holiday"`
	HolidayType string `json:"holiday_type"`
	DayOff      bool   `json:"day_off"`

	// Promotion annotation. PromoActive reflects the temporal check,
	// not mere presence of a matching promotion row.
	PromoType       string  `json:"promo_type"`
	DiscountPercent float64 `json:"discount_percent"`
	Clearance       bool    `json:"clearance"`
	PromoActive     bool    `json:"promo_active"`
}

// Key identifies the line for return matching.
func (e SaleEvent) Key() LineKey {
	return LineKey{TransactionID: e.TransactionID, SKU: e.SKU, Store: e.Store}
}

// LineKey is the (transaction, SKU, store) identity a return is matched
// against.
type LineKey struct {
	TransactionID string
	SKU           string
	Store         string
}
