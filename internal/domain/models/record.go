package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord represents one row of the SPIMEX oil trading-results report:
// the trading activity for one exchange product on one trading date.
//
// (ExchangeProductID, Date) is the natural key; the store never holds more
// than one record per key.
type TradeRecord struct {
	ID                  int64
	ExchangeProductID   string
	ExchangeProductName string
	OilID               string // first 4 chars of ExchangeProductID
	DeliveryBasisID     string // chars 5-7 of ExchangeProductID
	DeliveryBasisName   string
	DeliveryTypeID      string // last char of ExchangeProductID
	Volume              decimal.Decimal
	Total               decimal.Decimal
	Count               int
	Date                time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProductParts holds the identifiers derived from an exchange product code.
type ProductParts struct {
	OilID           string
	DeliveryBasisID string
	DeliveryTypeID  string
}

// DeriveProductParts splits an exchange product code into its fixed-offset
// components: oil id (chars 1-4), delivery basis id (chars 5-7) and delivery
// type id (last char). Codes shorter than expected yield truncated or empty
// parts; derivation never fails.
//
// Example: "A1000BAS1" -> {OilID: "A100", DeliveryBasisID: "0BA", DeliveryTypeID: "1"}.
func DeriveProductParts(code string) ProductParts {
	var p ProductParts
	r := []rune(code)

	if len(r) >= 4 {
		p.OilID = string(r[:4])
	} else {
		p.OilID = string(r)
	}
	if len(r) > 4 {
		end := 7
		if end > len(r) {
			end = len(r)
		}
		p.DeliveryBasisID = string(r[4:end])
	}
	if len(r) > 0 {
		p.DeliveryTypeID = string(r[len(r)-1])
	}
	return p
}
