package dto

import (
	"time"

	"github.com/avolkov/spimexfeed/internal/domain/models"
)

// dateLayout is the wire format for calendar dates (ISO-8601, date only).
const dateLayout = "2006-01-02"

// TradingResultResponse represents one trade record in API responses and in
// serialized cache entries. Decimal amounts are rendered as floats and dates
// as ISO-8601 strings, so a cached entry round-trips to the same JSON the
// repository-backed path produces.
type TradingResultResponse struct {
	ID                  int64   `json:"id"`
	ExchangeProductID   string  `json:"exchange_product_id"`
	ExchangeProductName string  `json:"exchange_product_name"`
	OilID               string  `json:"oil_id"`
	DeliveryBasisID     string  `json:"delivery_basis_id"`
	DeliveryBasisName   string  `json:"delivery_basis_name"`
	DeliveryTypeID      string  `json:"delivery_type_id"`
	Volume              float64 `json:"volume"`
	Total               float64 `json:"total"`
	Count               int     `json:"count"`
	Date                string  `json:"date"`
}

// FromRecord maps a domain record to its response shape.
func FromRecord(r models.TradeRecord) TradingResultResponse {
	return TradingResultResponse{
		ID:                  r.ID,
		ExchangeProductID:   r.ExchangeProductID,
		ExchangeProductName: r.ExchangeProductName,
		OilID:               r.OilID,
		DeliveryBasisID:     r.DeliveryBasisID,
		DeliveryBasisName:   r.DeliveryBasisName,
		DeliveryTypeID:      r.DeliveryTypeID,
		Volume:              r.Volume.InexactFloat64(),
		Total:               r.Total.InexactFloat64(),
		Count:               r.Count,
		Date:                r.Date.Format(dateLayout),
	}
}

// FromRecords maps a slice of domain records, preserving order.
func FromRecords(records []models.TradeRecord) []TradingResultResponse {
	out := make([]TradingResultResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}

// FormatDates renders dates in the wire format, preserving order.
func FormatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	return out
}
