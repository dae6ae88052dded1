package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/spimexfeed/internal/domain/models"
)

func TestFromRecord_SerializesDecimalsAndDates(t *testing.T) {
	rec := models.TradeRecord{
		ID:                  42,
		ExchangeProductID:   "A1000BAS1",
		ExchangeProductName: "Бензин АИ-100",
		OilID:               "A100",
		DeliveryBasisID:     "0BA",
		DeliveryBasisName:   "ст. Аллагуват",
		DeliveryTypeID:      "1",
		Volume:              decimal.RequireFromString("100.5"),
		Total:               decimal.RequireFromString("5500000"),
		Count:               7,
		Date:                time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC),
	}

	resp := FromRecord(rec)
	if resp.Volume != 100.5 {
		t.Fatalf("volume: want 100.5 got %v", resp.Volume)
	}
	if resp.Total != 5500000 {
		t.Fatalf("total: want 5500000 got %v", resp.Total)
	}
	if resp.Date != "2025-07-22" {
		t.Fatalf("date: want 2025-07-22 got %q", resp.Date)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"volume":100.5`, `"date":"2025-07-22"`, `"count":7`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("json %s missing %s", raw, want)
		}
	}
}

func TestFromRecords_PreservesOrder(t *testing.T) {
	recs := []models.TradeRecord{
		{ExchangeProductID: "B"},
		{ExchangeProductID: "A"},
	}
	out := FromRecords(recs)
	if len(out) != 2 || out[0].ExchangeProductID != "B" || out[1].ExchangeProductID != "A" {
		t.Fatalf("order not preserved: %+v", out)
	}
}

func TestFormatDates(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC),
	}
	got := FormatDates(dates)
	if len(got) != 2 || got[0] != "2025-07-22" || got[1] != "2025-07-21" {
		t.Fatalf("unexpected %v", got)
	}
}
