package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/spimexfeed/internal/domain/dto"
	"github.com/avolkov/spimexfeed/internal/service"
)

const queryDateLayout = "2006-01-02"

// Handler provides HTTP handlers for the trading-results endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the cache-fronted service layer
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc service.TradingService
}

// NewHandler constructs a Handler around the trading service.
func NewHandler(svc service.TradingService) *Handler {
	return &Handler{svc: svc}
}

// GetLastDates handles GET /api/v1/last_dates.
//
// Query Parameters:
//   - limit (int, optional): number of distinct trading dates to return,
//     1..365, default 10.
//
// Responses:
//   - 200 OK: JSON array of ISO-8601 dates, newest first.
//   - 400 Bad Request: invalid limit.
//   - 500 Internal Server Error: store failure.
func (h *Handler) GetLastDates(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10, 1, 365)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit", err))
		return
	}

	dates, err := h.svc.LastDates(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch trading dates", err))
		return
	}
	c.JSON(http.StatusOK, dates)
}

// GetResults handles GET /api/v1/results.
//
// Query Parameters (all optional):
//   - oil_id: 4-char product code prefix, e.g. "A100".
//   - delivery_type_id: 1-char delivery type (last char of the product code).
//   - delivery_basis_id: 3-char delivery basis code.
//   - date: exact trading date, YYYY-MM-DD.
//   - limit: 1..1000, default 100.
func (h *Handler) GetResults(c *gin.Context) {
	limit, err := intQuery(c, "limit", 100, 1, 1000)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit", err))
		return
	}

	q := service.ResultsQuery{
		OilID:           strings.TrimSpace(c.Query("oil_id")),
		DeliveryTypeID:  strings.TrimSpace(c.Query("delivery_type_id")),
		DeliveryBasisID: strings.TrimSpace(c.Query("delivery_basis_id")),
		Limit:           limit,
	}
	if s := c.Query("date"); s != "" {
		parsed, err := time.Parse(queryDateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid date format, expected YYYY-MM-DD", err))
			return
		}
		q.Date = &parsed
	}

	results, err := h.svc.Results(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch trading results", err))
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetDynamics handles GET /api/v1/dynamics.
//
// Query Parameters:
//   - start_date, end_date (required): the date range, YYYY-MM-DD.
//   - oil_id, delivery_type_id, delivery_basis_id (optional): filters.
//   - limit (optional): 1..10000, 0 means unlimited.
func (h *Handler) GetDynamics(c *gin.Context) {
	start, err := requiredDate(c, "start_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start_date", err))
		return
	}
	end, err := requiredDate(c, "end_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end_date", err))
		return
	}
	if start.After(end) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("start_date must be <= end_date", nil))
		return
	}

	limit := 0
	if c.Query("limit") != "" {
		limit, err = intQuery(c, "limit", 0, 1, 10000)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit", err))
			return
		}
	}

	results, err := h.svc.Dynamics(c.Request.Context(), service.DynamicsQuery{
		StartDate:       start,
		EndDate:         end,
		OilID:           strings.TrimSpace(c.Query("oil_id")),
		DeliveryTypeID:  strings.TrimSpace(c.Query("delivery_type_id")),
		DeliveryBasisID: strings.TrimSpace(c.Query("delivery_basis_id")),
		Limit:           limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch dynamics", err))
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetLastResults handles GET /api/v1/last_results: every record of the most
// recent trading date.
//
// Responses:
//   - 200 OK: JSON array of trading results.
//   - 404 Not Found: the store holds no records.
//   - 500 Internal Server Error: store failure.
func (h *Handler) GetLastResults(c *gin.Context) {
	results, err := h.svc.LastResults(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoTradingData) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("no trading data found", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch last results", err))
		return
	}
	c.JSON(http.StatusOK, results)
}

// intQuery parses an optional integer query parameter with a default and an
// inclusive range.
func intQuery(c *gin.Context, name string, def, min, max int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, errors.New(name + " out of range")
	}
	return n, nil
}

func requiredDate(c *gin.Context, name string) (time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	return time.Parse(queryDateLayout, s)
}
