package api

import "github.com/gin-gonic/gin"

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (depends on database connectivity; reports
//     whether the cache backend is attached, but a missing cache never makes
//     the service unready).
type HealthHandler struct {
	dbPing       func() error // Checks database connectivity
	cacheEnabled func() bool  // Reports whether the Redis cache is attached
}

// NewHealthHandler constructs a HealthHandler. dbPing is typically db.Ping
// from *sql.DB; cacheEnabled may be nil when no cache is configured.
func NewHealthHandler(dbPing func() error, cacheEnabled func() bool) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, cacheEnabled: cacheEnabled}
}

// Register mounts the health and readiness endpoints into the provided Gin router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: Returns 200 OK if the database is reachable, 503 otherwise.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if h.dbPing != nil && h.dbPing() != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		cache := "disabled"
		if h.cacheEnabled != nil && h.cacheEnabled() {
			cache = "ok"
		}
		c.JSON(200, gin.H{"status": "ready", "cache": cache})
	})
}
