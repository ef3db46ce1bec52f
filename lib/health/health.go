// Package health serves the liveness endpoint of the catalog.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/icco/catalog/lib/types"
	"github.com/icco/catalog/lib/validation"
)

// Component is the health of one dependency.
type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is the health check response. Running on the fallback snapshot is
// not unhealthy; DataSource only tells where the catalog is served from.
type Health struct {
	Status     string               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	DB         Component            `json:"db"`
	DataSource string               `json:"dataSource"`
	Sources    []types.SourceStatus `json:"sources,omitempty"`
}

// StatusReporter reports the data source of every repository.
type StatusReporter interface {
	Status() []types.SourceStatus
}

// Check pings the settings database and reports the catalog data sources.
// A failed ping answers 503.
func Check(db *gorm.DB, catalog StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h := Health{Status: "ok", Timestamp: time.Now().UTC(), DB: Component{Status: "ok"}}
		if catalog != nil {
			h.Sources = catalog.Status()
		}
		h.DataSource = Summarize(h.Sources)

		status := http.StatusOK
		if err := ping(ctx, db); err != nil {
			h.Status = "degraded"
			h.DB = Component{Status: "error", Message: err.Error()}
			status = http.StatusServiceUnavailable
		}
		validation.WriteJSON(w, h, status)
	}
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Summarize folds per-repository origins into "remote", "fallback", "mixed"
// or "none".
func Summarize(sources []types.SourceStatus) string {
	origin := "none"
	for i, s := range sources {
		if i == 0 {
			origin = s.Origin
		} else if s.Origin != origin {
			return "mixed"
		}
	}
	return origin
}
