package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"mailcraft/internal/models"
)

// RegisterRoutes — базовый liveness.
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
}

// RegisterRoutesWithDB — liveness + readiness (ping БД с таймаутом).
func RegisterRoutesWithDB(r *mux.Router, db *gorm.DB) {
	RegisterRoutes(r)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			models.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "db not configured", nil)
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			models.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "db handle error", nil)
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			models.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "db unreachable", nil)
			return
		}
		models.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	models.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
