package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"opening-lines-quiz/internal/app"
)

// CatalogHandler serves the levels and authors offered on the start screen.
type CatalogHandler struct {
	service *app.QuizService
	log     *zap.Logger
}

func NewCatalogHandler(service *app.QuizService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, log: log}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		h.log.Error("load catalog", zap.Error(err))
		http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(catalog); err != nil {
		h.log.Debug("write catalog", zap.Error(err))
	}
}
