package templates

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает ручки на уже аутентифицированный /api подроутер.
// previewMW оборачивает дорогую генерацию превью (rate limit).
func RegisterRoutes(api *mux.Router, h *Handler, previewMW func(http.Handler) http.Handler) {
	if previewMW == nil {
		previewMW = func(next http.Handler) http.Handler { return next }
	}

	api.HandleFunc("/templates", h.List).Methods(http.MethodGet)
	api.HandleFunc("/templates", h.Create).Methods(http.MethodPost)
	api.Handle("/templates/preview", previewMW(http.HandlerFunc(h.Preview))).Methods(http.MethodPost)

	api.HandleFunc("/templates/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/templates/{id}", h.Update).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/templates/{id}", h.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/templates/{id}/shares/{userId}", h.Share).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}/shares/{userId}", h.Unshare).Methods(http.MethodDelete)

	api.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	api.HandleFunc("/tags", h.CreateTag).Methods(http.MethodPost)
	api.HandleFunc("/template-statuses", h.ListStatuses).Methods(http.MethodGet)
}
