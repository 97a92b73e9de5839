package templates

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"mailcraft/internal/auth"
	"mailcraft/internal/logs"
	"mailcraft/internal/models"
)

const maxBody = 5 << 20 // html письма с inline-картинками бывает крупным

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

type listResponse struct {
	Data       []models.EmailTemplate `json:"data"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int64                  `json:"total"`
	TotalPages int                    `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), caller, ParseListQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, listResponse{
		Data:       page.Items,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if !decode(w, r, &in) {
		return
	}
	t, err := h.svc.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	t, err := h.svc.FindOne(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var p Patch
	if !decode(w, r, &p) {
		return
	}
	t, err := h.svc.Update(r.Context(), caller, mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var in PreviewInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.svc.GeneratePreview(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

type shareRequest struct {
	Permission string `json:"permission"`
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var in shareRequest
	if !decode(w, r, &in) {
		return
	}
	vars := mux.Vars(r)
	share, err := h.svc.Share(r.Context(), caller, vars["id"], vars["userId"], in.Permission)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, share)
}

func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.svc.Unshare(r.Context(), caller, vars["id"], vars["userId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, tags)
}

type tagRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in tagRequest
	if !decode(w, r, &in) {
		return
	}
	t, err := h.svc.CreateTag(r.Context(), in.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListStatuses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

// ---------- helpers ----------

func callerOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, ok := auth.CallerFrom(r.Context())
	if !ok {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity", nil)
		return "", false
	}
	return c.ID, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			models.WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "request body is too large", nil)
			return false
		}
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body", nil)
		return false
	}
	return true
}

// writeError переводит ошибки ядра в problem+json.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		models.WriteProblem(w, http.StatusBadRequest, "Validation Failed", "one or more fields are invalid", ve.Fields)
	case errors.Is(err, ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error(), nil)
	case errors.Is(err, ErrConflict):
		models.WriteProblem(w, http.StatusConflict, "Conflict", err.Error(), nil)
	case errors.Is(err, ErrGenerationFailed):
		models.WriteProblem(w, http.StatusBadGateway, "Generation Failed", "thumbnail generation failed, try again", nil)
	default:
		logs.For("templates").WithError(err).
			WithField("reqid", w.Header().Get("X-Request-Id")).
			Errorf("%s %s failed", r.Method, r.URL.Path)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected server error", nil)
	}
}
