// Package uploads принимает картинки для писем и кладёт их в blob-хранилище.
package uploads

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"mailcraft/internal/auth"
	"mailcraft/internal/blob"
	"mailcraft/internal/logs"
	"mailcraft/internal/models"
)

var extByType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Handler struct {
	store    blob.Store
	maxBytes int64
}

func NewHandler(store blob.Store, maxMB int) *Handler {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &Handler{store: store, maxBytes: int64(maxMB) << 20}
}

func RegisterRoutes(api *mux.Router, h *Handler) {
	api.HandleFunc("/uploads", h.Upload).Methods(http.MethodPost)
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload: multipart, поле "file". Тип определяется по содержимому, не по имени.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing caller identity", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			models.WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "file is too large", nil)
			return
		}
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "multipart form expected", nil)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Validation Failed", "file is required", map[string]string{"file": "is required"})
		return
	}
	defer file.Close()
	if hdr.Size > h.maxBytes {
		models.WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "file is too large", nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "cannot read file", nil)
		return
	}
	ctype := http.DetectContentType(data)
	ext, ok := extByType[ctype]
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Validation Failed", "unsupported file type",
			map[string]string{"file": "must be png, jpeg, gif or webp"})
		return
	}

	key := path.Join("uploads", uuid.NewString()+ext)
	url, err := h.store.Put(r.Context(), key, bytes.NewReader(data), ctype)
	if err != nil {
		logs.For("uploads").WithError(err).WithField("caller", caller.ID).Error("store upload failed")
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected server error", nil)
		return
	}
	logs.For("uploads").WithField("caller", caller.ID).WithField("key", key).Info("file uploaded")
	models.WriteJSON(w, http.StatusCreated, uploadResponse{URL: url, Key: key})
}
