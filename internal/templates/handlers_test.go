package templates

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailcraft/internal/auth"
	"mailcraft/internal/dbtest"
	"mailcraft/internal/models"
	"mailcraft/internal/thumbnail"
)

// asCaller подменяет JWT: идентичность берётся из X-Test-User.
func asCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(auth.WithCaller(r.Context(), auth.Caller{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

func newRouter(t *testing.T) (*mux.Router, *gorm.DB, *fakeThumbs) {
	t.Helper()
	svc, d, thumbs := newService(t)
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(asCaller)
	RegisterRoutes(api, NewHandler(svc), nil)
	return r, d, thumbs
}

func do(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandlers_CreateGetList(t *testing.T) {
	r, d, _ := newRouter(t)
	dbtest.User(t, d, "alice", "Alice")

	rr := do(r, http.MethodPost, "/api/templates", "alice", `{"name":"Welcome","html":"<p>hi</p>","price":"9.99"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, "9.99", created["price"])
	assert.Equal(t, "USD", created["currency"])
	assert.Equal(t, map[string]any{"id": float64(1), "code": "active"}, created["status"])

	rr = do(r, http.MethodGet, "/api/templates/"+id, "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, "/api/templates?name=welc&limit=5", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Data []struct {
			ID   string         `json:"id"`
			HTML string         `json:"html"`
			Tags []models.Tag   `json:"tags"`
			Own  map[string]any `json:"owner"`
		} `json:"data"`
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, id, page.Data[0].ID)
	assert.Empty(t, page.Data[0].HTML)
	assert.NotNil(t, page.Data[0].Tags)
	assert.Equal(t, "Alice", page.Data[0].Own["name"])
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestHandlers_ErrorsAsProblems(t *testing.T) {
	r, d, _ := newRouter(t)
	tpl := dbtest.Template(t, d, "alice", "T")

	rr := do(r, http.MethodGet, "/api/templates/"+tpl.ID, "mallory", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	denied := rr.Body.String()

	rr = do(r, http.MethodGet, "/api/templates/nope", "mallory", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, denied, rr.Body.String())

	rr = do(r, http.MethodPost, "/api/templates", "alice", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name"`)

	rr = do(r, http.MethodPost, "/api/templates", "alice", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodGet, "/api/templates", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(r, http.MethodPost, "/api/tags", "alice", `{"name":"dup"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(r, http.MethodPost, "/api/tags", "alice", `{"name":"DUP"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlers_PatchDeleteShare(t *testing.T) {
	r, d, _ := newRouter(t)
	cust := "c-1"
	tpl := dbtest.Template(t, d, "alice", "T", func(m *models.EmailTemplate) { m.CustomerID = &cust })

	rr := do(r, http.MethodPatch, "/api/templates/"+tpl.ID, "alice", `{"customerId":null}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Nil(t, body["customerId"])
	assert.Equal(t, "T", body["name"])

	rr = do(r, http.MethodPut, "/api/templates/"+tpl.ID+"/shares/bob", "alice", `{"permission":"EDIT"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodPut, "/api/templates/"+tpl.ID, "bob", `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodDelete, "/api/templates/"+tpl.ID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(r, http.MethodDelete, "/api/templates/"+tpl.ID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(r, http.MethodDelete, "/api/templates/"+tpl.ID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(r, http.MethodDelete, "/api/templates/"+tpl.ID+"/shares/bob", "alice", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandlers_Preview(t *testing.T) {
	r, _, thumbs := newRouter(t)

	rr := do(r, http.MethodPost, "/api/templates/preview", "alice", `{"html":"<p/>","draftKey":"k1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "http://cdn.test/tmp/k1/thumb_200.jpg", res["url200"])
	assert.Equal(t, "http://cdn.test/tmp/k1/thumb_600.jpg", res["url600"])

	thumbs.err = thumbnail.ErrGenerationFailed
	rr = do(r, http.MethodPost, "/api/templates/preview", "alice", `{"html":"<p/>","draftKey":"k1"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.NotContains(t, rr.Body.String(), "url")
}

func TestHandlers_Catalogues(t *testing.T) {
	r, _, _ := newRouter(t)

	rr := do(r, http.MethodGet, "/api/template-statuses", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var statuses []models.TemplateStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	assert.Len(t, statuses, 9)

	rr = do(r, http.MethodGet, "/api/tags?q=x", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
