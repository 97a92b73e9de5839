package uploads

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailcraft/internal/auth"
	"mailcraft/internal/blob"
)

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "picture.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func upload(h *Handler, body *bytes.Buffer, ctype string, withCaller bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", ctype)
	if withCaller {
		req = req.WithContext(auth.WithCaller(req.Context(), auth.Caller{ID: "alice"}))
	}
	rr := httptest.NewRecorder()
	h.Upload(rr, req)
	return rr
}

func TestUpload_StoresImage(t *testing.T) {
	root := t.TempDir()
	store, err := blob.NewLocal(root, "http://cdn.test")
	require.NoError(t, err)
	h := NewHandler(store, 1)

	body, ctype := multipartBody(t, "file", pngBytes(t))
	rr := upload(h, body, ctype, true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var res uploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Regexp(t, `^uploads/[0-9a-f-]{36}\.png$`, res.Key)
	assert.Equal(t, "http://cdn.test/"+res.Key, res.URL)
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(res.Key)))
	assert.NoError(t, err)
}

func TestUpload_Rejects(t *testing.T) {
	store, err := blob.NewLocal(t.TempDir(), "http://cdn.test")
	require.NoError(t, err)
	h := NewHandler(store, 1)

	body, ctype := multipartBody(t, "file", []byte("#!/bin/sh\necho hi\n"))
	assert.Equal(t, http.StatusBadRequest, upload(h, body, ctype, true).Code)

	body, ctype = multipartBody(t, "other", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, upload(h, body, ctype, true).Code)

	body, ctype = multipartBody(t, "file", pngBytes(t))
	assert.Equal(t, http.StatusUnauthorized, upload(h, body, ctype, false).Code)

	big := append(pngBytes(t), make([]byte, 3<<19)...)
	body, ctype = multipartBody(t, "file", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(h, body, ctype, true).Code)
}
