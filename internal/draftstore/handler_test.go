package draftstore

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store, _ := newTestStore(t, time.Hour)
	r := chi.NewRouter()
	NewHandler(store, logging.NewWithWriter("error", io.Discard)).Routes(r)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlerPutThenGet(t *testing.T) {
	h := newTestHandler(t)
	path := "/drafts/" + testSession + "/" + KeyDateTimes

	rec := serve(h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPut, path, `{"2030-01-15": "09:00"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Key   string            `json:"key"`
		Value map[string]string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, KeyDateTimes, got.Key)
	assert.Equal(t, "09:00", got.Value["2030-01-15"])

	rec = serve(h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	h := newTestHandler(t)

	rec := serve(h, http.MethodPut, "/drafts/"+testSession+"/payment_card", `"x"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"key"`)

	rec = serve(h, http.MethodPut, "/drafts/"+testSession+"/"+KeySelectedDates, ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPut, "/drafts/"+testSession+"/"+InspirationKey("b1"),
		`["`+strings.Repeat("a", MaxValueBytes)+`"]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
