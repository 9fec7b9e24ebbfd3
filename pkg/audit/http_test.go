package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

type stubLister struct {
	limit int
	logs  []PredictionLog
	err   error
}

func (s *stubLister) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	s.limit = limit
	return s.logs, s.err
}

func serveRecent(lister Lister, target string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	NewHTTPHandler(lister).Register(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleRecent(t *testing.T) {
	lister := &stubLister{logs: []PredictionLog{{RequestID: "req-1"}}}

	rec := serveRecent(lister, "/api/v1/predictions?limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.limit)
	assert.Contains(t, rec.Body.String(), `"request_id":"req-1"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	serveRecent(lister, "/api/v1/predictions")
	assert.Equal(t, DefaultLimit, lister.limit)
}

func TestHandleRecentErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, serveRecent(&stubLister{}, "/api/v1/predictions?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, serveRecent(&stubLister{}, "/api/v1/predictions?limit=0").Code)
	assert.Equal(t, http.StatusInternalServerError, serveRecent(&stubLister{err: errors.New("db down")}, "/api/v1/predictions").Code)
}
