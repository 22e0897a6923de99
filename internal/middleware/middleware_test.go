package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
)

type fakeAudit struct {
	logs []audit.AuditLog
}

func (f *fakeAudit) Log(rec audit.AuditLog) { f.logs = append(f.logs, rec) }

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestBasicAuthMiddleware(t *testing.T) {
	h := BasicAuthMiddleware("admin", "secret", http.MethodPost)(ok)

	req := httptest.NewRequest(http.MethodGet, "/pickings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/pickings", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="pickings"`, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodPost, "/pickings", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogMiddleware(t *testing.T) {
	a := &fakeAudit{}
	h := LogMiddleware(a, http.MethodPut, http.MethodPost)(ok)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pickings/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/pickings/1", nil))

	if assert.Len(t, a.logs, 1) {
		assert.Equal(t, "/pickings/1", a.logs[0].Endpoint)
		assert.Equal(t, "PUT /pickings/1", a.logs[0].Request)
		assert.Equal(t, int64(1), a.logs[0].PickingID)
		assert.Equal(t, "200 OK", a.logs[0].Message)
	}
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	a := &fakeAudit{}
	denied := BasicAuthMiddleware("admin", "secret", http.MethodPost)(ok)
	h := LogMiddleware(a, http.MethodPost)(denied)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/warehouses", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	if assert.Len(t, a.logs, 1) {
		assert.Equal(t, int64(0), a.logs[0].PickingID)
		assert.Equal(t, "401 Unauthorized", a.logs[0].Message)
	}
}

func TestPickingID(t *testing.T) {
	assert.Equal(t, int64(42), pickingID("/pickings/42"))
	assert.Equal(t, int64(0), pickingID("/pickings/abc"))
	assert.Equal(t, int64(0), pickingID("/warehouses/42"))
}
