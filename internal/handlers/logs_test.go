package handlers

import (
	"compress/gzip"
	"encoding/json"
	"natours/internal/models"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func writeGzLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
}

func newLogsFixture(t *testing.T) *AdminLogsHandler {
	t.Helper()
	dir := t.TempDir()
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	writeLines(t, filepath.Join(dir, "app.log"),
		`{"level":"INFO","time":"2024-03-01T23:50:00.000+0000","message":"Вход выполнен","request_id":"r0"}`,
		`{"level":"INFO","time":"2024-03-02T11:00:00.000+0000","message":"HTTP-запрос","request_id":"r1"}`,
		`{"level":"WARN","time":"2024-03-02T11:00:01.000+0000","message":"Protect: запрос отклонён","request_id":"r2"}`,
		`not json`,
		`{"level":"WARN","time":"2024-03-02T11:00:02.000+0000","message":"RestrictTo: доступ запрещён","request_id":"r3","user_id":"u1"}`,
	)
	writeGzLines(t, filepath.Join(dir, "app-2024-03-01T23-00-00.000.log.gz"),
		`{"level":"ERROR","time":"2024-03-01T10:00:00.000+0000","message":"Внутренняя ошибка"}`,
	)

	h := NewAdminLogsHandler(dir)
	h.now = func() time.Time { return now }
	return h
}

func getLogs(t *testing.T, h *AdminLogsHandler, query string) (int, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/logs?"+query, nil), models.Identity{Role: models.RoleAdmin})

	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec.Code, env.Data
}

func itemCount(t *testing.T, data map[string]json.RawMessage) int {
	t.Helper()
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(data["items"], &items))
	return len(items)
}

func TestListDays(t *testing.T) {
	h := newLogsFixture(t)
	rec := httptest.NewRecorder()
	h.ListDays(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/logs/days", nil), models.Identity{})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2024-03-01"`)
	assert.Contains(t, rec.Body.String(), `"2024-03-02"`)
}

func TestGetLogs_Filters(t *testing.T) {
	h := newLogsFixture(t)

	code, data := getLogs(t, h, "day=2024-03-02")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-02&level=warn")
	assert.Equal(t, 2, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-02&request_id=r3")
	assert.Equal(t, 1, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-02&user_id=u1&level=warn")
	assert.Equal(t, 1, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-02&q=protect")
	assert.Equal(t, 1, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-02&request_id=r0")
	assert.Equal(t, 0, itemCount(t, data))
}

func TestGetLogs_DayComesFromLineTime(t *testing.T) {
	h := newLogsFixture(t)

	code, data := getLogs(t, h, "day=2024-03-01")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-01&request_id=r0")
	assert.Equal(t, 1, itemCount(t, data))
}

func TestGetLogs_ServerTimeZone(t *testing.T) {
	dir := t.TempDir()
	msk := time.FixedZone("MSK", 3*60*60)

	// бэкап закрыт в 22:00 UTC, это уже 2 марта по Москве
	writeLines(t, filepath.Join(dir, "app-2024-03-01T22-00-00.000.log"),
		`{"level":"INFO","time":"2024-03-01T20:30:00.000+0000","message":"ещё 1 марта"}`,
		`{"level":"INFO","time":"2024-03-01T21:30:00.000+0000","message":"уже 2 марта"}`,
	)
	writeLines(t, filepath.Join(dir, "app.log"),
		`{"level":"INFO","time":"2024-03-02T09:00:00.000+0300","message":"утро"}`,
	)
	h := NewAdminLogsHandler(dir)
	h.now = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, msk) }

	_, data := getLogs(t, h, "day=2024-03-02")
	assert.Equal(t, 2, itemCount(t, data))

	_, data = getLogs(t, h, "day=2024-03-01")
	assert.Equal(t, 1, itemCount(t, data))
}

func TestGetLogs_Paging(t *testing.T) {
	h := newLogsFixture(t)

	_, data := getLogs(t, h, "day=2024-03-02&limit=1")
	assert.Equal(t, 1, itemCount(t, data))
	assert.Equal(t, "2", string(data["nextCursor"]))

	_, data = getLogs(t, h, "day=2024-03-02&limit=1&cursor=2")
	assert.Equal(t, 1, itemCount(t, data))
	assert.Equal(t, "3", string(data["nextCursor"]))
}

func TestGetLogs_BadDay(t *testing.T) {
	h := newLogsFixture(t)

	code, _ := getLogs(t, h, "day=yesterday")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getLogs(t, h, "day=2024-13-45")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getLogs(t, h, "day=2023-01-01")
	assert.Equal(t, http.StatusNotFound, code)
}
