package handlers

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"natours/internal/models"
	"natours/internal/utils/helpers"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var reDay = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const (
	dayLayout        = "2006-01-02"
	iso8601Layout    = "2006-01-02T15:04:05.000Z0700" // zapcore.ISO8601TimeEncoder
	backupTimeLayout = "2006-01-02T15-04-05.000"
)

// AdminLogsHandler читает JSON-логи, которые пишет logger:
// текущий app.log и ротированные lumberjack app-<timestamp>.log[.gz].
// День строки определяется по её полю time, а не по имени файла.
type AdminLogsHandler struct {
	LogDir    string
	Retention int // дней
	now       func() time.Time
}

func NewAdminLogsHandler(logDir string) *AdminLogsHandler {
	return &AdminLogsHandler{LogDir: logDir, Retention: 14, now: time.Now}
}

// ListDays godoc
// @Summary Дни, за которые есть логи
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string][]string
// @Failure 403 {string} string "Доступ запрещён"
// @Router /api/v1/admin/logs/days [get]
func (h *AdminLogsHandler) ListDays(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	today := h.now()
	oldest := today.AddDate(0, 0, -(h.Retention - 1)).Format(dayLayout)

	seen := map[string]bool{}
	files, _ := h.logFiles(time.Time{})
	for _, path := range files {
		h.scanFile(path, func(raw []byte) bool {
			if day, ok := h.lineDay(raw); ok && day >= oldest {
				seen[day] = true
			}
			return true
		})
	}

	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	helpers.JSON(w, http.StatusOK, map[string]any{"days": days})
}

type logFilter struct {
	levels    map[string]bool
	q         string
	requestID string
	userID    string
}

func (f logFilter) match(raw []byte, obj map[string]any) bool {
	if f.q != "" && !strings.Contains(strings.ToLower(string(raw)), f.q) {
		return false
	}
	if len(f.levels) > 0 && !f.levels[strings.ToUpper(getString(obj, "level"))] {
		return false
	}
	if f.requestID != "" && getString(obj, "request_id") != f.requestID {
		return false
	}
	if f.userID != "" && getString(obj, "user_id") != f.userID {
		return false
	}
	return true
}

// GetLogs godoc
// @Summary Логи за день
// @Description Строки JSON-логов с фильтрами. Удобно для разбора отказов Protect/RestrictTo по request_id.
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Param day query string true "Дата (YYYY-MM-DD)"
// @Param level query string false "CSV уровней: debug,info,warn,error"
// @Param q query string false "Поиск по подстроке"
// @Param request_id query string false "X-Request-ID"
// @Param user_id query string false "ID пользователя"
// @Param limit query int false "Лимит (по умолч. 200, макс. 1000)"
// @Param cursor query int false "Номер строки для пагинации"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {string} string "Неверная дата"
// @Failure 404 {string} string "Нет логов за этот день"
// @Router /api/v1/admin/logs [get]
func (h *AdminLogsHandler) GetLogs(w http.ResponseWriter, r *http.Request, _ models.Identity) {
	q := r.URL.Query()
	day := q.Get("day")
	dayStart, err := time.ParseInLocation(dayLayout, day, h.now().Location())
	if !reDay.MatchString(day) || err != nil {
		helpers.Error(w, http.StatusBadRequest, "Неверная дата, ожидается YYYY-MM-DD")
		return
	}

	filter := logFilter{
		levels:    toUpperSet(q.Get("level")),
		q:         strings.ToLower(strings.TrimSpace(q.Get("q"))),
		requestID: q.Get("request_id"),
		userID:    q.Get("user_id"),
	}
	limit := clampAtoi(q.Get("limit"), 200, 1, 1000)
	cursor := clampAtoi(q.Get("cursor"), 0, 0, 10_000_000)

	files, err := h.logFiles(dayStart)
	if err != nil || len(files) == 0 {
		helpers.Error(w, http.StatusNotFound, "Нет логов за этот день")
		return
	}

	lineNo := 0
	found := false
	items := make([]json.RawMessage, 0)
	for _, path := range files {
		more := h.scanFile(path, func(raw []byte) bool {
			lineNo++
			var obj map[string]any
			if err := json.Unmarshal(raw, &obj); err != nil {
				return true
			}
			if d, ok := h.objDay(obj); !ok || d != day {
				return true
			}
			found = true
			if lineNo <= cursor {
				return true
			}
			if filter.match(raw, obj) {
				items = append(items, append(json.RawMessage{}, raw...))
			}
			return len(items) < limit
		})
		if !more {
			break
		}
	}
	if !found {
		helpers.Error(w, http.StatusNotFound, "Нет логов за этот день")
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]any{
		"day":        day,
		"items":      items,
		"nextCursor": lineNo,
	})
}

// logFiles — ротированные файлы (по времени ротации) и app.log последним.
// Бэкап, закрытый до since, не может содержать строк позже since и пропускается.
// lumberjack ставит в имя бэкапа время ротации в UTC.
func (h *AdminLogsHandler) logFiles(since time.Time) ([]string, error) {
	entries, err := os.ReadDir(h.LogDir)
	if err != nil {
		return nil, err
	}

	var files []string
	var current string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case name == "app.log":
			current = filepath.Join(h.LogDir, name)
		case strings.HasPrefix(name, "app-") && (strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".log.gz")):
			if rotated, ok := rotatedAt(name); ok && rotated.Before(since) {
				continue
			}
			files = append(files, filepath.Join(h.LogDir, name))
		}
	}
	sort.Strings(files)
	if current != "" {
		files = append(files, current)
	}
	return files, nil
}

func rotatedAt(name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".gz"), ".log")
	t, err := time.ParseInLocation(backupTimeLayout, stamp, time.UTC)
	return t, err == nil
}

// lineDay — день строки по её полю time в часовом поясе сервера.
func (h *AdminLogsHandler) lineDay(raw []byte) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	return h.objDay(obj)
}

func (h *AdminLogsHandler) objDay(obj map[string]any) (string, bool) {
	ts := getString(obj, "time")
	for _, layout := range []string{iso8601Layout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.In(h.now().Location()).Format(dayLayout), true
		}
	}
	return "", false
}

// scanFile возвращает false, если handle попросил остановиться.
func (h *AdminLogsHandler) scanFile(path string, handle func([]byte) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return true
		}
		defer gr.Close()
		reader = gr
	}

	sc := bufio.NewScanner(reader)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if !handle(sc.Bytes()) {
			return false
		}
	}
	return true
}

func toUpperSet(csv string) map[string]bool {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	m := map[string]bool{}
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m[strings.ToUpper(p)] = true
		}
	}
	return m
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func clampAtoi(s string, def, min, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
