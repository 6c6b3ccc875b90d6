package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamcal/internal/blob"
	"teamcal/internal/config"
	"teamcal/internal/model"
	"teamcal/internal/store"
	"teamcal/internal/web"
)

func newTestServer(t *testing.T) (*web.Server, *store.Store) {
	t.Helper()
	st := store.New(blob.NewMemory())
	require.NoError(t, st.Load(context.Background()))
	cfg := config.DefaultConfig()
	return web.NewServer(cfg, st), st
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUserLifecycle(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": "Ann Lee"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate name is refused and the document stays put.
	rec = doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": "Ann Lee"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"Ann Lee"}, st.Snapshot().Users)

	rec = doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Names with spaces arrive percent-encoded in the path.
	rec = doJSON(t, h, http.MethodDelete, "/api/users/Ann%20Lee", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, st.Snapshot().Users)

	rec = doJSON(t, h, http.MethodDelete, "/api/users/Nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventLifecycle(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": "Ann"})

	body := map[string]any{
		"date":       "2026-02-10",
		"time":       "10:00",
		"title":      "Standup",
		"desc":       "Daily sync",
		"writers":    []string{"Ann"},
		"categoryId": "cat_work",
	}
	rec := doJSON(t, h, http.MethodPost, "/api/events", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, "evt-"))
	assert.Equal(t, "Standup", created.Title)

	// Update through PUT.
	body["title"] = "Renamed"
	rec = doJSON(t, h, http.MethodPut, "/api/events/"+created.ID, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", st.Snapshot().Events[0].Title)

	rec = doJSON(t, h, http.MethodPut, "/api/events/evt-missing", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodDelete, "/api/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventValidationStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": "Ann"})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad date", map[string]any{"date": "2026-02-30", "title": "T"}, http.StatusUnprocessableEntity},
		{"bad time", map[string]any{"date": "2026-02-10", "time": "9:00", "title": "T"}, http.StatusUnprocessableEntity},
		{"empty title", map[string]any{"date": "2026-02-10"}, http.StatusUnprocessableEntity},
		{"unknown writer", map[string]any{"date": "2026-02-10", "title": "T", "writers": []string{"Zed"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/events", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthResponse(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	require.NoError(t, st.AddUser(ctx, "Test User"))
	_, err := st.AddEvent(ctx, model.Event{
		Date:       model.Date{Year: 2026, Month: time.February, Day: 10},
		Time:       "10:00",
		Title:      "Test Event",
		Desc:       "This is a test event.",
		Writers:    []string{"Test User"},
		CategoryID: "cat_work",
	})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/api/month?year=2026&month=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Rows  int `json:"rows"`
		Cells []struct {
			Date    string `json:"date"`
			InMonth bool   `json:"in_month"`
			Events  []struct {
				Label   string `json:"label"`
				Tooltip string `json:"tooltip"`
			} `json:"events"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// February 2026 starts on a Sunday: exactly 4 aligned weeks, no overflow.
	assert.Equal(t, 4, resp.Rows)
	require.Len(t, resp.Cells, 28)
	for _, c := range resp.Cells {
		assert.True(t, c.InMonth)
	}

	var tooltip string
	for _, c := range resp.Cells {
		if c.Date == "2026-02-10" {
			require.Len(t, c.Events, 1)
			tooltip = c.Events[0].Tooltip
		}
	}
	assert.Equal(t, "[10:00] Test Event\n担当: Test User\nThis is a test event.", tooltip)

	// Identical requests get identical responses.
	again := doJSON(t, h, http.MethodGet, "/api/month?year=2026&month=2", nil)
	assert.Equal(t, rec.Body.String(), again.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/month?year=2026&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthViewHTML(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	require.NoError(t, st.AddUser(ctx, "Ann"))
	_, err := st.AddEvent(ctx, model.Event{
		Date:       model.Date{Year: 2026, Month: time.January, Day: 15},
		Title:      "All hands",
		Writers:    []string{"Ann"},
		CategoryID: "cat_zen",
	})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/?year=2026&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()

	// January 2026 needs 5 aligned weeks; the header row comes first.
	assert.Contains(t, html, "grid-template-rows: 40px repeat(5, minmax(120px, auto));")
	assert.Contains(t, html, `data-ready="true"`)
	// The grid is padded with overflow days from adjacent months.
	assert.Contains(t, html, "other-month")
	assert.Contains(t, html, `data-date="2025-12-28"`)
	assert.Contains(t, html, "All hands")
	// Category color from configuration.
	assert.Contains(t, html, "background:#5b8def;")
}

func TestMonthViewRowsFollowAlignment(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		target string
		rows   string
	}{
		{"/?year=2026&month=2", "repeat(4, minmax(120px, auto))"},
		{"/?year=2027&month=2", "repeat(5, minmax(120px, auto))"},
		{"/?year=2028&month=12", "repeat(6, minmax(120px, auto))"},
	}
	for _, tt := range tests {
		rec := doJSON(t, h, http.MethodGet, tt.target, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), tt.rows, "target %s", tt.target)
	}
}

func TestDocumentEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	require.NoError(t, st.AddUser(context.Background(), "Ann"))

	rec := doJSON(t, h, http.MethodGet, "/api/document", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, []string{"Ann"}, doc.Users)
	assert.NotNil(t, doc.Events)
}

func TestICSEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	require.NoError(t, st.AddUser(ctx, "Ann"))
	_, err := st.AddEvent(ctx, model.Event{
		Date:  model.Date{Year: 2026, Month: time.February, Day: 10},
		Time:  "10:00",
		Title: "Standup",
	})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/calendar.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Standup")
}

func TestBasicAuth(t *testing.T) {
	st := store.New(blob.NewMemory())
	require.NoError(t, st.Load(context.Background()))
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := web.NewServer(cfg, st).Handler()

	// Health stays open for probes.
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/document", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/document", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/document", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
