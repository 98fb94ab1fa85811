package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/auth"
	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
)

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{AdminUser: "admin", DedupWindowDays: 3}
	}
	return NewServer(&db.Pool{}, cfg, zerolog.Nop(), Options{})
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 25, 1, 200); err != nil || got != 25 {
		t.Fatalf("default: got %d, err %v", got, err)
	}
	if got, err := parsePositiveInt(" 7 ", 25, 1, 200); err != nil || got != 7 {
		t.Fatalf("trimmed: got %d, err %v", got, err)
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected error for non-integer")
	}
	if _, err := parsePositiveInt("500", 25, 1, 200); err == nil {
		t.Fatalf("expected error for out-of-range value")
	}
}

func TestParseTimeFilter(t *testing.T) {
	t.Parallel()

	if got, err := parseTimeFilter("", false); err != nil || got != nil {
		t.Fatalf("empty: got %v, err %v", got, err)
	}

	got, err := parseTimeFilter("2025-08-07T10:00:00Z", false)
	if err != nil || got == nil {
		t.Fatalf("rfc3339: got %v, err %v", got, err)
	}
	if !got.Equal(time.Date(2025, 8, 7, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected rfc3339 value: %v", got)
	}

	got, err = parseTimeFilter("2025-08-07", true)
	if err != nil || got == nil {
		t.Fatalf("date: got %v, err %v", got, err)
	}
	if got.Before(time.Date(2025, 8, 7, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("end-of-day not applied: %v", got)
	}

	if _, err := parseTimeFilter("yesterday", false); err == nil {
		t.Fatalf("expected error for invalid time")
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	e := testServer(t, nil).buildEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var body apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success {
		t.Fatalf("expected success envelope: %s", rec.Body.String())
	}
}

func TestEnqueueRequiresConfiguredAdmin(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{AdminUser: "admin", DedupWindowDays: 3}
	e := testServer(t, cfg).buildEcho()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", strings.NewReader(`{"item_type":"story","item_id":1}`))
	req.Header.Set(echoContentType, "application/json")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without password hash, got %d", rec.Code)
	}
}

func TestEnqueueRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := &config.Config{AdminUser: "admin", AdminPasswordHash: hash, DedupWindowDays: 3}
	e := testServer(t, cfg).buildEcho()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", strings.NewReader(`{"item_type":"story","item_id":1}`))
	req.Header.Set(echoContentType, "application/json")
	req.SetBasicAuth("admin", "wrong password")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
		t.Fatalf("missing challenge header: %q", got)
	}
}

func TestEnqueueValidatesItemType(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := &config.Config{AdminUser: "admin", AdminPasswordHash: hash, DedupWindowDays: 3}
	e := testServer(t, cfg).buildEcho()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", strings.NewReader(`{"item_type":"digest","item_id":1}`))
	req.Header.Set(echoContentType, "application/json")
	req.SetBasicAuth("admin", "correct horse")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad item type, got %d", rec.Code)
	}

	var body apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error == nil {
		t.Fatalf("expected error envelope: %s", rec.Body.String())
	}
}

func TestQueueStatusValidation(t *testing.T) {
	t.Parallel()

	e := testServer(t, nil).buildEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue?status=bogus", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad status, got %d", rec.Code)
	}
}

const echoContentType = "Content-Type"
