package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestLoggingIncludesRouteAndTenant(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger).Wrap)
	r.With(Authenticate(nil)).Get("/bills/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/bills/b-1", nil)
	req.Header.Set(OrganizationHeader, "org-1")
	req.Header.Set(ActorHeader, "user-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"level":    "warn",
		"route":    "/bills/{id}",
		"path":     "/bills/b-1",
		"org_id":   "org-1",
		"actor_id": "user-1",
		"status":   float64(http.StatusNotFound),
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
}

func TestLoggingDefaultsStatusToOK(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingMiddleware(zerolog.New(&buf)).Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["status"] != float64(http.StatusOK) || line["level"] != "info" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["route"] != "unmatched" {
		t.Fatalf("route = %v, want unmatched", line["route"])
	}
}
