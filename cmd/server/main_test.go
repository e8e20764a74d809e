package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eugenenazirov/apportionment/internal/application"
)

func TestParseFlagsDefaultsLeaveOverridesUnset(t *testing.T) {
	overrides, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}
	if overrides.MaxSeats != nil {
		t.Fatalf("expected max seats to be left to config")
	}
	if overrides.Port != nil || overrides.Seats != nil || overrides.Bonus != nil || overrides.PopulationsFile != nil {
		t.Fatalf("expected no overrides, got %+v", overrides)
	}
	if overrides.RateLimitRPS != nil || overrides.RateLimitBurst != nil {
		t.Fatalf("expected rate limit to be left to config, got %+v", overrides)
	}
}

func TestParseFlagsMapsValues(t *testing.T) {
	overrides, err := parseFlags([]string{
		"--config", "app.yaml",
		"--port", "9090",
		"--populations", "data/populations_2020.csv",
		"--seats", "100",
		"--max-seats", "5000",
		"--bonus", "0",
		"--rate-limit-rps", "0",
	})
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}
	if overrides.ConfigFile != "app.yaml" || *overrides.Port != "9090" {
		t.Fatalf("unexpected overrides %+v", overrides)
	}
	if *overrides.PopulationsFile != "data/populations_2020.csv" || *overrides.Seats != 100 {
		t.Fatalf("unexpected overrides %+v", overrides)
	}
	if overrides.MaxSeats == nil || *overrides.MaxSeats != 5000 {
		t.Fatalf("expected max seats override")
	}
	if overrides.Bonus == nil || *overrides.Bonus != 0 {
		t.Fatalf("expected explicit zero bonus to override")
	}
	if overrides.RateLimitRPS == nil || *overrides.RateLimitRPS != 0 || overrides.RateLimitBurst != nil {
		t.Fatalf("unexpected rate limit overrides %+v", overrides)
	}

	if _, err := parseFlags([]string{"--seats", "many"}); err == nil {
		t.Fatalf("expected error for non-numeric seats")
	}
}

func TestBuildRootHandler(t *testing.T) {
	apiInvoked := false
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" && r.URL.Path != "/metrics" {
			t.Fatalf("unexpected path passed to API handler: %s", r.URL.Path)
		}
		apiInvoked = true
		w.WriteHeader(http.StatusNoContent)
	})

	handler := application.BuildRootHandler(apiHandler)

	t.Run("serves index", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "/api/apportion") {
			t.Fatalf("expected index to list endpoints")
		}
	})

	t.Run("returns not found for unknown paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("forwards api traffic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if !apiInvoked {
			t.Fatalf("expected API handler to be invoked")
		}
	})

	t.Run("forwards metrics scrapes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
	})
}
