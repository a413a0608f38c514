package scorecard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetDealScorecard_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/scorecards/deal-1" {
			t.Fatalf("path = %s, want /api/scorecards/deal-1", r.URL.Path)
		}

		resp := DealScorecard{
			DealID: "deal-1",
			Status: StatusReady,
			Score:  ptrFloat(74.5),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetDealScorecard(ctx, "deal-1")
	if err != nil {
		t.Fatalf("GetDealScorecard error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if res == nil || res.DealID != "deal-1" || res.Status != StatusReady {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.Score == nil || *res.Score != 74.5 {
		t.Fatalf("unexpected score: %v", res.Score)
	}
}

func TestGetDealScorecard_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetDealScorecard(ctx, "deal-1")
	if err != nil {
		t.Fatalf("GetDealScorecard error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil response for 429, got %+v", res)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 7*time.Second {
		t.Fatalf("retryAfter = %v, want at least 7s", retry)
	}
}

func TestGetDealScorecard_NotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetDealScorecard(ctx, "deal-1")
	if err != nil {
		t.Fatalf("GetDealScorecard error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil response for 204, got %+v", res)
	}
	if code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", code, http.StatusNoContent)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
}

func TestGetDealScorecard_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DealScorecard{DealID: "deal-1", Status: StatusProcessing})
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, code, _, err := client.GetDealScorecard(ctx, "deal-1")
	if err != nil {
		t.Fatalf("GetDealScorecard error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if res == nil || res.Status != StatusProcessing {
		t.Fatalf("unexpected response: %+v", res)
	}
	if attempts < 2 {
		t.Fatalf("attempts = %d, want transport retry after 500", attempts)
	}
}

func ptrFloat(v float64) *float64 {
	return &v
}
