package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fallbackTestServer routes attempts by the model name in the URL path and
// counts calls per model.
func fallbackTestServer(primary, fallback http.HandlerFunc) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	var primaryCalls, fallbackCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "primary-model"):
			primaryCalls.Add(1)
			primary(w, r)
		case strings.Contains(r.URL.Path, "fallback-model"):
			fallbackCalls.Add(1)
			fallback(w, r)
		default:
			http.Error(w, "unknown model", http.StatusNotFound)
		}
	}))
	return srv, &primaryCalls, &fallbackCalls
}

func newFallbackClient(baseURL string) *Client {
	return NewClient(Options{
		APIKey:        "test-key",
		Model:         "primary-model",
		FallbackModel: "fallback-model",
		Timeout:       2 * time.Second,
		MaxRetries:    0,
		BaseURL:       baseURL,
	})
}

func TestFallback_UnavailablePrimarySwitchesOnce(t *testing.T) {
	srv, primaryCalls, fallbackCalls := fallbackTestServer(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(errorBody(503, "UNAVAILABLE")))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(successBody(`{"plant":{"commonName":"Aloe vera","confidence":"High"}}`)))
		},
	)
	defer srv.Close()

	result, err := newFallbackClient(srv.URL).IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plant.CommonName != "Aloe vera" {
		t.Errorf("expected fallback result, got %q", result.Plant.CommonName)
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("expected primary called exactly once, got %d", primaryCalls.Load())
	}
	if fallbackCalls.Load() != 1 {
		t.Errorf("expected fallback called exactly once, got %d", fallbackCalls.Load())
	}
}

func TestFallback_AuthFailureNeverFallsBack(t *testing.T) {
	srv, primaryCalls, fallbackCalls := fallbackTestServer(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(errorBody(401, "UNAUTHENTICATED")))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("fallback model must not be called on auth failures")
		},
	)
	defer srv.Close()

	_, err := newFallbackClient(srv.URL).IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("expected primary called once, got %d", primaryCalls.Load())
	}
	if fallbackCalls.Load() != 0 {
		t.Errorf("expected fallback never invoked, got %d", fallbackCalls.Load())
	}
}

func TestFallback_ModelNotFoundNeverFallsBack(t *testing.T) {
	srv, primaryCalls, fallbackCalls := fallbackTestServer(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(errorBody(404, "NOT_FOUND")))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("fallback model must not be called for a nonexistent primary model")
		},
	)
	defer srv.Close()

	_, err := newFallbackClient(srv.URL).IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err) != ClassModelNotFound {
		t.Errorf("expected model-not-found class, got %v", Classify(err))
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("expected primary called once, got %d", primaryCalls.Load())
	}
	if fallbackCalls.Load() != 0 {
		t.Errorf("expected fallback never invoked, got %d", fallbackCalls.Load())
	}
}

func TestFallback_MalformedOutputNeverFallsBack(t *testing.T) {
	srv, _, fallbackCalls := fallbackTestServer(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(successBody("this is not JSON")))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("fallback model must not be called on parse failures")
		},
	)
	defer srv.Close()

	_, err := newFallbackClient(srv.URL).IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err) != ClassBadOutput {
		t.Errorf("expected bad-output class, got %v", Classify(err))
	}
	if fallbackCalls.Load() != 0 {
		t.Errorf("expected fallback never invoked, got %d", fallbackCalls.Load())
	}
}

func TestFallback_FallbackFailureIsFinal(t *testing.T) {
	unavailable := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errorBody(503, "UNAVAILABLE")))
	}
	srv, primaryCalls, fallbackCalls := fallbackTestServer(unavailable, unavailable)
	defer srv.Close()

	_, err := newFallbackClient(srv.URL).IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	// Single-level fallback: no looping back to the primary.
	if primaryCalls.Load() != 1 {
		t.Errorf("expected primary called once, got %d", primaryCalls.Load())
	}
	if fallbackCalls.Load() != 1 {
		t.Errorf("expected fallback called once, got %d", fallbackCalls.Load())
	}
}

func TestFallback_NoFallbackConfigured(t *testing.T) {
	srv, primaryCalls, _ := fallbackTestServer(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(errorBody(503, "UNAVAILABLE")))
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)
	defer srv.Close()

	c := NewClient(Options{
		APIKey:     "test-key",
		Model:      "primary-model",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		BaseURL:    srv.URL,
	})
	_, err := c.IdentifyWithFallback(context.Background(), tinyPNG, "image/png")
	if err == nil {
		t.Fatal("expected error when no fallback is configured")
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("expected primary called once, got %d", primaryCalls.Load())
	}
}
