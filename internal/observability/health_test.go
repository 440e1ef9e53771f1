package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Status != "healthy" || body.Service != "session-gateway" {
		t.Errorf("Unexpected health body: %+v", body)
	}
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }

	rec := httptest.NewRecorder()
	ReadinessHandler(
		HealthCheck{Name: "transcription", Check: ok},
		HealthCheck{Name: "summary", Check: ok},
	)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Status != "ready" {
		t.Errorf("Expected status 'ready', got '%s'", body.Status)
	}
	if len(body.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(body.Dependencies))
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	failing := func(ctx context.Context) (bool, error) { return false, errors.New("circuit breaker is open") }

	rec := httptest.NewRecorder()
	ReadinessHandler(HealthCheck{Name: "summary", Check: failing})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rec.Code)
	}

	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	dep := body.Dependencies["summary"]
	if dep.Status != "unhealthy" || dep.Message != "circuit breaker is open" {
		t.Errorf("Unexpected dependency status: %+v", dep)
	}
}

func TestGRPCHealthServer_Refresh(t *testing.T) {
	healthy := true
	check := HealthCheck{Name: "providers", Check: func(ctx context.Context) (bool, error) { return healthy, nil }}
	srv := NewGRPCHealthServer(0, check)

	if got := srv.Refresh(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}

	healthy = false
	if got := srv.Refresh(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", got)
	}

	resp, err := srv.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "session-gateway"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING from health service, got %v", resp.Status)
	}
}
