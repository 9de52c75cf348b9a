package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/config"
)

// fakeProbe stands in for a subsystem check. With no overrides it passes
// immediately; delay makes it slow, err makes it fail, check replaces the
// whole behavior.
type fakeProbe struct {
	name  string
	err   error
	delay time.Duration
	check func(ctx context.Context) error
	calls atomic.Int32
}

var _ HealthProbe = (*fakeProbe)(nil)

func (p *fakeProbe) Name() string { return p.name }

func (p *fakeProbe) Check(ctx context.Context) error {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.check != nil {
		return p.check(ctx)
	}
	return p.err
}

func healthServer(probes ...HealthProbe) *Server {
	cfg := &config.Config{Environment: "local", Service: "email-automation"}
	srv, _ := NewServer(cfg, slog.Default())
	srv.HealthProbes = probes
	return srv
}

// getHealth hits HandleHealth directly and decodes the report.
func getHealth(t *testing.T, srv *Server) (int, healthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var report healthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("health body is not valid JSON: %v", err)
	}
	return rec.Code, report
}

func TestHandleHealth_AllProbesPass(t *testing.T) {
	srv := healthServer(
		&fakeProbe{name: "instantly"},
		&fakeProbe{name: "intent_catalog"},
		&fakeProbe{name: "completion"},
	)

	code, report := getHealth(t, srv)

	if code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
	if report.Status != "healthy" {
		t.Errorf("report.status: got %q, want healthy", report.Status)
	}
	if report.Service != "email-automation" {
		t.Errorf("report.service: got %q, want email-automation", report.Service)
	}
	for _, name := range []string{"instantly", "intent_catalog", "completion"} {
		comp, ok := report.Components[name]
		if !ok {
			t.Errorf("component %q missing", name)
			continue
		}
		if comp.Status != "healthy" {
			t.Errorf("component %q: got %q, want healthy", name, comp.Status)
		}
		if comp.Message != "" {
			t.Errorf("component %q: unexpected message %q", name, comp.Message)
		}
	}
}

func TestHandleHealth_OneFailureFlipsTo503(t *testing.T) {
	srv := healthServer(
		&fakeProbe{name: "instantly", err: errors.New("api key rejected")},
		&fakeProbe{name: "intent_catalog"},
		&fakeProbe{name: "completion"},
	)

	code, report := getHealth(t, srv)

	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("report.status: got %q, want unhealthy", report.Status)
	}

	inst, ok := report.Components["instantly"]
	if !ok {
		t.Fatal("instantly component missing")
	}
	if inst.Status != "unhealthy" {
		t.Errorf("instantly: got %q, want unhealthy", inst.Status)
	}
	if inst.Message != "api key rejected" {
		t.Errorf("instantly message: got %q, want the probe error", inst.Message)
	}

	for _, name := range []string{"intent_catalog", "completion"} {
		if comp := report.Components[name]; comp.Status != "healthy" {
			t.Errorf("component %q: got %q, want healthy", name, comp.Status)
		}
	}
}

func TestHandleHealth_AllFailing(t *testing.T) {
	srv := healthServer(
		&fakeProbe{name: "instantly", err: errors.New("connection refused")},
		&fakeProbe{name: "intent_catalog", err: errors.New("catalog empty")},
		&fakeProbe{name: "completion", err: errors.New("model unavailable")},
	)

	code, report := getHealth(t, srv)

	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	for _, name := range []string{"instantly", "intent_catalog", "completion"} {
		comp, ok := report.Components[name]
		if !ok {
			t.Errorf("component %q missing", name)
			continue
		}
		if comp.Status != "unhealthy" {
			t.Errorf("component %q: got %q, want unhealthy", name, comp.Status)
		}
		if comp.Message == "" {
			t.Errorf("component %q: message should carry the probe error", name)
		}
	}
}

func TestHandleHealth_SlowProbeReportsAsTimedOut(t *testing.T) {
	srv := healthServer(
		&fakeProbe{name: "intent_catalog"},
		&fakeProbe{name: "instantly", delay: 5 * time.Second}, // beyond the 2s budget
		&fakeProbe{name: "completion"},
	)

	code, report := getHealth(t, srv)

	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("report.status: got %q, want unhealthy", report.Status)
	}
	inst, ok := report.Components["instantly"]
	if !ok {
		t.Fatal("instantly component missing")
	}
	if inst.Status != "unhealthy" {
		t.Errorf("instantly: got %q, want unhealthy", inst.Status)
	}
}

func TestHandleHealth_NoProbesRegistered(t *testing.T) {
	code, report := getHealth(t, healthServer())

	if code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
	if report.Status != "healthy" {
		t.Errorf("report.status: got %q, want healthy", report.Status)
	}
}

func TestHandleHealth_ProbesRunInParallel(t *testing.T) {
	// Three probes at 100ms each: sequential execution would take 300ms.
	const probeDelay = 100 * time.Millisecond

	srv := healthServer(
		&fakeProbe{name: "instantly", delay: probeDelay},
		&fakeProbe{name: "intent_catalog", delay: probeDelay},
		&fakeProbe{name: "completion", delay: probeDelay},
	)

	start := time.Now()
	code, _ := getHealth(t, srv)
	elapsed := time.Since(start)

	if code != http.StatusOK {
		t.Errorf("status: got %d, want 200", code)
	}
	if elapsed >= 3*probeDelay {
		t.Errorf("sweep took %v; probes appear to run sequentially", elapsed)
	}
}

func TestHandleHealth_ContentType(t *testing.T) {
	srv := healthServer(&fakeProbe{name: "instantly"})

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}

func TestHandleHealth_ProbeSeesCancellation(t *testing.T) {
	sawCancel := make(chan bool, 1)

	srv := healthServer(&fakeProbe{
		name: "slow_probe",
		check: func(ctx context.Context) error {
			select {
			case <-time.After(10 * time.Second):
				sawCancel <- false
				return nil
			case <-ctx.Done():
				sawCancel <- true
				return ctx.Err()
			}
		},
	})

	// A request context shorter than the probe budget forces cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}

	select {
	case cancelled := <-sawCancel:
		if !cancelled {
			t.Error("probe never saw the context cancellation")
		}
	case <-time.After(3 * time.Second):
		t.Error("timed out waiting for the probe to report")
	}
}

func TestHandleHealth_EveryProbeRuns(t *testing.T) {
	inst := &fakeProbe{name: "instantly"}
	catalog := &fakeProbe{name: "intent_catalog"}
	completion := &fakeProbe{name: "completion"}

	getHealth(t, healthServer(inst, catalog, completion))

	for _, p := range []*fakeProbe{inst, catalog, completion} {
		if p.calls.Load() == 0 {
			t.Errorf("probe %q was never called", p.name)
		}
	}
}

func TestHandleHealth_PanickingProbeIsContained(t *testing.T) {
	srv := healthServer(
		&fakeProbe{name: "intent_catalog"},
		&fakeProbe{
			name: "instantly",
			check: func(ctx context.Context) error {
				panic("instantly client nil pointer")
			},
		},
		&fakeProbe{name: "completion"},
	)

	// Must not take the handler down with it.
	code, report := getHealth(t, srv)

	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	inst, ok := report.Components["instantly"]
	if !ok {
		t.Fatal("instantly component missing")
	}
	if inst.Status != "unhealthy" {
		t.Errorf("instantly: got %q, want unhealthy", inst.Status)
	}
	if inst.Message == "" {
		t.Error("panicked probe should surface a message")
	}
	for _, name := range []string{"intent_catalog", "completion"} {
		if comp := report.Components[name]; comp.Status != "healthy" {
			t.Errorf("component %q: got %q, want healthy", name, comp.Status)
		}
	}
}
