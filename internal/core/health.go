package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthTimeout bounds the whole probe sweep. A wedged upstream must not
// turn the health endpoint into a hang.
const healthTimeout = 2 * time.Second

// HealthProbe is one subsystem's readiness check. The Instantly client, the
// completion backend and the intent catalog each register one at startup.
type HealthProbe interface {
	// Name identifies the probe in the health response, e.g. "instantly".
	Name() string

	// Check reports whether the subsystem can do useful work. It must honor
	// ctx; the handler abandons probes that outlive the deadline.
	Check(ctx context.Context) error
}

// componentHealth is the per-subsystem slice of the health response.
type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthReport is the body served on GET /health.
type healthReport struct {
	Status     string                     `json:"status"`
	Service    string                     `json:"service,omitempty"`
	Components map[string]componentHealth `json:"components,omitempty"`
}

// HandleHealth runs every registered probe in parallel under a shared
// 2-second budget: 200 when all pass, 503 otherwise. Probes that miss the
// deadline are reported as timed out instead of delaying the response.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	service := ""
	if s.Config != nil {
		service = s.Config.Service
	}

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, healthReport{Status: "healthy", Service: service})
		return
	}

	type outcome struct {
		index int
		err   error
	}

	// Buffered to capacity so stragglers finishing after the deadline can
	// still send and exit instead of leaking.
	outcomes := make(chan outcome, len(probes))
	for i, probe := range probes {
		i, probe := i, probe
		go func() {
			outcomes <- outcome{index: i, err: runProbe(ctx, probe)}
		}()
	}

	errs := make([]error, len(probes))
	finished := make([]bool, len(probes))
	for pending := len(probes); pending > 0; {
		select {
		case out := <-outcomes:
			errs[out.index] = out.err
			finished[out.index] = true
			pending--
		case <-ctx.Done():
			pending = 0
		}
	}

	// Keep results that landed right as the deadline fired.
drain:
	for {
		select {
		case out := <-outcomes:
			errs[out.index] = out.err
			finished[out.index] = true
		default:
			break drain
		}
	}

	healthy := true
	components := make(map[string]componentHealth, len(probes))
	for i, probe := range probes {
		switch {
		case !finished[i]:
			healthy = false
			components[probe.Name()] = componentHealth{Status: "unhealthy", Message: "health check timed out"}
		case errs[i] != nil:
			healthy = false
			components[probe.Name()] = componentHealth{Status: "unhealthy", Message: errs[i].Error()}
		default:
			components[probe.Name()] = componentHealth{Status: "healthy"}
		}
	}

	report := healthReport{Status: "healthy", Service: service, Components: components}
	status := http.StatusOK
	if !healthy {
		report.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, report)
}

// runProbe shields the handler from a panicking probe.
func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return p.Check(ctx)
}
