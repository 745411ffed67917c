// Package health answers the liveness and readiness endpoints.
//
// Liveness (/healthz) proves nothing beyond the process serving HTTP.
// Readiness (/readyz) runs one probe per wired dependency and degrades to
// 503 when any fails, so a load balancer can hold traffic while the
// database or an inference backend is down.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// probeBudget bounds a single readiness probe.
const probeBudget = 5 * time.Second

// Probe checks one dependency. Run must honor ctx cancellation and return
// nil when the dependency can serve.
type Probe struct {
	// Name keys the probe's outcome in the readiness report.
	Name string

	Run func(ctx context.Context) error
}

// Endpoints serves the liveness and readiness routes for a fixed probe set.
type Endpoints struct {
	probes []Probe
}

// NewEndpoints creates the endpoints. The probe set cannot change afterwards.
func NewEndpoints(probes ...Probe) *Endpoints {
	return &Endpoints{probes: append([]Probe(nil), probes...)}
}

// report is the wire shape of both endpoints.
type report struct {
	Status string            `json:"status"`
	Probes map[string]string `json:"probes,omitempty"`
}

// Live reports liveness. Serving the request is the proof.
func (e *Endpoints) Live(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "up"})
}

// Ready runs every probe, each under its own deadline, and reports 503 when
// at least one fails. Probes run concurrently so a slow dependency does not
// eat into the budget of the others.
func (e *Endpoints) Ready(w http.ResponseWriter, r *http.Request) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make(map[string]string, len(e.probes))
		degraded bool
	)
	for _, p := range e.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), probeBudget)
			defer cancel()
			err := p.Run(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcomes[p.Name] = err.Error()
				degraded = true
				return
			}
			outcomes[p.Name] = "up"
		}(p)
	}
	wg.Wait()

	rep := report{Status: "up", Probes: outcomes}
	code := http.StatusOK
	if degraded {
		rep.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respond(w, code, rep)
}

// Register mounts both routes on mux.
func (e *Endpoints) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", e.Live)
	mux.HandleFunc("GET /readyz", e.Ready)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// The status line is already out; an encode failure here has no recovery.
	_ = json.NewEncoder(w).Encode(rep)
}
