package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readiness flips to ready once every store of the run is connected.
type Readiness struct {
	ready atomic.Bool
}

// SetReady records the current state.
func (rd *Readiness) SetReady(ready bool) {
	rd.ready.Store(ready)
}

// Ready reports the current state.
func (rd *Readiness) Ready() bool {
	return rd.ready.Load()
}

// Readyz returns 200 "ready\n" when ready, 503 otherwise.
func (rd *Readiness) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !rd.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
