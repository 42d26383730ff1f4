package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	h := Instrument("GET /menu/{key}/{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /menu/{key}/{$}", "404"))
	for _, path := range []string{"/menu/1/", "/menu/2/"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /menu/{key}/{$}", "404"))

	if after-before != 2 {
		t.Fatalf("expected 2 observations under one route label, got %v", after-before)
	}
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(votesRegistered.WithLabelValues("conflict"))
	ObserveVote("conflict")
	if got := testutil.ToFloat64(votesRegistered.WithLabelValues("conflict")) - before; got != 1 {
		t.Fatalf("conflict counter moved by %v", got)
	}
}
