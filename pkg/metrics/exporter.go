package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/store"
)

// Exporter serves the /metrics endpoint: run-ledger gauges written by
// hand plus everything gathered from the Prometheus registry.
type Exporter struct {
	store     store.Store
	gatherer  promclient.Gatherer
	startTime time.Time
}

// NewExporter creates a metrics exporter backed by the run ledger.
// A nil gatherer uses the default registry.
func NewExporter(s store.Store, gatherer promclient.Gatherer) *Exporter {
	if gatherer == nil {
		gatherer = promclient.DefaultGatherer
	}
	return &Exporter{
		store:     s,
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

// ServeHTTP serves Prometheus-compatible metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// Tally the run ledger. Every state is exported even at zero so
	// dashboards do not lose series between runs.
	runsByState := map[models.RunState]int{
		models.RunStatePending:       0,
		models.RunStateRunning:       0,
		models.RunStateContinuing:    0,
		models.RunStateDoneSuccess:   0,
		models.RunStateDoneFailed:    0,
		models.RunStateDoneExhausted: 0,
		models.RunStateDoneError:     0,
	}
	totalInvocations := 0

	if e.store != nil {
		runs, err := e.store.ListRuns(0)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error collecting run metrics: %v", err), http.StatusInternalServerError)
			return
		}
		for _, run := range runs {
			runsByState[run.State]++
			totalInvocations += run.Invocations
		}
	}

	fmt.Fprintf(w, "# HELP provoke_runs_total Recorded runs by final state\n")
	fmt.Fprintf(w, "# TYPE provoke_runs_total gauge\n")
	for _, state := range []models.RunState{
		models.RunStateDoneSuccess,
		models.RunStateDoneFailed,
		models.RunStateDoneExhausted,
		models.RunStateDoneError,
	} {
		fmt.Fprintf(w, "provoke_runs_total{state=\"%s\"} %d\n", state, runsByState[state])
	}

	fmt.Fprintf(w, "\n# HELP provoke_runs_invocations_total Handler invocations recorded across all runs\n")
	fmt.Fprintf(w, "# TYPE provoke_runs_invocations_total gauge\n")
	fmt.Fprintf(w, "provoke_runs_invocations_total %d\n", totalInvocations)

	fmt.Fprintf(w, "\n# HELP provoke_uptime_seconds Sample handler server uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE provoke_uptime_seconds gauge\n")
	fmt.Fprintf(w, "provoke_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	fmt.Fprintf(w, "\n")

	metricFamilies, err := e.gatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metricFamilies {
		// Skip families written by hand above
		if mf.GetName() == "provoke_runs_total" ||
			mf.GetName() == "provoke_runs_invocations_total" ||
			mf.GetName() == "provoke_uptime_seconds" {
			continue
		}
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}

	w.Write(buf.Bytes())
}
