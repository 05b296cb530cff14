package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
)

// ExportJSON writes ledger rows as a JSON array, full fidelity including
// transitions and per-invocation timings.
func ExportJSON(w io.Writer, runs []*models.RunRecord) error {
	output, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runs: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// csvHeader is the fixed column set for CSV exports. Transitions and
// timings are flattened out; use the JSON export when they matter.
var csvHeader = []string{
	"id", "action", "endpoint", "function", "transport", "state",
	"invocations", "error_code", "message", "warnings",
	"started_at", "finished_at", "duration_ms",
}

// ExportCSV writes ledger rows as CSV with a header line. Warnings are
// joined with "; " so each run stays on one line.
func ExportCSV(w io.Writer, runs []*models.RunRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, run := range runs {
		row := []string{
			run.ID,
			string(run.Action),
			run.Endpoint,
			run.Function,
			run.Transport,
			string(run.State),
			strconv.Itoa(run.Invocations),
			run.ErrorCode,
			run.Message,
			strings.Join(run.Warnings, "; "),
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Format(time.RFC3339),
			strconv.FormatInt(run.Duration().Milliseconds(), 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
