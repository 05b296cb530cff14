// Package report renders run outcomes and ledger records for terminals
// and for machine consumers. Every view comes in two shapes: a table for
// humans and JSON for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/provoke-dev/provoke/pkg/harness"
	"github.com/provoke-dev/provoke/pkg/models"
)

// WriteOutcome renders the end-of-run summary as a two-column table.
func WriteOutcome(w io.Writer, action models.Action, rep harness.Report) error {
	out := harness.Outcome(rep)

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	table.Append("Run ID", rep.BearerToken)
	table.Append("Action", string(action))
	table.Append("State", string(out.State))
	table.Append("Exit Code", fmt.Sprintf("%d", out.Code))
	table.Append("Invocations", fmt.Sprintf("%d", out.Invocations))
	table.Append("Duration", formatDuration(rep.FinishedAt.Sub(rep.StartedAt)))

	if out.Message != "" {
		table.Append("Message", out.Message)
	}
	if out.ErrorCode != "" {
		table.Append("Error Code", out.ErrorCode)
	}

	for i, warning := range out.Warnings {
		label := "Warnings"
		if i > 0 {
			label = ""
		}
		table.Append(label, warning)
	}

	for i, inv := range rep.Timings {
		label := "Timeline"
		if i > 0 {
			label = ""
		}
		table.Append(label, formatTiming(inv))
	}

	if out.ResourceModel != nil {
		modelJSON, err := json.MarshalIndent(out.ResourceModel, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resource model: %w", err)
		}
		table.Append("Resource Model", string(modelJSON))
	}

	return table.Render()
}

// WriteOutcomeJSON renders the process-level outcome as indented JSON.
func WriteOutcomeJSON(w io.Writer, out harness.ExitOutcome) error {
	output, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// WriteRunTable renders ledger rows one per line, newest first as the
// store returns them.
func WriteRunTable(w io.Writer, runs []*models.RunRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("Run ID", "Action", "State", "Invocations", "Error", "Duration", "Finished")

	for _, run := range runs {
		errDisplay := "-"
		if run.ErrorCode != "" {
			errDisplay = run.ErrorCode
		}

		table.Append(
			shortID(run.ID),
			string(run.Action),
			string(run.State),
			fmt.Sprintf("%d", run.Invocations),
			errDisplay,
			formatDuration(run.Duration()),
			run.FinishedAt.Format("2006-01-02 15:04"),
		)
	}

	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal runs: %d\n", len(runs))
	return err
}

// WriteRun renders one ledger row in full as a two-column table.
func WriteRun(w io.Writer, run *models.RunRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	table.Append("Run ID", run.ID)
	table.Append("Action", string(run.Action))
	table.Append("Endpoint", run.Endpoint)
	table.Append("Function", run.Function)
	table.Append("Transport", run.Transport)
	table.Append("State", string(run.State))
	table.Append("Invocations", fmt.Sprintf("%d", run.Invocations))

	if run.ErrorCode != "" {
		table.Append("Error Code", run.ErrorCode)
	}
	if run.Message != "" {
		table.Append("Message", run.Message)
	}

	for i, warning := range run.Warnings {
		label := "Warnings"
		if i > 0 {
			label = ""
		}
		table.Append(label, warning)
	}

	table.Append("Started At", run.StartedAt.Format(time.RFC3339))
	table.Append("Finished At", run.FinishedAt.Format(time.RFC3339))
	table.Append("Duration", formatDuration(run.Duration()))

	for i, inv := range run.Timings {
		label := "Timeline"
		if i > 0 {
			label = ""
		}
		table.Append(label, formatTiming(inv))
	}

	return table.Render()
}

// WriteJSON renders any value as indented JSON. Used for the --output
// json path of ledger commands.
func WriteJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// formatTiming prints one invocation as a timeline entry.
func formatTiming(inv models.InvocationTiming) string {
	line := fmt.Sprintf("#%d %s (%dms)", inv.Attempt, inv.Status, inv.DurationMs)
	if inv.DelaySeconds > 0 {
		line += fmt.Sprintf(", delay %ds", inv.DelaySeconds)
	}
	return line
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Millisecond).String()
}

// shortID truncates a bearer-token run ID for list views.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
