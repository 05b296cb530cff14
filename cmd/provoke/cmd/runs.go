package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provoke-dev/provoke/internal/report"
	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/store"
)

var (
	runsLimit     int
	runsState     string
	runsOlderThan time.Duration
	exportFormat  string
	exportOut     string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
	Long:  `Commands for listing, inspecting, pruning and exporting recorded runs.`,
}

// runsListCmd represents the runs list command
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Long:  `List recorded runs, newest first.`,
	RunE:  runRunsList,
}

// runsShowCmd represents the runs show command
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run in full",
	Long:  `Show one recorded run. The argument is a run ID or a unique prefix of one.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

// runsPruneCmd represents the runs prune command
var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a cutoff",
	RunE:  runRunsPrune,
}

// runsExportCmd represents the runs export command
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs as JSON or CSV",
	RunE:  runRunsExport,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPruneCmd)
	runsCmd.AddCommand(runsExportCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list (0 = all)")
	runsListCmd.Flags().StringVar(&runsState, "state", "", "only runs in this state (done_success, done_failed, done_exhausted, done_error)")

	runsPruneCmd.Flags().DurationVar(&runsOlderThan, "older-than", 0, "delete runs finished longer ago than this (e.g. 720h)")
	runsPruneCmd.MarkFlagRequired("older-than")

	runsExportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or csv")
	runsExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
}

// mustOpenLedger opens the ledger for ledger-only commands, where a
// disabled ledger is an error rather than a silent no-op.
func mustOpenLedger() (store.Store, error) {
	st, err := openLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("run ledger is disabled (ledger.driver: off)")
	}
	return st, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	st, err := mustOpenLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []*models.RunRecord
	if runsState != "" {
		runs, err = st.ListRunsByState(models.RunState(runsState), runsLimit)
	} else {
		runs, err = st.ListRuns(runsLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if IsJSONOutput() {
		return report.WriteJSON(os.Stdout, runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	return report.WriteRunTable(os.Stdout, runs)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	st, err := mustOpenLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := findRun(st, args[0])
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return report.WriteJSON(os.Stdout, run)
	}
	return report.WriteRun(os.Stdout, run)
}

// findRun resolves a run ID or unique ID prefix to its ledger row.
func findRun(st store.Store, idOrPrefix string) (*models.RunRecord, error) {
	run, err := st.GetRun(idOrPrefix)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, store.ErrRunNotFound) {
		return nil, err
	}

	runs, err := st.ListRuns(0)
	if err != nil {
		return nil, err
	}

	var match *models.RunRecord
	for _, r := range runs {
		if strings.HasPrefix(r.ID, idOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("run ID prefix %q is ambiguous", idOrPrefix)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no run with ID or prefix %q", idOrPrefix)
	}
	return match, nil
}

func runRunsPrune(cmd *cobra.Command, args []string) error {
	st, err := mustOpenLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	cutoff := time.Now().Add(-runsOlderThan)
	pruned, err := st.PruneRuns(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}

	if pruned > 0 {
		if err := st.Vacuum(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: vacuum after prune failed: %v\n", err)
		}
	}

	fmt.Printf("Pruned %d runs older than %s\n", pruned, runsOlderThan)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	st, err := mustOpenLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		return report.ExportJSON(out, runs)
	case "csv":
		return report.ExportCSV(out, runs)
	default:
		return fmt.Errorf("unknown export format: %s", exportFormat)
	}
}
