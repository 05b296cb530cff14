package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provoke-dev/provoke/internal/hostinfo"
	"github.com/provoke-dev/provoke/internal/report"
	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/retry"
)

var (
	doctorWait        bool
	doctorWaitTimeout time.Duration
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the environment is ready for runs",
	Long: `Check the effective configuration, probe the handler endpoint's health
route, open the run ledger and sample the host. With --wait the endpoint
probe polls with backoff until the endpoint is ready or the wait timeout
expires, which is useful while a local emulator is still starting up.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorWait, "wait", false, "poll the endpoint until it is ready")
	doctorCmd.Flags().DurationVar(&doctorWaitTimeout, "wait-timeout", 60*time.Second, "how long --wait keeps polling")
}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type doctorReport struct {
	Healthy bool              `json:"healthy"`
	Checks  []doctorCheck     `json:"checks"`
	Host    hostinfo.Snapshot `json:"host"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	rep := doctorReport{Healthy: true}

	// Config file. Running on defaults is fine, just worth saying.
	if file := viper.ConfigFileUsed(); file != "" {
		rep.Checks = append(rep.Checks, doctorCheck{Name: "config", OK: true, Detail: file})
	} else {
		rep.Checks = append(rep.Checks, doctorCheck{Name: "config", OK: true, Detail: "no config file, using defaults"})
	}

	// Endpoint health.
	endpointCheck := doctorCheck{Name: "endpoint", OK: true, Detail: GetEndpoint()}
	if err := checkEndpoint(cmd.Context()); err != nil {
		endpointCheck.OK = false
		endpointCheck.Detail = err.Error()
		rep.Healthy = false
	}
	rep.Checks = append(rep.Checks, endpointCheck)

	// Run ledger.
	ledgerCheck := doctorCheck{Name: "ledger", OK: true}
	st, err := openLedger()
	switch {
	case err != nil:
		ledgerCheck.OK = false
		ledgerCheck.Detail = err.Error()
		rep.Healthy = false
	case st == nil:
		ledgerCheck.Detail = "disabled"
	default:
		if err := st.HealthCheck(); err != nil {
			ledgerCheck.OK = false
			ledgerCheck.Detail = err.Error()
			rep.Healthy = false
		} else {
			ledgerCheck.Detail = GetLedgerConfig().Type
		}
		st.Close()
	}
	rep.Checks = append(rep.Checks, ledgerCheck)

	rep.Host = hostinfo.Collect()

	if IsJSONOutput() {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		printDoctorReport(rep)
	}

	if !rep.Healthy {
		return fmt.Errorf("environment is not ready")
	}
	return nil
}

// checkEndpoint probes the endpoint's health route. Connection faults are
// retried under --wait; an endpoint that answers with garbage is reported
// immediately because it will not improve on its own.
func checkEndpoint(ctx context.Context) error {
	err := probeHealth()
	if err == nil || !doctorWait || !retry.Transient(err) {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, doctorWaitTimeout)
	defer cancel()

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1000 // bounded by --wait-timeout, not the counter
	return retry.Do(waitCtx, cfg, probeHealth)
}

func probeHealth() error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(GetEndpoint() + "/health")
	if err != nil {
		return &models.TransportError{Kind: models.TransportConnection, Endpoint: GetEndpoint(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &models.TransportError{
			Kind:     models.TransportProtocol,
			Endpoint: GetEndpoint(),
			Detail:   fmt.Sprintf("health returned status %d", resp.StatusCode),
		}
	}
	return nil
}

func printDoctorReport(rep doctorReport) {
	for _, check := range rep.Checks {
		mark := "✓"
		if !check.OK {
			mark = "✗"
		}
		fmt.Printf("%s %s: %s\n", mark, check.Name, check.Detail)
	}

	fmt.Println()
	fmt.Printf("Host: %s (%s/%s, %s)\n", rep.Host.Hostname, rep.Host.OS, rep.Host.Arch, rep.Host.GoVersion)
	fmt.Printf("  CPU: %d cores, %.1f%% busy\n", rep.Host.CPUCores, rep.Host.CPUUsagePct)
	if rep.Host.MemTotal > 0 {
		usedGB := float64(rep.Host.MemUsed) / (1024 * 1024 * 1024)
		totalGB := float64(rep.Host.MemTotal) / (1024 * 1024 * 1024)
		fmt.Printf("  RAM: %.2f/%.2f GB used\n", usedGB, totalGB)
	}
}
