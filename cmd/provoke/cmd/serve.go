package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provoke-dev/provoke/internal/hostinfo"
	"github.com/provoke-dev/provoke/internal/sample"
	"github.com/provoke-dev/provoke/pkg/cleanup"
	"github.com/provoke-dev/provoke/pkg/metrics"
	"github.com/provoke-dev/provoke/pkg/shutdown"
	tlsutil "github.com/provoke-dev/provoke/pkg/tls"
	"github.com/provoke-dev/provoke/pkg/tracing"
)

var (
	listenAddr     string
	scenarioFile   string
	initScenario   string
	throttleRPS    float64
	serveAuthToken string
	tlsCert        string
	tlsKey         string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scripted sample handler endpoint",
	Long: `Serve a local handler endpoint that answers invocations from a scripted
scenario. It speaks the same wire contract a real handler does, including
the Lambda Invoke REST surface, so both transports can be exercised
without deploying anything.

Scenarios script per-action behavior: how many IN_PROGRESS responses to
return before the terminal one, the callback delay, the terminal result,
and optional failure-injection modes for testing the harness itself.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", ":3001", "listen address")
	serveCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario YAML file (default: two IN_PROGRESS steps then SUCCESS)")
	serveCmd.Flags().StringVar(&initScenario, "init-scenario", "", "write a commented example scenario to this path and exit")
	serveCmd.Flags().Float64Var(&throttleRPS, "throttle-rps", 0, "per-bearer-token rate above which requests are answered FAILED/Throttling (0 = off)")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "require this bearer token on the invocation routes")
	serveCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	serveCmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS private key file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newServeLogger()

	if initScenario != "" {
		if err := os.WriteFile(initScenario, []byte(sample.ExampleScenario), 0644); err != nil {
			return fmt.Errorf("failed to write scenario file: %w", err)
		}
		fmt.Printf("Example scenario written to %s\n", initScenario)
		return nil
	}

	scenario := sample.DefaultScenario()
	if scenarioFile != "" {
		loaded, err := sample.LoadScenario(scenarioFile)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		scenario = loaded
	}

	st, err := openLedger()
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}

	provider, err := tracing.InitTracer(GetTracingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	srv, err := sample.NewServer(sample.ServerOptions{
		Scenario:    scenario,
		ThrottleRPS: throttleRPS,
		AuthToken:   serveAuthToken,
		Store:       st,
		Collector:   metrics.NewCollector(nil),
		Tracing:     provider,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create sample endpoint: %w", err)
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tlsCert != "" && tlsKey != "" {
		if _, err := os.Stat(tlsCert); os.IsNotExist(err) {
			logger.Info("Certificate not found, generating a self-signed one", map[string]interface{}{
				"cert": tlsCert,
				"key":  tlsKey,
			})
			if err := tlsutil.GenerateSelfSignedCert(tlsCert, tlsKey, "provoke-sample"); err != nil {
				return fmt.Errorf("failed to generate certificate: %w", err)
			}
		}
		tlsConfig, err := tlsutil.LoadTLSConfig(tlsCert, tlsKey)
		if err != nil {
			return fmt.Errorf("failed to load TLS config: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
	}

	// Register dependencies first: LIFO shutdown then stops the server
	// before anything it writes to goes away.
	manager := shutdown.NewManager(15*time.Second, logger)
	manager.Register("tracing", provider.Shutdown)
	if st != nil {
		manager.Register("run ledger", shutdown.CloseResource("run ledger", st))

		if days := viper.GetInt("ledger.retention_days"); days > 0 {
			jcfg := cleanup.DefaultConfig()
			jcfg.RetentionDays = days
			janitor := cleanup.NewJanitor(jcfg, st, logger)
			janitor.Start()
			manager.Register("ledger janitor", janitor.Shutdown)
		}
	}
	manager.Register("http server", shutdown.StopHTTPServer(httpServer))

	go func() {
		var serveErr error
		if httpServer.TLSConfig != nil {
			serveErr = httpServer.ListenAndServeTLS("", "")
		} else {
			serveErr = httpServer.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal("Sample endpoint failed", map[string]interface{}{"error": serveErr.Error()})
		}
	}()

	host := hostinfo.Collect()
	logger.Info("Sample endpoint listening", map[string]interface{}{
		"addr":      listenAddr,
		"tls":       httpServer.TLSConfig != nil,
		"scenario":  scenarioFile,
		"hostname":  host.Hostname,
		"cpu_cores": host.CPUCores,
		"mem_total": host.MemTotal,
	})

	manager.Wait()
	return nil
}
