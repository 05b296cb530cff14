package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"

	"github.com/provoke-dev/provoke/internal/report"
	"github.com/provoke-dev/provoke/pkg/handler"
	"github.com/provoke-dev/provoke/pkg/harness"
	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/tracing"
)

var (
	maxReinvoke     int
	invokeTimeout   time.Duration
	noSave          bool
	invokeAuthToken string
)

// invokeCmd represents the invoke command
var invokeCmd = &cobra.Command{
	Use:   "invoke <action> <request-file>",
	Short: "Drive one lifecycle operation to completion",
	Long: `Invoke the handler endpoint for one lifecycle operation and re-invoke it,
carrying the callback context forward, until it reports SUCCESS or FAILED
or the re-invocation budget is spent.

The action is one of CREATE, READ, UPDATE, DELETE, LIST. The request file
holds the resourceRequest JSON object passed to the handler verbatim;
use - to read it from stdin.

Exit codes: 0 the handler reported SUCCESS, 2 the handler reported FAILED,
3 the re-invocation budget ran out, 4 the run could not complete (transport
fault, malformed response or cancellation).`,
	Args: cobra.ExactArgs(2),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().IntVar(&maxReinvoke, "max-reinvoke", -1, "cap on re-invocations after the first invocation (-1 = unbounded, 0 = no re-invocations)")
	invokeCmd.Flags().DurationVar(&invokeTimeout, "timeout", 60*time.Second, "per-invocation timeout")
	invokeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run in the ledger")
	invokeCmd.Flags().StringVar(&invokeAuthToken, "auth-token", "", "bearer token for the http transport's Authorization header")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	code, err := executeInvoke(cmd, args)
	if err != nil {
		return err
	}
	if code != harness.ExitSuccess {
		os.Exit(code)
	}
	return nil
}

// executeInvoke runs the operation and returns the process exit code. It
// is separate from runInvoke so deferred cleanup runs before os.Exit.
func executeInvoke(cmd *cobra.Command, args []string) (int, error) {
	action, err := models.ParseAction(args[0])
	if err != nil {
		return 0, err
	}

	body, err := readRequestBody(args[1])
	if err != nil {
		return 0, err
	}

	req, err := harness.NewRequest(action, body, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid resource request: %w", err)
	}

	// Flags win over the config file for the per-command knobs.
	timeout := invokeTimeout
	if !cmd.Flags().Changed("timeout") && viper.IsSet("timeout") {
		timeout = viper.GetDuration("timeout")
	}
	budget := maxReinvoke
	if !cmd.Flags().Changed("max-reinvoke") && viper.IsSet("max_reinvoke") {
		budget = viper.GetInt("max_reinvoke")
	}

	// SIGINT cancels the run; the loop folds the cancellation into the
	// outcome instead of dying mid-invocation.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	invoker, err := handler.New(ctx, handler.Config{
		Transport: GetTransport(),
		Endpoint:  GetEndpoint(),
		Function:  GetFunction(),
		Region:    GetRegion(),
		Profile:   GetProfile(),
		AuthToken: invokeAuthToken,
		Timeout:   timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create invoker: %w", err)
	}

	provider, err := tracing.InitTracer(GetTracingConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer provider.Shutdown(context.Background())

	opts := harness.Options{Logger: logger}
	if budget >= 0 {
		opts.MaxReinvoke = &budget
	}

	runCtx, span := provider.StartSpan(ctx, "provoke.run",
		attribute.String("provoke.action", string(action)),
		attribute.String("provoke.endpoint", GetEndpoint()),
		attribute.String("provoke.function", GetFunction()),
	)

	rep := harness.New(invoker, opts).Run(runCtx, req)

	span.SetAttributes(
		attribute.String("provoke.state", string(rep.State)),
		attribute.Int("provoke.invocations", rep.Invocations),
	)
	if rep.Err != nil {
		span.RecordError(rep.Err)
	}
	span.End()

	out := harness.Outcome(rep)

	if !noSave {
		saveRun(logger, rep, action)
	}

	if IsJSONOutput() {
		if err := report.WriteOutcomeJSON(os.Stdout, out); err != nil {
			return 0, err
		}
	} else {
		if err := report.WriteOutcome(os.Stdout, action, rep); err != nil {
			return 0, err
		}
	}

	return out.Code, nil
}

// readRequestBody reads the resourceRequest document from a file, or
// from stdin when the argument is "-".
func readRequestBody(path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read request from stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return body, nil
}

// saveRun records the finished run in the ledger. Ledger trouble never
// fails the run itself; the outcome is already decided.
func saveRun(logger *logging.Logger, rep harness.Report, action models.Action) {
	st, err := openLedger()
	if err != nil {
		logger.Warn("Run ledger unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	if st == nil {
		return
	}
	defer st.Close()

	record := harness.Record(rep, action, GetEndpoint(), GetFunction(), GetTransport())
	if err := st.SaveRun(record); err != nil {
		logger.Warn("Failed to record run", map[string]interface{}{"error": err.Error()})
	}
}
