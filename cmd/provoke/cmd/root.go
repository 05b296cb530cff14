package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provoke-dev/provoke/pkg/logging"
	"github.com/provoke-dev/provoke/pkg/store"
	"github.com/provoke-dev/provoke/pkg/tracing"
)

var (
	cfgFile      string
	endpoint     string
	functionName string
	transport    string
	region       string
	profile      string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "provoke",
	Short: "Drive resource handler lifecycle operations to completion",
	Long: `provoke invokes a resource provider handler for one lifecycle operation
(CREATE, READ, UPDATE, DELETE or LIST) and re-invokes it, carrying the
callback context forward, until the handler reports a terminal status or
the re-invocation budget runs out. It also ships a scripted sample
endpoint for developing against the wire contract locally.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.provoke/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "handler endpoint URL (default from config or http://127.0.0.1:3001)")
	rootCmd.PersistentFlags().StringVar(&functionName, "function", "", "handler function name (default from config or TestEntrypoint)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "", "invocation transport: lambda or http (default lambda)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region for the lambda transport (default us-east-1)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS shared config profile for the lambda transport")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".provoke/config" (without extension)
		configDir := filepath.Join(home, ".provoke")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PROVOKE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// Bind specific environment variables
	viper.BindEnv("endpoint", "PROVOKE_ENDPOINT")
	viper.BindEnv("function", "PROVOKE_FUNCTION")
	viper.BindEnv("region", "PROVOKE_REGION")

	// If a config file is found, read it in. Flags beat env, env beats
	// file, file beats the defaults below.
	viper.ReadInConfig()

	if endpoint == "" && viper.GetString("endpoint") != "" {
		endpoint = viper.GetString("endpoint")
	}
	if functionName == "" && viper.GetString("function") != "" {
		functionName = viper.GetString("function")
	}
	if transport == "" && viper.GetString("transport") != "" {
		transport = viper.GetString("transport")
	}
	if region == "" && viper.GetString("region") != "" {
		region = viper.GetString("region")
	}
	if profile == "" && viper.GetString("profile") != "" {
		profile = viper.GetString("profile")
	}

	// Set defaults if still empty
	if endpoint == "" {
		endpoint = "http://127.0.0.1:3001"
	}
	if functionName == "" {
		functionName = "TestEntrypoint"
	}
	if transport == "" {
		transport = "lambda"
	}
	if region == "" {
		region = "us-east-1"
	}
}

// GetEndpoint returns the configured handler endpoint with trailing slashes removed
func GetEndpoint() string {
	return strings.TrimRight(endpoint, "/")
}

// GetFunction returns the configured handler function name
func GetFunction() string {
	return functionName
}

// GetTransport returns the configured invocation transport
func GetTransport() string {
	return transport
}

// GetRegion returns the configured AWS region
func GetRegion() string {
	return region
}

// GetProfile returns the configured AWS shared config profile
func GetProfile() string {
	return profile
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// newLogger builds the CLI logger. Commands stay quiet unless --verbose
// is set; loop and endpoint logs go to stderr so table output on stdout
// stays parseable.
func newLogger() *logging.Logger {
	level := logging.ERROR
	if verbose {
		level = logging.DEBUG
	}
	return logging.NewLogger(level, false)
}

// newServeLogger is like newLogger but chatty by default: a server that
// says nothing is indistinguishable from a dead one.
func newServeLogger() *logging.Logger {
	level := logging.INFO
	if verbose {
		level = logging.DEBUG
	}
	return logging.NewLogger(level, false)
}

// GetLedgerConfig returns the effective run ledger configuration. The
// default is a SQLite database under ~/.provoke.
func GetLedgerConfig() store.Config {
	cfg := store.Config{
		Type: viper.GetString("ledger.driver"),
		DSN:  viper.GetString("ledger.dsn"),
		Path: viper.GetString("ledger.path"),
	}
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.Type == "sqlite" && cfg.Path == "" && cfg.DSN == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Path = filepath.Join(home, ".provoke", "runs.db")
		}
	}
	return cfg
}

// openLedger opens the run ledger from the effective configuration. A
// driver of "off" disables the ledger entirely; callers get nil, nil.
func openLedger() (store.Store, error) {
	cfg := GetLedgerConfig()
	if cfg.Type == "off" {
		return nil, nil
	}
	if cfg.Type == "sqlite" && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	return store.NewStore(cfg)
}

// GetTracingConfig returns the effective tracing configuration. Tracing
// is off unless enabled in the config file or by PROVOKE_TRACING_ENABLED.
func GetTracingConfig() tracing.Config {
	environment := viper.GetString("tracing.environment")
	if environment == "" {
		environment = "development"
	}
	return tracing.Config{
		ServiceName:    "provoke",
		ServiceVersion: "1.0.0",
		Environment:    environment,
		OTLPEndpoint:   viper.GetString("tracing.otlp_endpoint"),
		Enabled:        viper.GetBool("tracing.enabled"),
	}
}
