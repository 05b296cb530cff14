package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for inspecting the effective provoke configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration that results from merging defaults, the config
file, PROVOKE_* environment variables and command line flags.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "text",
		"Output format: text, json, yaml, env")
}

type effectiveConfig struct {
	Endpoint   string      `json:"endpoint" yaml:"endpoint"`
	Function   string      `json:"function" yaml:"function"`
	Transport  string      `json:"transport" yaml:"transport"`
	Region     string      `json:"region" yaml:"region"`
	Profile    string      `json:"profile,omitempty" yaml:"profile,omitempty"`
	Ledger     ledgerInfo  `json:"ledger" yaml:"ledger"`
	Tracing    tracingInfo `json:"tracing" yaml:"tracing"`
	ConfigFile string      `json:"config_file,omitempty" yaml:"config_file,omitempty"`
}

type ledgerInfo struct {
	Driver        string `json:"driver" yaml:"driver"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN           string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty" yaml:"retention_days,omitempty"`
}

type tracingInfo struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
	Environment  string `json:"environment" yaml:"environment"`
}

func currentConfig() effectiveConfig {
	ledger := GetLedgerConfig()
	trace := GetTracingConfig()

	return effectiveConfig{
		Endpoint:  GetEndpoint(),
		Function:  GetFunction(),
		Transport: GetTransport(),
		Region:    GetRegion(),
		Profile:   GetProfile(),
		Ledger: ledgerInfo{
			Driver:        ledger.Type,
			Path:          ledger.Path,
			DSN:           ledger.DSN,
			RetentionDays: viper.GetInt("ledger.retention_days"),
		},
		Tracing: tracingInfo{
			Enabled:      trace.Enabled,
			OTLPEndpoint: trace.OTLPEndpoint,
			Environment:  trace.Environment,
		},
		ConfigFile: viper.ConfigFileUsed(),
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	switch configFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)

	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)

	case "env":
		fmt.Println("# provoke configuration")
		fmt.Printf("export PROVOKE_ENDPOINT=%s\n", cfg.Endpoint)
		fmt.Printf("export PROVOKE_FUNCTION=%s\n", cfg.Function)
		fmt.Printf("export PROVOKE_TRANSPORT=%s\n", cfg.Transport)
		fmt.Printf("export PROVOKE_REGION=%s\n", cfg.Region)
		if cfg.Profile != "" {
			fmt.Printf("export PROVOKE_PROFILE=%s\n", cfg.Profile)
		}
		fmt.Printf("export PROVOKE_LEDGER_DRIVER=%s\n", cfg.Ledger.Driver)
		if cfg.Ledger.Path != "" {
			fmt.Printf("export PROVOKE_LEDGER_PATH=%s\n", cfg.Ledger.Path)
		}
		return nil

	default: // text
		fmt.Println("Handler endpoint:")
		fmt.Printf("  Endpoint:  %s\n", cfg.Endpoint)
		fmt.Printf("  Function:  %s\n", cfg.Function)
		fmt.Printf("  Transport: %s\n", cfg.Transport)
		fmt.Printf("  Region:    %s\n", cfg.Region)
		if cfg.Profile != "" {
			fmt.Printf("  Profile:   %s\n", cfg.Profile)
		}
		fmt.Println()

		fmt.Println("Run ledger:")
		fmt.Printf("  Driver: %s\n", cfg.Ledger.Driver)
		if cfg.Ledger.Path != "" {
			fmt.Printf("  Path:   %s\n", cfg.Ledger.Path)
		}
		if cfg.Ledger.DSN != "" {
			fmt.Printf("  DSN:    %s\n", cfg.Ledger.DSN)
		}
		if cfg.Ledger.RetentionDays > 0 {
			fmt.Printf("  Retention: %d days\n", cfg.Ledger.RetentionDays)
		}
		fmt.Println()

		fmt.Println("Tracing:")
		fmt.Printf("  Enabled: %v\n", cfg.Tracing.Enabled)
		if cfg.Tracing.OTLPEndpoint != "" {
			fmt.Printf("  OTLP:    %s\n", cfg.Tracing.OTLPEndpoint)
		}
		fmt.Printf("  Environment: %s\n", cfg.Tracing.Environment)

		if cfg.ConfigFile != "" {
			fmt.Println()
			fmt.Printf("Config file: %s\n", cfg.ConfigFile)
		}
		return nil
	}
}
