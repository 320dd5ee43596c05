package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	pulsewire "github.com/pulsewire/pulsewire-go"
	"github.com/pulsewire/pulsewire-go/internal/config"
	"github.com/pulsewire/pulsewire-go/internal/telemetry"
)

var (
	flagEndpoint  string
	flagConfig    string
	flagToken     string
	flagDebug     bool
	flagTelemetry string
)

var rootCmd = &cobra.Command{
	Use:           "pulsewire",
	Short:         "Realtime socket client",
	Long:          "pulsewire connects to a realtime WebSocket server to tail channels and publish messages.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best effort; a missing .env is fine.
		_ = godotenv.Load()
		setupLogging(flagDebug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "server address (e.g. example.com:9000, wss://example.com)")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token for the handshake")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagTelemetry, "telemetry", "", "write JSONL client events to this file")

	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(publishCmd)
}

// setupLogging configures the global zerolog logger. Pretty console output
// is used only when stderr is an actual terminal, so piped output stays
// machine-readable JSON.
func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
}

// newClient builds a client from --config plus flag overrides.
func newClient() (*pulsewire.Client, error) {
	var opts []pulsewire.Option
	if flagToken != "" {
		opts = append(opts, pulsewire.WithToken(flagToken))
	}
	if flagTelemetry != "" {
		opts = append(opts, pulsewire.WithTelemetry(telemetry.Config{
			Enabled: true,
			LogPath: flagTelemetry,
		}))
	}

	if flagConfig != "" {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		if flagEndpoint != "" {
			cfg.Endpoint = flagEndpoint
		}
		return pulsewire.NewClientFromConfig(cfg, opts...)
	}

	client, err := pulsewire.NewClient(flagEndpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return client, nil
}
