package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/logbook/internal/cmd/client"
	serverrun "github.com/rzbill/logbook/internal/cmd/server"
	cfgpkg "github.com/rzbill/logbook/internal/config"
	logpkg "github.com/rzbill/logbook/pkg/log"
)

func main() {
	// .env values feed both the server config and the client addresses
	if err := cfgpkg.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	rootCmd := &cobra.Command{
		Use:          "logbook",
		Short:        "Logbook log store CLI",
		Long:         "Logbook stores leveled, tagged log events in an embedded database and serves them over HTTP and gRPC.",
		SilenceUsage: true,
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverCmd.AddCommand(newServerStartCommand())

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "List environment variables understood by the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			help, err := cfgpkg.EnvHelp()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), help)
			return nil
		},
	}
	serverCmd.AddCommand(envCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewLogsCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewHealthCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newServerStartCommand constructs `server start`. Flags override the config
// file and environment only when set explicitly.
func newServerStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Short:   "Start logbook server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("config", os.Getenv("LOGBOOK_CONFIG"), "Config file (yaml, json, toml or env)")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.String("engine", "", "Storage engine: pebble|sqlite")
	f.String("http", "", "HTTP listen address")
	f.String("grpc", "", "gRPC listen address")
	f.String("fsync", "", "Fsync mode: always|interval|never (pebble)")
	f.String("log-level", "", "Server log level: debug|info|warn|error")
	f.String("log-format", "", "Server log format: text|json")
	return cmd
}

// loadServerConfig reads the config file or environment, then applies any
// flags that were set explicitly.
func loadServerConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	override := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	override("data-dir", &cfg.DataDir)
	override("engine", &cfg.Engine)
	override("http", &cfg.HTTP.Addr)
	override("grpc", &cfg.GRPC.Addr)
	override("fsync", &cfg.Fsync)
	override("log-level", &cfg.Log.Level)
	override("log-format", &cfg.Log.Format)

	if _, err := logpkg.ParseLevel(cfg.Log.Level); err != nil {
		return cfg, fmt.Errorf("invalid --log-level: %w", err)
	}
	return cfg, cfg.Validate()
}

func apiURL() string {
	if v := os.Getenv("LOGBOOK_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
