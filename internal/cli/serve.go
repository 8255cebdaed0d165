package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadfive-network/leadfive/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Override the listen address (host:port)")
	serveCmd.Flags().Bool("auto-distribute", false, "Run the pool distribution scheduler")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger daemon",
	Long: `Start the ledger daemon: replays the event log, rebuilds in-memory
state and serves the HTTP API until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if auto, _ := cmd.Flags().GetBool("auto-distribute"); auto {
		cfg.Pools.AutoDistribute = true
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		host, port, err := splitHostPort(listen)
		if err != nil {
			return err
		}
		cfg.API.Host, cfg.API.Port = host, port
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}

func loadConfigFromFlags(cmd *cobra.Command) (daemon.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.DefaultConfigPath()
	}
	return daemon.LoadConfig(path)
}
