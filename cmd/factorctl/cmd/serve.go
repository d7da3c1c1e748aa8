package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tickerfactor/factorctl/internal/registry"
	"github.com/tickerfactor/factorctl/internal/statusapi"
	"github.com/tickerfactor/factorctl/pkg/config"
)

var (
	serveConfigPath string
	servePort       int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API server",
	Long: `Start an HTTP server exposing the factor registry and replay-run
history as JSON:

  GET /api/health   - database connectivity check
  GET /api/factors  - list registered factor definitions
  GET /api/runs     - list recent replay runs
  GET /api/runs/:id - a single replay run's status`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Start the status server on the default port
  ` + binName + ` serve --config ./config.yaml

  # Use a custom port
  ` + binName + ` serve --config ./config.yaml -p 9090`

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Config file (required)")
	serveCmd.MarkFlagRequired("config")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port for the status server")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := registry.NewGormDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to registry database: %w", err)
	}
	reg := registry.NewRegistry(db)
	defer reg.Close()

	server := statusapi.NewServer(reg, servePort, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down status server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
