package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/admin"
	"github.com/getimposd/imposd/pkg/cli/internal/output"
	"github.com/getimposd/imposd/pkg/config"
	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/logging"
	"github.com/getimposd/imposd/pkg/snapshot"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// logRingCapacity bounds how many records GET /logs can serve back.
const logRingCapacity = 1000

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals = config.Default()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the imposd server (foreground)",
	Long: `Start the management API and serve imposters.

Imposter files given with --configfile load before the API starts
listening. Each file may be JSON or YAML, and patterns may use globs,
including ** for recursive directory matching. Environment variable
references like ${HOST:-localhost} are expanded inside the files.`,
	Example: `  # Start on the default management port
  imposd serve

  # Custom port, loading imposters from a file
  imposd serve --port 3535 --configfile imposters.json

  # Load a directory tree of imposter files, allowing inject
  imposd serve --configfile 'mocks/**/*.yaml' --allow-injection`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(&serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().IntVarP(&f.AdminPort, "port", "p", config.DefaultAdminPort, "management API port")
	serveCmd.Flags().StringVar(&f.AdminHost, "host", "", "management API bind address (default all interfaces)")
	serveCmd.Flags().StringArrayVarP(&f.ConfigFiles, "configfile", "c", nil, "imposter file or glob pattern to load at startup (repeatable)")
	serveCmd.Flags().BoolVar(&f.AllowInjection, "allow-injection", false, "enable inject predicates and inject responses")
	serveCmd.Flags().StringVar(&f.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.LogFormat, "logformat", "text", "log format (text, json)")
}

func runServe(cfg *config.ServerConfig) error {
	ring := logging.NewRingHandler(logRingCapacity, logging.ParseLevel(cfg.LogLevel))
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Ring:   ring,
	})

	reg := engine.NewRegistry(
		engine.WithLogger(log),
		engine.WithInjection(cfg.AllowInjection),
	)

	if len(cfg.ConfigFiles) > 0 {
		doc, err := config.LoadImposters(cfg.ConfigFiles)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		created, err := snapshot.Restore(ctx, reg, doc)
		cancel()
		if err != nil {
			return fmt.Errorf("loading imposters: %w", err)
		}
		log.Info("imposters loaded", "count", len(created))
	}

	srv := admin.NewServer(reg, cfg.AdminPort,
		admin.WithHost(cfg.AdminHost),
		admin.WithLogger(log),
		admin.WithVersion(buildInfo.Version),
		admin.WithOptions(cfg.Options()),
		admin.WithLogRing(ring),
	)
	if err := srv.Start(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := reg.Close(shutdownCtx); cerr != nil {
			output.Warn("imposter shutdown error: %v", cerr)
		}
		return err
	}

	displayHost := cfg.AdminHost
	if displayHost == "" {
		displayHost = "localhost"
	}
	fmt.Printf("imposd %s listening - management API at http://%s:%d/\n",
		buildInfo.Version, displayHost, srv.Port())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		output.Warn("management API shutdown error: %v", err)
	}
	if err := reg.Close(shutdownCtx); err != nil {
		output.Warn("imposter shutdown error: %v", err)
	}

	fmt.Println("Server stopped")
	return nil
}
