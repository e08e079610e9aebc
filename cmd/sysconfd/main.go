package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sysconfd/internal/action"
	"sysconfd/internal/api"
	av1 "sysconfd/internal/api/v1"
	"sysconfd/internal/audit"
	"sysconfd/internal/config"
	"sysconfd/internal/datastore"
	"sysconfd/internal/dispatcher"
	"sysconfd/internal/location"
	"sysconfd/internal/logger"
	"sysconfd/internal/ntp"
	"sysconfd/internal/passwd"
	"sysconfd/internal/state"
	"sysconfd/internal/system"
	"sysconfd/internal/timezone"
	"sysconfd/internal/tools"
	"sysconfd/internal/version"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func(l *zap.Logger) {
		_ = l.Sync()
	}(log)

	log.Info("sysconfd starting", version.GetInfo().Fields()...)

	if err := run(cfg, log); err != nil {
		log.Error("sysconfd stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize startup datastore
	store, err := datastore.New(&cfg.Datastore, log.Named("datastore"))
	if err != nil {
		return fmt.Errorf("failed to initialize datastore: %w", err)
	}
	defer store.Close()

	// Initialize audit sinks
	publisher, err := audit.New(&cfg.Audit, store, log.Named("audit"))
	if err != nil {
		return fmt.Errorf("failed to initialize audit sinks: %w", err)
	}
	defer publisher.Close()

	// Initialize system components
	host := system.Host{}
	runner := tools.ExecRunner{}
	osFs := &afero.OsFs{}
	clock := clockwork.NewRealClock()

	service := ntp.NewSystemdController(runner, cfg.NTP.Systemctl, cfg.NTP.Units, log.Named("ntp"))
	registry := ntp.NewRegistry(osFs, cfg.Paths.NTPConfig, service, log.Named("ntp"))
	defer registry.Close()

	disp := dispatcher.New(dispatcher.Deps{
		Host:        host,
		Passwd:      passwd.NewUpdater(osFs, cfg.Paths.PasswdFile, log.Named("passwd")),
		ContactUser: cfg.Contact.Username,
		Location:    location.NewStore(osFs, cfg.Paths.DataDir, log.Named("location")),
		Timezone:    timezone.NewManager(osFs, cfg.Paths.ZoneinfoDir, cfg.Paths.LocaltimeLink, log.Named("timezone")),
		NTP:         registry,
		Startup:     store,
		Audit:       publisher,
		Clock:       clock,
	}, log.Named("dispatcher"))

	executor := action.NewExecutor(host, runner, action.Commands{
		Restart:  cfg.Power.RestartCommand,
		Shutdown: cfg.Power.ShutdownCommand,
	}, log.Named("action"))

	// Bring the system in line with the startup configuration
	if err := disp.Start(ctx); err != nil {
		return fmt.Errorf("failed to apply startup configuration: %w", err)
	}

	// Initialize router
	router := api.NewRouter(&cfg.Server, av1.Services{
		Dispatcher: disp,
		State:      state.NewBuilder(host, clock, log.Named("state")),
		Actions:    executor,
		Journal:    store,
	}, log.Named("api"))
	server := api.NewServer(&cfg.Server, router)

	// Start server in background
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	log.Info("Starting graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Shutdown complete")
	return nil
}
