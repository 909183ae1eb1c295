package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/imzeyn/mockhost"
	"github.com/imzeyn/mockhost/internal/config"
	"github.com/imzeyn/mockhost/internal/logging"
	"github.com/imzeyn/mockhost/internal/projects"
)

// Version is injected during build.
var Version = "dev"

type serveFlags struct {
	configFile     string
	listenAddress  string
	maxConnections int
	projectsDir    string
	logLevel       string
	metricsAddress string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mockhost",
		Short:         "mockhost stores project configs and serves the mock endpoints they describe",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mockhost version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mockhost", Version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&f.listenAddress, "listen", config.DefaultListenAddress, "address to accept connections on")
	flags.IntVar(&f.maxConnections, "workers", config.DefaultMaxConnections, "connections handled at the same time")
	flags.StringVar(&f.projectsDir, "projects-dir", config.DefaultProjectsDir, "directory holding <project>.json files")
	flags.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn, error or none")
	flags.StringVar(&f.metricsAddress, "metrics-listen", "", "serve Prometheus metrics on this address")

	return cmd
}

// loadConfig reads the config file and applies the flags the user set
// explicitly on top of it.
func loadConfig(cmd *cobra.Command, f serveFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.ListenAddress = f.listenAddress
	}
	if flags.Changed("workers") {
		cfg.Server.MaxConnections = f.maxConnections
	}
	if flags.Changed("projects-dir") {
		cfg.Projects.Dir = f.projectsDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.ListenAddress = f.metricsAddress
	}

	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, closer := logging.New(logging.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	defer closer.Close()

	store, err := projects.NewStore(cfg.Projects.Dir)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := mockhost.NewMetrics(reg)
	if cfg.Metrics.ListenAddress != "" {
		serveMetrics(cfg.Metrics.ListenAddress, reg, logger)
	}

	server := mockhost.NewServer(mockhost.ServerConf{
		MaxConnections: cfg.Server.MaxConnections,
		ReadTimeout:    cfg.Server.ReadTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Serialize:      cfg.Server.Serialize,
		Logger:         log.With(logger, "component", "server"),
		Metrics:        metrics,
	})
	projects.Register(server, projects.NewHandlers(store, log.With(logger, "component", "projects")))

	return server.Listen(ctx, cfg.Server.ListenAddress)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		level.Info(logger).Log("event", "metrics http endpoint starting", "address", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			level.Error(logger).Log("event", "unable to start metrics http server", "detail", err.Error())
			os.Exit(1)
		}
	}()
}
