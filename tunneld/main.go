package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/minizivpn/tunneld/api"
	"github.com/minizivpn/tunneld/config"
	"github.com/minizivpn/tunneld/logging"
	"github.com/minizivpn/tunneld/metrics"
	"github.com/minizivpn/tunneld/probe"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version    string
	configPath string
	socketPath string
)

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	flag.StringVar(&configPath, "config", getenv("TUNNELD_CONFIG", "/etc/tunneld/tunneld.yaml"), "path to tunneld.yaml")
	flag.StringVar(&socketPath, "socket", getenv("TUNNELD_SOCKET", ""), "path to tunneld socket (overrides api.socket)")

	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(conf.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if socketPath == "" {
		socketPath = conf.API.Socket
	}

	logger.Info("starting tunneld",
		zap.String("version", version),
		zap.Int("uid", os.Getuid()),
		zap.String("config", configPath),
	)

	configs := config.Loaded(configPath, conf, logger.Named("config"))

	m := metrics.New()

	source, err := probe.NewSource(conf.Probe)
	if err != nil {
		return err
	}

	prober := probe.NewProber(source, conf.Probe.Interval, logger.Named("probe"),
		probe.WithTimeout(conf.Probe.Timeout),
		probe.WithMetrics(m),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	server := api.NewServer(configs, prober, cancel, version, logger.Named("api"), m)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return configs.Run(ctx, reload)
	})

	g.Go(func() error {
		return prober.Run(ctx)
	})

	g.Go(func() error {
		return server.Run(ctx, socketPath)
	})

	if conf.Metrics.Listen != "" {
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", conf.Metrics.Listen))
			return m.ListenAndServe(ctx, conf.Metrics.Listen)
		})
	}

	err = g.Wait()

	logger.Info("tunneld stopped")

	return multierr.Combine(err, removeSocket(socketPath))
}

func removeSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket: %w", err)
	}
	return nil
}
