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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zabeloliver/wethermo-remote/display"
	"github.com/zabeloliver/wethermo-remote/panel"
	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoClient"
)

var (
	sugar      *zap.SugaredLogger
	configPath string
	logPath    string
	metrics    *PrometheusMetrics
)

func NewLogger(logPath string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	if logPath != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logPath)
	}
	return cfg.Build()
}

func initLogger() {
	logger, err := NewLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
		os.Exit(1)
	}
	sugar = logger.Sugar()
}

func initCliFlags() {
	flag.StringVar(&configPath, "configFile", "config.yaml", "Path to the config.yaml File.")
	flag.StringVar(&logPath, "logFile", "wethermo_remote.log", "Log file written next to stdout. Empty disables it.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] info|off|auto|heat|display|watch|serve\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
}

func newRegistry() *prometheus.Registry {
	sugar.Info("Creating Metrics-Registry")
	// Create a non-global registry.
	reg := prometheus.NewRegistry()

	sugar.Info("Registering Metrics")
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewGoCollector())
	metrics = NewWethermoMetrics(reg)
	return reg
}

func newController(cfg config, region display.Region) *display.Controller {
	client := wethermoClient.NewWethermoApiClient(cfg.Wethermo.Host, cfg.timeout(), sugar)
	ctrl := display.NewController(client, region, sugar)
	if metrics != nil {
		ctrl.OnStatus = metrics.writeStatusToMetricsRegistry
		ctrl.OnAck = metrics.writeAckToMetricsRegistry
		ctrl.OnFailure = metrics.writeFailureToMetricsRegistry
	}
	return ctrl
}

// once runs a single operation and waits for it. The exit code is 1 when
// the thermostat could not be reached or answered with an error.
func once(ctx context.Context, cfg config, op string) int {
	ctrl := newController(cfg, display.NewTerminal(cfg.Display.Region, os.Stdout))
	failed := false
	ctrl.OnFailure = func(string, error) { failed = true }

	done, err := ctrl.Invoke(ctx, op)
	if err != nil {
		sugar.Error(err)
		flag.Usage()
		return 2
	}
	<-done
	if failed {
		return 1
	}
	return 0
}

// watch fetches the status report every interval and serves the metrics
// until ctx is cancelled.
func watch(ctx context.Context, cfg config) error {
	reg := newRegistry()
	ctrl := newController(cfg, display.NewTerminal(cfg.Display.Region, os.Stdout))

	mux := http.NewServeMux()
	// Expose metrics and custom registry via an HTTP server
	// using the HandleFor function. "/metrics" is the usual endpoint for that.
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsPath := ":" + cfg.Metrics.Port
	sugar.Infof("Metrics served at: %v", metricsPath)

	go poll(ctx, ctrl, cfg.interval())

	return listen(ctx, &http.Server{Addr: metricsPath, Handler: mux})
}

// poll fetches the status report right away and then on every tick.
// Fetches are not awaited, a slow thermostat may have several in flight.
func poll(ctx context.Context, ctrl *display.Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctrl.FetchStatus(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ctrl.FetchStatus(ctx)
		}
	}
}

// serve runs the control panel until ctx is cancelled.
func serve(ctx context.Context, cfg config) error {
	gin.SetMode(gin.ReleaseMode)
	reg := newRegistry()

	hub := panel.NewHub(sugar)
	go hub.Run(ctx)

	region := display.NewBuffer(cfg.Display.Region, hub.Publish)
	srv := panel.New(ctx, newController(cfg, region), hub, reg, sugar)

	sugar.Infof("Panel served at: %v", cfg.Panel.Addr)
	return listen(ctx, &http.Server{Addr: cfg.Panel.Addr, Handler: srv.Handler()})
}

func listen(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		sugar.Info("Catch Keyboard interrupt")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func main() {
	initCliFlags()
	initLogger()
	defer sugar.Sync() // flushes buffer, if any

	initConfig(viper.GetViper(), configPath, sugar)
	cfg := loadConfig(viper.GetViper())

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infof("Starting wethermo-remote against %s", cfg.Wethermo.Host)
	switch cmd := flag.Arg(0); cmd {
	case "watch":
		if err := watch(ctx, cfg); err != nil {
			sugar.Fatal(err)
		}
	case "serve":
		if err := serve(ctx, cfg); err != nil {
			sugar.Fatal(err)
		}
	default:
		code := once(ctx, cfg, cmd)
		sugar.Sync()
		os.Exit(code)
	}
}
