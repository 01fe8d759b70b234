package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ledgerchat/internal/ledger"
	"ledgerchat/internal/log"
	"ledgerchat/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var cfgFile string
	cmd := &cobra.Command{
		Use:          "ledgerd",
		Short:        "Serve the ledgerchat ledger over HTTP",
		Version:      versioninfo.Short(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &Config{}
			if cfgFile != "" {
				var err error
				if cfg, err = LoadFile(cfgFile); err != nil {
					return fmt.Errorf("failed to load config file '%v': %w", cfgFile, err)
				}
			} else if err := cfg.FixupAndValidate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "f", "", "path to the ledgerd config file")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger := backend.GetLogger("ledgerd")

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	l, err := ledger.Open(cfg.LedgerPath(), backend.GetLogger("ledger"))
	if err != nil {
		return err
	}
	defer l.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           relay.NewServer(l, backend.GetLogger("http"), reg),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ErrorLog:          backend.GetGoLogger("http", "WARNING"),
	}

	// Setup the signal handling.
	haltCh := make(chan os.Signal, 1)
	signal.Notify(haltCh, os.Interrupt, syscall.SIGTERM)
	rotateCh := make(chan os.Signal, 1)
	signal.Notify(rotateCh, syscall.SIGHUP)
	defer signal.Stop(haltCh)
	defer signal.Stop(rotateCh)

	errCh := make(chan error, 1)
	go func() {
		logger.Noticef("ledgerd %s listening on %s", versioninfo.Short(), cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-rotateCh:
			if err := backend.Rotate(); err != nil {
				logger.Errorf("failed to rotate log file: %v", err)
			}
		case <-haltCh:
			logger.Notice("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := srv.Shutdown(ctx)
			cancel()
			return err
		}
	}
}
