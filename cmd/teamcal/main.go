package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamcal/internal/backup"
	"teamcal/internal/blob"
	"teamcal/internal/capture"
	"teamcal/internal/config"
	appLog "teamcal/internal/log"
	"teamcal/internal/store"
	"teamcal/internal/web"
)

// flagConfig holds CLI flag values; CLI overrides win over the config file.
type flagConfig struct {
	configPath string
	listen     string
	dataPath   string
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()
	appLog.SetDebug(flags.debug)
	defer appLog.Sync()

	appLog.Info("teamcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataPath != "" {
		conf.DataPath = flags.dataPath
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_path", conf.DataPath,
		"backup_cron", conf.Backup.Cron,
		"backup_dir", conf.Backup.Dir,
		"categories", len(conf.Categories),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// The backing file is owned by the store for the whole session.
	handle, err := blob.NewFile(conf.DataPath)
	if err != nil {
		appLog.Error("failed to open backing file", err, "data_path", conf.DataPath)
		os.Exit(1)
	}
	st := store.New(handle)
	if err := st.Load(ctx); err != nil {
		appLog.Error("failed to load document", err, "data_path", conf.DataPath)
		os.Exit(1)
	}

	srv := web.NewServer(conf, st)

	// One-shot snapshot mode: serve, capture the month view as PNG, exit.
	if flags.snapshot != "" {
		if err := runSnapshot(ctx, conf, srv, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		appLog.Info("snapshot written", "output", flags.snapshot)
		return
	}

	backups := backup.New(st, conf.Backup.Dir, conf.Backup.Keep)
	if err := backups.Start(ctx, conf.Backup.Cron); err != nil {
		appLog.Error("failed to start backup scheduler", err)
		os.Exit(1)
	}

	if err := srv.Serve(ctx); err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("teamcal exiting")
}

// runSnapshot serves the month view long enough for headless Chromium to
// capture it.
func runSnapshot(ctx context.Context, conf *config.Config, srv *web.Server, output string) error {
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = srv.Serve(serveCtx)
	}()

	baseURL := "http://" + conf.Listen
	if err := waitHealthy(ctx, baseURL+"/health", 5*time.Second); err != nil {
		return err
	}

	now := time.Now()
	url := fmt.Sprintf("%s/?year=%d&month=%d", baseURL, now.Year(), int(now.Month()))
	return capture.MonthViewPNG(ctx, capture.Options{
		URL:        url,
		OutputPath: output,
	})
}

func waitHealthy(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("server at %s not healthy after %s", url, timeout)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./teamcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataPath, "data", "", "Path to the schedule JSON file (overrides config if set)")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the current month view to the given PNG path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
