package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"cpuload-view/internal/admin"
	"cpuload-view/internal/config"
	"cpuload-view/internal/logging"
	"cpuload-view/internal/metrics"
	"cpuload-view/internal/view"
)

var (
	watchMode           string
	watchOutput         string
	watchInterval       time.Duration
	watchHTMLPath       string
	watchStatusAddr     string
	watchReconnect      bool
	watchReconnectDelay time.Duration
	watchTimeout        time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Render live CPU load bars",
	Long:  "watch streams (push) or polls (poll) CPU load samples and re-renders the bars on every sample.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyWatchFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runWatch(cfg)
	},
}

// applyWatchFlags overrides cfg with the watch flags set on the command line.
func applyWatchFlags(cmd *cobra.Command, cfg *config.ViewConfig) {
	if cmd.Flags().Changed("mode") {
		cfg.Mode = watchMode
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = watchOutput
	}
	if cmd.Flags().Changed("html-path") {
		cfg.HTMLPath = watchHTMLPath
	}
	if cmd.Flags().Changed("status-addr") {
		cfg.StatusAddr = watchStatusAddr
	}
	if cmd.Flags().Changed("reconnect") {
		cfg.Reconnect.Enabled = watchReconnect
	}
	durationFlag(cmd, "interval", watchInterval, &cfg.PollInterval)
	durationFlag(cmd, "reconnect-delay", watchReconnectDelay, &cfg.Reconnect.Delay)
	durationFlag(cmd, "request-timeout", watchTimeout, &cfg.RequestTimeout)
}

func runWatch(cfg *config.ViewConfig) error {
	tty := stdoutIsTerminal()
	output := resolveOutput(cfg.Output, tty)

	logger, closeLog, err := newLogger(cfg, output)
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	rec := metrics.NewPromMetrics(reg)

	display, tui, cleanup, err := newSink(cfg, output, tty)
	if err != nil {
		return err
	}
	defer cleanup()

	surface := view.NewSurface()
	v := view.New(view.NewMultiSink(surface, display), view.WithLogger(logger), view.WithRecorder(rec))
	sources, err := newSources(cfg, rec, v.StateChanged)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.NewContext(ctx, logger)

	if err := v.Use(ctx, sources[cfg.Mode]); err != nil {
		return err
	}
	defer v.Stop()

	var quit <-chan struct{}
	if tui != nil {
		quit = tui.Done()
		tui.SetToggle(func() {
			active := v.Active()
			if active == nil {
				return
			}
			next := otherMode(active.Strategy())
			if err := v.Use(ctx, sources[next]); err != nil {
				logger.Error("switch source", "mode", next, "err", err)
			}
		})
	}

	if cfg.StatusAddr != "" {
		srv := admin.NewServer(v, surface, reg, cfg.HTMLRefresh)
		go func() {
			logger.Info("status server listening", "addr", cfg.StatusAddr)
			if err := srv.Start(ctx, cfg.StatusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "err", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case <-quit:
	}
	logger.Info("viewer stopped")
	return nil
}

func init() {
	watchCmd.Flags().StringVar(&watchMode, "mode", config.ModePush, "Data acquisition mode: push (WebSocket) or poll (HTTP)")
	watchCmd.Flags().StringVar(&watchOutput, "output", config.OutputAuto, "Output: auto, tui, text, json or html")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 200*time.Millisecond, "Poll interval (e.g. 200ms, 1s)")
	watchCmd.Flags().StringVar(&watchHTMLPath, "html-path", "cpuload.html", "Document rewritten by the html output")
	watchCmd.Flags().StringVar(&watchStatusAddr, "status-addr", "", "Serve the current view, /status and /metrics on this address")
	watchCmd.Flags().BoolVar(&watchReconnect, "reconnect", false, "Redial the stream after the connection drops")
	watchCmd.Flags().DurationVar(&watchReconnectDelay, "reconnect-delay", time.Second, "Delay before redialing the stream")
	watchCmd.Flags().DurationVar(&watchTimeout, "request-timeout", 0, "Per-request timeout for polling (0 disables)")
}
