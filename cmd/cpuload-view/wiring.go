package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/term"

	"cpuload-view/internal/config"
	"cpuload-view/internal/logging"
	"cpuload-view/internal/metrics"
	"cpuload-view/internal/source"
	"cpuload-view/internal/view"
)

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// resolveOutput turns "auto" into the TUI on a terminal and plain text otherwise.
func resolveOutput(output string, tty bool) string {
	if output != config.OutputAuto {
		return output
	}
	if tty {
		return config.OutputTUI
	}
	return config.OutputText
}

// newSink builds the display sink for output. tui is non-nil only for the TUI.
func newSink(cfg *config.ViewConfig, output string, tty bool) (sink view.Sink, tui *view.TUISink, cleanup func(), err error) {
	cleanup = func() {}
	switch output {
	case config.OutputTUI:
		tui = view.NewTUISink(cfg.Origin)
		return tui, tui, func() { tui.Close() }, nil
	case config.OutputText:
		return view.NewTextSink(tty, tty, cfg.BarWidth), nil, cleanup, nil
	case config.OutputJSON:
		return view.NewJSONSink(nil), nil, cleanup, nil
	case config.OutputHTML:
		return view.NewHTMLSink(cfg.HTMLPath, cfg.HTMLRefresh), nil, cleanup, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown output %q", output)
}

// newLogger picks the log destination. The TUI owns the screen, so without a
// log file its logs are dropped.
func newLogger(cfg *config.ViewConfig, output string) (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return logging.New(f, level), func() { f.Close() }, nil
	}
	var w io.Writer = os.Stderr
	if output == config.OutputTUI {
		w = io.Discard
	}
	return logging.New(w, level), func() {}, nil
}

// newSources builds both adapters keyed by mode; only one runs at a time.
func newSources(cfg *config.ViewConfig, rec metrics.Recorder, onState func(string, source.State)) (map[string]source.Source, error) {
	pollURL, err := source.PollURL(cfg.Origin, cfg.APIPath)
	if err != nil {
		return nil, err
	}
	streamURL, err := source.StreamURL(cfg.Origin, cfg.StreamPath)
	if err != nil {
		return nil, err
	}
	poller := source.NewPoller(source.PollerConfig{
		URL:      pollURL,
		Interval: cfg.PollInterval,
		Client:   &http.Client{Timeout: cfg.RequestTimeout},
		Recorder: rec,
		OnState:  func(st source.State) { onState(config.ModePoll, st) },
	})
	streamer := source.NewStreamer(source.StreamerConfig{
		URL:            streamURL,
		Reconnect:      cfg.Reconnect.Enabled,
		ReconnectDelay: cfg.Reconnect.Delay,
		Recorder:       rec,
		OnState:        func(st source.State) { onState(config.ModePush, st) },
	})
	return map[string]source.Source{
		config.ModePoll: poller,
		config.ModePush: streamer,
	}, nil
}

// otherMode flips between polling and streaming.
func otherMode(mode string) string {
	if mode == config.ModePoll {
		return config.ModePush
	}
	return config.ModePoll
}
