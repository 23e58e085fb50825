package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cpuload-view/internal/logging"
	"cpuload-view/internal/metrics"
)

// DefaultReconnectDelay applies when reconnection is enabled without a delay.
const DefaultReconnectDelay = time.Second

// StreamerConfig configures a Streamer.
type StreamerConfig struct {
	URL string
	// Dialer defaults to a dialer without handshake timeout.
	Dialer *websocket.Dialer
	Header http.Header
	// Reconnect redials after ReconnectDelay when the connection is lost.
	Reconnect      bool
	ReconnectDelay time.Duration
	Recorder       metrics.Recorder
	OnState        StateFunc
}

// Streamer receives samples pushed over a WebSocket connection.
type Streamer struct {
	runner
	url       string
	dialer    *websocket.Dialer
	header    http.Header
	reconnect bool
	delay     time.Duration
}

// NewStreamer creates a Streamer. It does not dial until Start.
func NewStreamer(cfg StreamerConfig) *Streamer {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	s := &Streamer{
		url:       cfg.URL,
		dialer:    dialer,
		header:    cfg.Header,
		reconnect: cfg.Reconnect,
		delay:     delay,
	}
	s.runner.state = Closed
	s.runner.onState = cfg.OnState
	s.runner.recorder = recorderOrNop(cfg.Recorder)
	return s
}

// Strategy implements Source.
func (s *Streamer) Strategy() string { return "push" }

// Start dials in the background; dial failures are reported to onError.
func (s *Streamer) Start(ctx context.Context, onSample SampleFunc, onError ErrorFunc) error {
	return s.launch(ctx, func(ctx context.Context) {
		s.loop(ctx, onSample, onError)
	})
}

// Stop closes the connection and waits for the read loop to exit.
func (s *Streamer) Stop() { s.stop() }

func (s *Streamer) loop(ctx context.Context, onSample SampleFunc, onError ErrorFunc) {
	log := logging.FromContext(ctx).With("strategy", "push", "url", s.url)
	for {
		err := s.session(ctx, log, onSample, onError)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.recorder.IncCounter(metrics.StreamDrops, 1)
			s.setState(Errored)
			onError(err)
		} else {
			log.Info("stream closed by server")
			s.setState(Closed)
		}
		if !s.reconnect {
			return
		}
		log.Info("reconnecting", "delay", s.delay)
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		s.setState(Connecting)
	}
}

// session runs one connection. A nil error means a normal close by the server.
func (s *Streamer) session(ctx context.Context, log *slog.Logger, onSample SampleFunc, onError ErrorFunc) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", s.url, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Info("stream open")
	s.setState(Open)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read %s: %w", s.url, err)
		}
		s.deliver(payload, onSample, onError)
	}
}
