package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cpuload-view/internal/sample"
)

var upgrader = websocket.Upgrader{}

// streamServer pushes each message once the client connects, then holds the
// connection open until the client goes away or close is requested.
func streamServer(t *testing.T, messages []string, closeAfter bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultStreamPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if closeAfter {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStreamerDeliversMessages(t *testing.T) {
	srv := streamServer(t, []string{`[12.5, 87.0]`, `[]`}, false)
	defer srv.Close()

	url, err := StreamURL(srv.URL+"/page", DefaultStreamPath)
	if err != nil {
		t.Fatalf("StreamURL: %v", err)
	}
	s := NewStreamer(StreamerConfig{URL: url})
	c := newCollector()
	if err := s.Start(context.Background(), c.onSample, c.onError); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := c.nextSample(t)
	if len(first) != 2 || first[0] != 12.5 || first[1] != 87 {
		t.Fatalf("unexpected first sample %v", first)
	}
	if second := c.nextSample(t); len(second) != 0 {
		t.Fatalf("expected empty sample, got %v", second)
	}
	if s.State() != Open {
		t.Fatalf("expected open state, got %v", s.State())
	}
	s.Stop()
	if s.State() != Closed {
		t.Fatalf("expected closed after stop, got %v", s.State())
	}
}

func TestStreamerMalformedMessageKeepsStreaming(t *testing.T) {
	srv := streamServer(t, []string{`not json`, `[5]`}, false)
	defer srv.Close()

	url, _ := StreamURL(srv.URL, DefaultStreamPath)
	s := NewStreamer(StreamerConfig{URL: url})
	c := newCollector()
	if err := s.Start(context.Background(), c.onSample, c.onError); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if err := c.nextError(t); !errors.Is(err, sample.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if got := c.nextSample(t); len(got) != 1 || got[0] != 5 {
		t.Fatalf("unexpected sample %v", got)
	}
}

func TestStreamerDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	url, _ := StreamURL(srv.URL, DefaultStreamPath)
	s := NewStreamer(StreamerConfig{URL: url})
	c := newCollector()
	if err := s.Start(context.Background(), c.onSample, c.onError); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if err := c.nextError(t); !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected bad handshake, got %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for s.State() != Errored && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != Errored {
		t.Fatalf("expected errored state, got %v", s.State())
	}
}

func TestStreamerServerCloseWithoutReconnect(t *testing.T) {
	srv := streamServer(t, []string{`[1]`}, true)
	defer srv.Close()

	url, _ := StreamURL(srv.URL, DefaultStreamPath)
	states := make(chan State, 16)
	s := NewStreamer(StreamerConfig{URL: url, OnState: func(st State) { states <- st }})
	c := newCollector()
	if err := s.Start(context.Background(), c.onSample, c.onError); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	c.nextSample(t)
	want := []State{Connecting, Open, Closed}
	for _, w := range want {
		select {
		case got := <-states:
			if got != w {
				t.Fatalf("expected state %v, got %v", w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state %v", w)
		}
	}
}

func TestStreamerReconnects(t *testing.T) {
	srv := streamServer(t, []string{`[42]`}, true)
	defer srv.Close()

	url, _ := StreamURL(srv.URL, DefaultStreamPath)
	s := NewStreamer(StreamerConfig{URL: url, Reconnect: true, ReconnectDelay: 10 * time.Millisecond})
	c := newCollector()
	if err := s.Start(context.Background(), c.onSample, c.onError); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	for i := 0; i < 3; i++ {
		if got := c.nextSample(t); len(got) != 1 || got[0] != 42 {
			t.Fatalf("connection %d: unexpected sample %v", i, got)
		}
	}
}
