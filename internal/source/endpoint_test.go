package source

import "testing"

func TestStreamURL(t *testing.T) {
	cases := []struct{ origin, want string }{
		{"https://host/page", "wss://host/rt/cpus"},
		{"http://host/page", "ws://host/rt/cpus"},
		{"http://localhost:8081/", "ws://localhost:8081/rt/cpus"},
		{"https://host/a/b?x=1#frag", "wss://host/rt/cpus"},
		{"ws://host/", "ws://host/rt/cpus"},
	}
	for _, c := range cases {
		got, err := StreamURL(c.origin, DefaultStreamPath)
		if err != nil {
			t.Fatalf("StreamURL(%q): %v", c.origin, err)
		}
		if got != c.want {
			t.Fatalf("StreamURL(%q) = %q, want %q", c.origin, got, c.want)
		}
	}
}

func TestPollURL(t *testing.T) {
	cases := []struct{ origin, want string }{
		{"http://host/page", "http://host/api/cpus"},
		{"https://host:8443/x/y", "https://host:8443/api/cpus"},
		{"wss://host/", "https://host/api/cpus"},
	}
	for _, c := range cases {
		got, err := PollURL(c.origin, DefaultPollPath)
		if err != nil {
			t.Fatalf("PollURL(%q): %v", c.origin, err)
		}
		if got != c.want {
			t.Fatalf("PollURL(%q) = %q, want %q", c.origin, got, c.want)
		}
	}
}

func TestEndpointRejectsBadOrigin(t *testing.T) {
	for _, origin := range []string{"file:///tmp/index.html", "host/page", "http://", "::"} {
		if _, err := StreamURL(origin, DefaultStreamPath); err == nil {
			t.Fatalf("expected error for origin %q", origin)
		}
	}
}
