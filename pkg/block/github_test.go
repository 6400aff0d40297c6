package block

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/ghnotify/internal/testutil"
	"github.com/Sternrassler/ghnotify/pkg/client"
	"github.com/Sternrassler/ghnotify/pkg/format"
	"github.com/Sternrassler/ghnotify/pkg/widget"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

const testToken = "ghp_blocktesttoken"

func lookupToken(token string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if name != "GITHUB_TOKEN" || token == "" {
			return "", false
		}
		return token, true
	}
}

// newTestBlock creates a block against the mock server without request pacing.
func newTestBlock(t *testing.T, mock *testutil.MockGitHub, mutate func(*Config)) *Github {
	t.Helper()

	cfg := DefaultConfig()
	cfg.APIServer = mock.URL()
	if mutate != nil {
		mutate(&cfg)
	}

	g, err := New(cfg,
		WithLookupEnv(lookupToken(testToken)),
		WithClientConfig(func(c *client.Config) { c.RequestsPerSecond = 0 }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval)
	}
	if cfg.APIServer != "https://api.github.com" {
		t.Errorf("APIServer = %q", cfg.APIServer)
	}
	if cfg.Format != "{total}" {
		t.Errorf("Format = %q", cfg.Format)
	}
	if cfg.TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("TokenEnv = %q", cfg.TokenEnv)
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		mutate    func(*Config)
		wantField string
		wantErr   error
	}{
		{
			name:      "missing credential",
			token:     "",
			wantField: "token_env",
			wantErr:   ErrMissingCredential,
		},
		{
			name:      "unknown placeholder",
			token:     testToken,
			mutate:    func(c *Config) { c.Format = "{total} {bogus}" },
			wantField: "format",
			wantErr:   format.ErrUnknownPlaceholder,
		},
		{
			name:      "zero interval",
			token:     testToken,
			mutate:    func(c *Config) { c.Interval = 0 },
			wantField: "interval",
		},
		{
			name:      "invalid api server",
			token:     testToken,
			mutate:    func(c *Config) { c.APIServer = "not a url" },
			wantField: "api_server",
		},
		{
			name:      "page size too large",
			token:     testToken,
			mutate:    func(c *Config) { c.PerPage = 101 },
			wantField: "per_page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGitHub()
			defer mock.Close()

			cfg := DefaultConfig()
			cfg.APIServer = mock.URL()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			g, err := New(cfg, WithLookupEnv(lookupToken(tt.token)))
			if g != nil {
				t.Error("New() returned a block on error")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want wrapped %v", err, tt.wantErr)
			}
			if got := mock.GetRequestCount(); got != 0 {
				t.Errorf("server saw %d requests during New, want 0", got)
			}
		})
	}
}

func TestNew_InitialWidget(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	g := newTestBlock(t, mock, nil)

	view := g.View()
	if len(view) != 1 {
		t.Fatalf("View() returned %d widgets, want 1", len(view))
	}
	if view[0].Text() != Unavailable || view[0].Icon() != Icon {
		t.Errorf("initial widget = %q/%q, want %q/%q", view[0].Text(), view[0].Icon(), Unavailable, Icon)
	}
	if len(g.ID()) != 32 || strings.Contains(g.ID(), "-") {
		t.Errorf("ID() = %q, want 32 hex chars", g.ID())
	}
	if g.State() != StateIdle {
		t.Errorf("State() = %v, want idle", g.State())
	}
	if mock.GetRequestCount() != 0 {
		t.Error("New must not contact the server")
	}
}

func TestUpdate_Success(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetNotificationPages(
		[]string{"mention", "author"},
		[]string{"mention"},
	)

	g := newTestBlock(t, mock, func(c *Config) { c.Format = "{total} ({mention})" })

	interval, err := g.Update(context.Background())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", interval)
	}
	if got := g.View()[0].Text(); got != "3 (2)" {
		t.Errorf("text = %q, want %q", got, "3 (2)")
	}
	if g.State() != StateDisplaying {
		t.Errorf("State() = %v, want displaying", g.State())
	}
	if g.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", g.LastError())
	}

	status := g.Status()
	if status.Counts == nil || status.Counts.Total != 3 || status.LastPoll == nil {
		t.Errorf("Status() = %+v", status)
	}
}

func TestUpdate_ReasonNamedTotal(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetNotificationPages([]string{"total", "mention", "mention"})

	g := newTestBlock(t, mock, nil)
	if _, err := g.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := g.View()[0].Text(); got != "3" {
		t.Errorf("text = %q, want %q", got, "3")
	}

	counts := g.Status().Counts
	if counts == nil || counts.Total != 3 || counts.ByReason["total"] != 1 || counts.ByReason["mention"] != 2 {
		t.Errorf("Status().Counts = %+v, want total 3 with a separate total reason of 1", counts)
	}

	if got := promtestutil.ToFloat64(notificationsTotal.WithLabelValues(g.ID())); got != 3 {
		t.Errorf("ghnotify_notifications_total = %v, want 3", got)
	}
	if got := promtestutil.ToFloat64(notificationsGauge.WithLabelValues(g.ID(), "total")); got != 1 {
		t.Errorf(`ghnotify_notifications{reason="total"} = %v, want 1`, got)
	}
}

func TestUpdate_FailureShowsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		fail func(*testutil.MockGitHub)
	}{
		{
			name: "first request unauthorized",
			fail: func(m *testutil.MockGitHub) { m.FailPage(1, testutil.NewUnauthorizedResponse()) },
		},
		{
			name: "second page server error",
			fail: func(m *testutil.MockGitHub) { m.FailPage(2, testutil.NewServerErrorResponse()) },
		},
		{
			name: "malformed body",
			fail: func(m *testutil.MockGitHub) {
				m.FailPage(1, testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"not":"a list"}`})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGitHub()
			defer mock.Close()
			mock.SetNotificationPages([]string{"mention"}, []string{"author"})
			tt.fail(mock)

			g := newTestBlock(t, mock, nil)

			interval, err := g.Update(context.Background())
			if err != nil {
				t.Fatalf("Update() error = %v, want nil", err)
			}
			if interval != g.Interval() {
				t.Errorf("interval = %v, want %v", interval, g.Interval())
			}
			if got := g.View()[0].Text(); got != Unavailable {
				t.Errorf("text = %q, want %q", got, Unavailable)
			}
			if g.View()[0].State() != widget.StateWarning {
				t.Errorf("widget state = %q, want warning", g.View()[0].State())
			}
			if g.LastError() == nil {
				t.Error("LastError() = nil, want poll error")
			}
			if strings.Contains(g.LastError().Error(), testToken) {
				t.Error("poll error leaks the token")
			}
		})
	}
}

func TestUpdate_LogsRemoteMessage(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.FailPage(1, testutil.NewUnauthorizedResponse())

	var buf bytes.Buffer
	g, err := New(DefaultConfig(),
		WithLookupEnv(lookupToken(testToken)),
		WithClientConfig(func(c *client.Config) {
			c.APIServer = mock.URL()
			c.RequestsPerSecond = 0
		}),
		WithLogger(zerolog.New(&buf)),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer g.Close()

	if _, err := g.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	entry := findLogEntry(t, buf.String(), "Poll failed, showing "+Unavailable)
	if entry["remote_message"] != "Bad credentials" {
		t.Errorf("remote_message = %v, want %q", entry["remote_message"], "Bad credentials")
	}
	if entry["status"] != float64(http.StatusUnauthorized) {
		t.Errorf("status = %v, want 401", entry["status"])
	}
	if strings.Contains(buf.String(), testToken) {
		t.Error("log output leaks the token")
	}
}

// findLogEntry returns the JSON log entry whose message is msg.
func findLogEntry(t *testing.T, output, msg string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if entry["message"] == msg {
			return entry
		}
	}
	t.Fatalf("no log entry %q in %s", msg, output)
	return nil
}

func TestUpdate_RecoversAfterFailure(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	fail := true
	var mu sync.Mutex
	mock.SetHandler("/notifications", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(testutil.NotificationsBody("mention", "mention")))
	})

	g := newTestBlock(t, mock, nil)
	ctx := context.Background()

	g.Update(ctx)
	if got := g.View()[0].Text(); got != Unavailable {
		t.Fatalf("text after failure = %q", got)
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	g.Update(ctx)
	if got := g.View()[0].Text(); got != "2" {
		t.Errorf("text after recovery = %q, want 2", got)
	}
	if g.LastError() != nil {
		t.Errorf("LastError() = %v after recovery", g.LastError())
	}
}

func TestUpdate_RejectsOverlappingPoll(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	mock.SetHandler("/notifications", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte("[]"))
	})

	g := newTestBlock(t, mock, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Update(ctx)
	}()

	<-started
	if _, err := g.Update(ctx); !errors.Is(err, ErrPollInFlight) {
		t.Errorf("overlapping Update() error = %v, want ErrPollInFlight", err)
	}
	close(release)
	<-done

	if got := g.View()[0].Text(); got != "0" {
		t.Errorf("text = %q, want 0", got)
	}
}

func TestClick_NoOp(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	g := newTestBlock(t, mock, nil)
	if err := g.Click(widget.ClickEvent{Name: Name, Instance: g.ID(), Button: 1}); err != nil {
		t.Errorf("Click() error = %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Error("Click must not poll")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateFetching, "fetching"},
		{StateAggregating, "aggregating"},
		{StateRendering, "rendering"},
		{StateDisplaying, "displaying"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
