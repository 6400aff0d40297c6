// Package block implements the GitHub notifications status block: one poll
// walks the notification listing, counts it by reason and renders the
// counts into a text widget.
package block

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/ghnotify/pkg/aggregate"
	"github.com/Sternrassler/ghnotify/pkg/client"
	"github.com/Sternrassler/ghnotify/pkg/format"
	"github.com/Sternrassler/ghnotify/pkg/pagination"
	"github.com/Sternrassler/ghnotify/pkg/widget"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for poll cycles.
var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_polls_total",
		Help: "Total poll cycles by result",
	}, []string{"result"})

	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghnotify_poll_duration_seconds",
		Help:    "Duration of a full poll cycle in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	notificationsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghnotify_notifications",
		Help: "Notifications counted by the last successful poll by block and reason",
	}, []string{"block", "reason"})

	notificationsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghnotify_notifications_total",
		Help: "All notifications counted by the last successful poll by block",
	}, []string{"block"})
)

const (
	// Name identifies the block in the bar protocol.
	Name = "github"

	// Icon is the widget icon identifier.
	Icon = "github"

	// Unavailable is displayed until the first successful poll and after
	// every failed one.
	Unavailable = "N/A"
)

// ErrPollInFlight is returned by Update while another poll of the same block
// is running.
var ErrPollInFlight = errors.New("poll already in flight")

// Option configures a Github block.
type Option func(*options)

type options struct {
	lookupEnv func(string) (string, bool)
	redis     *redis.Client
	clientCfg func(*client.Config)
	logger    *zerolog.Logger
}

// WithLookupEnv replaces os.LookupEnv for reading the credential.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) {
		o.lookupEnv = fn
	}
}

// WithRedis enables the page cache and shared rate limit state.
func WithRedis(rdb *redis.Client) Option {
	return func(o *options) {
		o.redis = rdb
	}
}

// WithClientConfig adjusts the API client configuration before it is built.
func WithClientConfig(fn func(*client.Config)) Option {
	return func(o *options) {
		o.clientCfg = fn
	}
}

// WithLogger sets the block logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// Github is a status block showing GitHub notification counts.
type Github struct {
	id       string
	config   Config
	listOpts client.ListOptions
	client   *client.Client
	template *format.Template
	text     *widget.Text
	logger   zerolog.Logger

	// poll serializes Update calls
	poll  sync.Mutex
	state atomic.Int32

	mu         sync.RWMutex
	lastErr    error
	lastCounts *aggregate.Counts
	lastPoll   time.Time
}

// New creates a block. The credential is read once from the environment
// variable named by cfg.TokenEnv. No request is made until Update.
func New(cfg Config, opts ...Option) (*Github, error) {
	o := options{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	token, _ := o.lookupEnv(cfg.TokenEnv)
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ConfigError{Field: "token_env", Err: ErrMissingCredential}
	}

	tpl, err := format.New(cfg.Format)
	if err != nil {
		return nil, &ConfigError{Field: "format", Err: err}
	}

	clientCfg := client.DefaultConfig(token)
	clientCfg.APIServer = cfg.APIServer
	clientCfg.Redis = o.redis
	if o.clientCfg != nil {
		o.clientCfg(&clientCfg)
	}
	apiClient, err := client.New(clientCfg)
	if err != nil {
		return nil, &ConfigError{Field: "api_server", Err: err}
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	logger := log.With().Str("component", "github-block").Logger()
	if o.logger != nil {
		logger = *o.logger
	}
	logger = logger.With().Str("block_id", id).Logger()

	g := &Github{
		id:     id,
		config: cfg,
		listOpts: client.ListOptions{
			All:           cfg.All,
			Participating: cfg.Participating,
			PerPage:       cfg.PerPage,
			MaxPages:      cfg.MaxPages,
		},
		client:   apiClient,
		template: tpl,
		text:     widget.NewText(Name, id).WithText(Unavailable).WithIcon(Icon),
		logger:   logger,
	}

	logger.Info().
		Str("api_server", cfg.APIServer).
		Str("format", tpl.String()).
		Dur("interval", cfg.Interval).
		Msg("GitHub block created")

	return g, nil
}

// Update runs one poll cycle and returns the delay until the next one.
// Failures of the poll are absorbed: the widget shows Unavailable and the
// error is available from LastError. Only ErrPollInFlight is returned.
func (g *Github) Update(ctx context.Context) (time.Duration, error) {
	if !g.poll.TryLock() {
		pollsTotal.WithLabelValues("skipped").Inc()
		return g.config.Interval, ErrPollInFlight
	}
	defer g.poll.Unlock()

	start := time.Now()
	defer func() {
		pollDuration.Observe(time.Since(start).Seconds())
	}()

	g.setState(StateFetching)
	it := g.client.Notifications(g.listOpts)
	counts, err := aggregate.Fold(ctx, &phaseSource{src: it, g: g})

	if err != nil {
		g.fail(err, it.Pages())
		return g.config.Interval, nil
	}

	g.setState(StateRendering)
	rendered := g.template.Render(counts)

	g.setState(StateDisplaying)
	g.text.SetText(rendered)
	g.text.SetState(widget.StateIdle)
	g.record(counts, nil)

	notificationsGauge.DeletePartialMatch(prometheus.Labels{"block": g.id})
	for reason, n := range counts.ByReason {
		notificationsGauge.WithLabelValues(g.id, reason).Set(float64(n))
	}
	notificationsTotal.WithLabelValues(g.id).Set(float64(counts.Total))
	pollsTotal.WithLabelValues("success").Inc()

	g.logger.Info().
		Uint64("total", counts.Total).
		Int("pages", it.Pages()).
		Str("text", rendered).
		Dur("duration", time.Since(start)).
		Msg("Poll completed")

	return g.config.Interval, nil
}

func (g *Github) fail(err error, pages int) {
	g.setState(StateDisplaying)
	g.text.SetText(Unavailable)
	g.text.SetState(widget.StateWarning)
	g.record(nil, err)
	pollsTotal.WithLabelValues("error").Inc()

	event := g.logger.Warn().Err(err).Int("pages", pages)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		event = event.
			Int("status", apiErr.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("remote_message", apiErr.Message)
	}
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		event = event.Str("error_class", string(reqErr.Class))
	}
	if errors.Is(err, pagination.ErrMalformedPage) {
		event = event.Str("error_class", "parse")
	}

	event.Msg("Poll failed, showing " + Unavailable)
}

func (g *Github) record(counts *aggregate.Counts, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCounts = counts
	g.lastErr = err
	g.lastPoll = time.Now()
}

func (g *Github) setState(s State) {
	g.state.Store(int32(s))
}

// State returns the current poll phase.
func (g *Github) State() State {
	return State(g.state.Load())
}

// View returns the widgets of the block.
func (g *Github) View() []*widget.Text {
	return []*widget.Text{g.text}
}

// ID returns the unique block instance identifier.
func (g *Github) ID() string {
	return g.id
}

// Interval returns the configured poll interval.
func (g *Github) Interval() time.Duration {
	return g.config.Interval
}

// Click handles a bar click. The block has no click action.
func (g *Github) Click(event widget.ClickEvent) error {
	g.logger.Debug().Int("button", event.Button).Msg("Click ignored")
	return nil
}

// LastError returns the error of the last poll, nil after a success.
func (g *Github) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

// Close releases the API client.
func (g *Github) Close() error {
	return g.client.Close()
}

// phaseSource tracks the Fetching and Aggregating phases of a lazy walk.
type phaseSource struct {
	src aggregate.Source
	g   *Github
}

func (s *phaseSource) Next(ctx context.Context) (pagination.Notification, error) {
	s.g.setState(StateFetching)
	n, err := s.src.Next(ctx)
	if err == nil {
		s.g.setState(StateAggregating)
	}
	return n, err
}
