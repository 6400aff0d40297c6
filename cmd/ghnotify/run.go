package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/ghnotify/pkg/block"
	"github.com/Sternrassler/ghnotify/pkg/config"
	"github.com/Sternrassler/ghnotify/pkg/logging"
	"github.com/Sternrassler/ghnotify/pkg/widget"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func runCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll GitHub and write the i3bar protocol to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runBar(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}
}

func onceCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll once and print the rendered text",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			g, closeAll, err := newBlock(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeAll()

			return runOnce(cmd.Context(), g, cmd.OutOrStdout())
		},
	}
}

// newBlock connects the optional Redis backend and builds the block.
func newBlock(ctx context.Context, cfg *config.Config, opts ...block.Option) (*block.Github, func(), error) {
	logger := logging.NewLogger("ghnotify")

	var rdb *redis.Client
	if redisOpts := cfg.RedisOptions(); redisOpts != nil {
		rdb = redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
		}
		logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
	}

	opts = append([]block.Option{
		block.WithRedis(rdb),
		block.WithClientConfig(cfg.ApplyClient),
	}, opts...)

	g, err := block.New(cfg.BlockConfig(), opts...)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, err
	}

	closeAll := func() {
		g.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
	return g, closeAll, nil
}

// runOnce polls once and prints the widget text. A failed poll prints the
// unavailable text and returns the poll error.
func runOnce(ctx context.Context, g *block.Github, out io.Writer) error {
	if _, err := g.Update(ctx); err != nil {
		return err
	}
	for _, w := range g.View() {
		fmt.Fprintln(out, w.Text())
	}
	if err := g.LastError(); err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}
	return nil
}

// runBar drives the block from a cron schedule and renders every refresh to
// out until ctx is cancelled.
func runBar(ctx context.Context, cfg *config.Config, out io.Writer, in io.Reader) error {
	logger := logging.NewLogger("scheduler")

	g, closeAll, err := newBlock(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	bar := widget.NewWriter(out, true)
	refresh := func() {
		if err := bar.WriteLine(blocksOf(g)); err != nil {
			logger.Error().Err(err).Msg("Failed to write status line")
		}
	}
	refresh()

	poll := func() {
		if _, err := g.Update(ctx); err != nil {
			logger.Debug().Err(err).Msg("Poll skipped")
			return
		}
		refresh()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	c.Schedule(cron.Every(cfg.Interval), cron.FuncJob(poll))

	if in != nil {
		go func() {
			err := widget.ReadClickEvents(in, func(e widget.ClickEvent) {
				if e.Instance != g.ID() {
					return
				}
				if err := g.Click(e); err != nil {
					logger.Warn().Err(err).Msg("Click handler failed")
				}
			})
			if err != nil {
				logger.Warn().Err(err).Msg("Click event stream closed")
			}
		}()
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newDiagRouter(g),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Starting diagnostics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Diagnostics server failed")
			}
		}()
	}

	logger.Info().
		Dur("interval", cfg.Interval).
		Str("block_id", g.ID()).
		Msg("Scheduler started")

	var initial sync.WaitGroup
	initial.Add(1)
	go func() {
		defer initial.Done()
		poll()
	}()
	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()
	initial.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Diagnostics server shutdown failed")
		}
	}

	logger.Info().Msg("Scheduler stopped")
	return nil
}

func blocksOf(g *block.Github) []widget.Block {
	view := g.View()
	blocks := make([]widget.Block, 0, len(view))
	for _, w := range view {
		blocks = append(blocks, w.Block())
	}
	return blocks
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

var _ cron.Logger = cronLogger{}
