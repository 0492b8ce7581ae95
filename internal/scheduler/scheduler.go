// Package scheduler runs the periodic rebuild trigger: every tick it
// asks the Build Driver to rebuild every Channel's Playout, keeping
// each timeline's lookahead window topped up without a caller having
// to hit the HTTP rebuild endpoint by hand. Grounded on the teacher's
// monitoring.Scheduler ticker-loop shape, generalized from polling a
// jobs table to iterating Channels.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/model"
	"github.com/fudoniten/pseudovision/internal/playout"
)

// ChannelLister is the subset of channel.Service the scheduler needs.
type ChannelLister interface {
	List(ctx context.Context) ([]model.Channel, error)
}

// PlayoutLocator resolves a Channel to the Playout id the scheduler
// should rebuild. Channels own at most one live Playout row.
type PlayoutLocator interface {
	PlayoutForChannel(ctx context.Context, channelID int64) (int64, error)
}

// Scheduler ticks on an interval and rebuilds every channel's playout.
type Scheduler struct {
	channels ChannelLister
	playouts PlayoutLocator
	driver   *playout.Driver
	opts     playout.Options
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
}

// New creates a Scheduler. interval is the tick period
// (config Scheduling.RebuildIntervalMinutes); opts is passed through
// to every Build call.
func New(channels ChannelLister, playouts PlayoutLocator, driver *playout.Driver, opts playout.Options, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		channels: channels,
		playouts: playouts,
		driver:   driver,
		opts:     opts,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
// It blocks; callers run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.rebuildAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.rebuildAll(ctx)
		}
	}
}

// Stop ends the tick loop.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) rebuildAll(ctx context.Context) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		s.logger.Error("scheduler: list channels failed", zap.Error(err))
		return
	}
	for _, ch := range channels {
		playoutID, err := s.playouts.PlayoutForChannel(ctx, ch.ID)
		if err != nil {
			s.logger.Warn("scheduler: no playout for channel", zap.Int64("channel_id", ch.ID), zap.Error(err))
			continue
		}
		res, err := s.driver.Build(ctx, s.opts, playoutID)
		if err != nil {
			s.logger.Error("scheduler: build failed", zap.Int64("playout_id", playoutID), zap.Error(err))
			continue
		}
		s.logger.Info("scheduler: build complete",
			zap.Int64("playout_id", playoutID), zap.String("outcome", string(res.Outcome)),
			zap.Int("events_written", res.EventsWritten))
	}
}
