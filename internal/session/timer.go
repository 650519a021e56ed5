package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Resetter is the part of Service the monthly timer drives.
type Resetter interface {
	ResetAllMonthly(ctx context.Context) (int, error)
}

// Timer periodically resets every session's monthly message counter.
type Timer struct {
	resetter Resetter
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewTimer creates a monthly reset timer firing every interval.
func NewTimer(resetter Resetter, interval time.Duration, logger *slog.Logger) *Timer {
	return &Timer{
		resetter: resetter,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the timer loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the reset loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeReset(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeReset(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in monthly reset timer", "panic", fmt.Sprint(r))
		}
	}()

	n, err := t.resetter.ResetAllMonthly(ctx)
	if err != nil {
		t.logger.Warn("monthly reset incomplete", "reset", n, "error", err)
		return
	}
	t.logger.Info("monthly message counters reset", "sessions", n)
}
