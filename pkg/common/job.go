package common

import (
	"context"
	"log/slog"
	randv2 "math/rand/v2"
	"runtime/debug"
	"time"
)

type OneOffJob interface {
	Name() string
	InitialPause() time.Duration
	NewParams() any
	RunOnce(ctx context.Context, params any) error
}

type PeriodicJob interface {
	NewParams() any
	RunOnce(ctx context.Context, params any) error
	Interval() time.Duration
	// NOTE: if no jitter is needed, return 1, not 0
	Jitter() time.Duration
	// Timeout bounds a single RunOnce call; zero means no deadline.
	Timeout() time.Duration
	// Trigger, when non-nil, lets a job be woken up on demand (e.g. from an admin HTTP
	// endpoint) instead of waiting out its full interval.
	Trigger() <-chan struct{}
	Name() string
}

func RunOneOffJob(ctx context.Context, j OneOffJob, params any) {
	ctx = context.WithValue(ctx, TraceIDContextKey, j.Name())

	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "One-off job crashed", "panic", rvr, "stack", string(debug.Stack()))
		}
	}()

	time.Sleep(j.InitialPause())

	slog.DebugContext(ctx, "Running one-off job")

	if err := j.RunOnce(ctx, params); err != nil {
		slog.ErrorContext(ctx, "One-off job failed", ErrAttr(err))
	}

	slog.DebugContext(ctx, "One-off job finished")
}

// RunAdHocFunc is a safe wrapper (with recover()) over `go f()`.
func RunAdHocFunc(ctx context.Context, f func(ctx context.Context) error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "Ad-hoc func crashed", "panic", rvr, "stack", string(debug.Stack()))
		}
	}()

	slog.Log(ctx, LevelTrace, "Running ad-hoc func")

	if err := f(ctx); err != nil {
		slog.ErrorContext(ctx, "Ad-hoc func failed", ErrAttr(err))
	}

	slog.Log(ctx, LevelTrace, "Ad-hoc func finished")
}

func runOnceWithTimeout(ctx context.Context, j PeriodicJob, params any) error {
	if timeout := j.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return j.RunOnce(ctx, params)
}

func RunPeriodicJob(ctx context.Context, j PeriodicJob) {
	ctx = context.WithValue(ctx, TraceIDContextKey, j.Name())

	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "Periodic job crashed", "panic", rvr, "stack", string(debug.Stack()))
		}
	}()

	slog.DebugContext(ctx, "Starting periodic job")

	trigger := j.Trigger()

	for running := true; running; {
		interval := j.Interval()
		jitter := j.Jitter()

		select {
		case <-ctx.Done():
			running = false
		case <-trigger:
			slog.Log(ctx, LevelTrace, "Running periodic job from manual trigger")
			if err := runOnceWithTimeout(ctx, j, j.NewParams()); err != nil {
				slog.ErrorContext(ctx, "Periodic job failed", ErrAttr(err))
			}
			// introduction of jitter is supposed to help in case we have multiple workers to distribute the load
		case <-time.After(interval + time.Duration(randv2.Int64N(int64(jitter)))):
			slog.Log(ctx, LevelTrace, "Running periodic job once", "interval", interval.String(), "jitter", jitter.String())
			if err := runOnceWithTimeout(ctx, j, j.NewParams()); err != nil {
				slog.ErrorContext(ctx, "Periodic job failed", ErrAttr(err))
			}
		}
	}

	slog.DebugContext(ctx, "Periodic job finished")
}

func RunPeriodicJobOnce(ctx context.Context, j PeriodicJob, params any) error {
	ctx = context.WithValue(ctx, TraceIDContextKey, j.Name())

	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "Periodic job crashed", "panic", rvr, "stack", string(debug.Stack()))
		}
	}()

	slog.Log(ctx, LevelTrace, "Running periodic job once")
	err := runOnceWithTimeout(ctx, j, params)
	if err != nil {
		slog.ErrorContext(ctx, "Periodic job failed", ErrAttr(err))
	}
	return err
}
