// Package control runs the rover drive loop. Each tick merges the
// pending steering intents, drives the motors, and exchanges a status
// report with the relay. Pending intents are cleared before the relay
// answer is accepted: when the relay dies or stalls, the next tick
// merges an empty set and the rover stops.
package control

import (
	"context"
	"log"
	"time"

	"github.com/mfitzp/kropbot/internal/aggregate"
	"github.com/mfitzp/kropbot/internal/direction"
	"github.com/mfitzp/kropbot/internal/drive"
	"github.com/mfitzp/kropbot/internal/motor"
	"github.com/mfitzp/kropbot/internal/relayclient"
)

// Reporter exchanges one status report for the live intent set.
type Reporter interface {
	Report(ctx context.Context, status relayclient.Status) ([]direction.Code, error)
}

// Loop drives the motors from crowd intents at a fixed rate.
type Loop struct {
	driver   motor.IMotorDriver
	reporter Reporter
	period   time.Duration
	thresh   float64
	logger   *log.Logger

	pending []direction.Code

	// sleep is swappable in tests to run ticks without real time
	sleep func(time.Duration)
}

// NewLoop creates a drive loop.
func NewLoop(driver motor.IMotorDriver, reporter Reporter, period time.Duration, stopThreshold float64, logger *log.Logger) *Loop {
	return &Loop{
		driver:   driver,
		reporter: reporter,
		period:   period,
		thresh:   stopThreshold,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run executes ticks until the context is cancelled. The motors are
// released on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.driver.Release(); err != nil {
			l.logger.Printf("control: motor release failed: %v", err)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		start := time.Now()

		if err := l.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		// Hold the tick rate against however long the work took
		if remaining := l.period - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
				return nil
			default:
				l.sleep(remaining)
			}
		}
	}
}

// Tick performs one control cycle.
func (l *Loop) Tick(ctx context.Context) error {
	result := aggregate.MergeWithThreshold(l.pending, l.thresh)
	left, right := drive.Map(result)

	if err := l.driver.Apply(ctx, left, right); err != nil {
		// A dead driver is fatal, the loop cannot steer anything
		return err
	}

	status := relayclient.Status{
		Direction:   int(result.Direction),
		Magnitude:   result.Magnitude,
		TotalCounts: result.Counts,
		Controllers: len(l.pending),
	}

	// Clear before the exchange: a failed poll must leave nothing to
	// replay on the next tick
	l.pending = nil

	dirs, err := l.reporter.Report(ctx, status)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Printf("control: relay poll failed: %v", err)
		}
		return nil
	}

	l.pending = dirs
	return nil
}

// Pending returns the intents queued for the next tick.
func (l *Loop) Pending() []direction.Code {
	return append([]direction.Code(nil), l.pending...)
}

// SetSleep overrides the inter-tick sleep for tests.
func (l *Loop) SetSleep(sleep func(time.Duration)) {
	l.sleep = sleep
}
