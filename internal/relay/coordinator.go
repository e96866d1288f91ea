// Package relay coordinates the three parties of a crowd-driving
// session: operators submitting steering intents, the rover exchanging
// status reports for the current intent set, and observers receiving
// telemetry. The coordinator owns the intent buffer and fans rover
// state out to the hub and the history store.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mfitzp/kropbot/internal/audit"
	"github.com/mfitzp/kropbot/internal/direction"
	"github.com/mfitzp/kropbot/internal/history"
	"github.com/mfitzp/kropbot/internal/intent"
	"github.com/mfitzp/kropbot/internal/telemetry"
)

// ErrInvalidOperator is returned for intents without an operator name.
var ErrInvalidOperator = errors.New("INVALID_OPERATOR")

// AuditLogger interface for writing audit records.
type AuditLogger interface {
	Record(actor, action string, params map[string]interface{}, outcome string)
}

// HistoryStore interface for persisting rover reports.
type HistoryStore interface {
	Append(ctx context.Context, rec history.Record) error
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Publisher interface for telemetry fan-out.
type Publisher interface {
	PublishStatus(data map[string]interface{}) error
	PublishImage(data map[string]interface{}) error
}

// Compile-time assertions for collaborator conformance
var _ AuditLogger = (*audit.Logger)(nil)
var _ HistoryStore = (*history.Store)(nil)
var _ Publisher = (*telemetry.Hub)(nil)

// StatusReport is the rover's view of its last control tick.
type StatusReport struct {
	Direction   direction.Code
	Magnitude   float64
	Controllers int
	Counts      map[direction.Code]int
}

// Frame is the most recent camera capture received from the rover.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
	Seq        int64
}

// Coordinator routes validated API intents and rover exchanges.
type Coordinator struct {
	buffer  *intent.Buffer
	hub     Publisher
	store   HistoryStore
	auditor AuditLogger

	frameMu sync.RWMutex
	frame   Frame

	now func() time.Time
}

// NewCoordinator creates a coordinator. The history store and audit
// logger may be nil; persistence and auditing are then skipped.
func NewCoordinator(buffer *intent.Buffer, hub Publisher, store HistoryStore, auditor AuditLogger) *Coordinator {
	return &Coordinator{
		buffer:  buffer,
		hub:     hub,
		store:   store,
		auditor: auditor,
		now:     time.Now,
	}
}

// RecordIntent stores one operator's steering intent. Out-of-range or
// missing direction values degrade to a stop vote rather than an error.
func (c *Coordinator) RecordIntent(ctx context.Context, operator string, dir direction.Code) error {
	if operator == "" {
		c.logAudit("", audit.ActionIntentRecorded, nil, "rejected")
		return ErrInvalidOperator
	}

	c.buffer.Record(operator, dir)

	c.logAudit(operator, audit.ActionIntentRecorded, map[string]interface{}{
		"direction": int(dir),
	}, "accepted")

	return nil
}

// ServeReport handles one rover exchange: the rover's status fans out to
// observers and the history store, and the reply carries every intent
// still live in the buffer.
func (c *Coordinator) ServeReport(ctx context.Context, actor string, report StatusReport) ([]direction.Code, error) {
	c.buffer.EvictExpired(c.now())
	directions := c.buffer.Snapshot()

	if c.hub != nil {
		err := c.hub.PublishStatus(map[string]interface{}{
			"direction":     int(report.Direction),
			"magnitude":     report.Magnitude,
			"n_controllers": report.Controllers,
			"total_counts":  report.Counts,
		})
		if err != nil {
			c.logAudit(actor, audit.ActionReportServed, map[string]interface{}{
				"error": err.Error(),
			}, "publish_failed")
		}
	}

	if c.store != nil {
		rec := history.Record{
			Timestamp:   c.now().UTC(),
			Direction:   report.Direction,
			Magnitude:   report.Magnitude,
			Controllers: report.Controllers,
			Counts:      report.Counts,
		}
		if err := c.store.Append(ctx, rec); err != nil {
			// Persistence trouble must not stall the drive loop
			c.logAudit(actor, audit.ActionReportServed, map[string]interface{}{
				"error": err.Error(),
			}, "persist_failed")
			return directions, nil
		}
	}

	c.logAudit(actor, audit.ActionReportServed, map[string]interface{}{
		"direction":   int(report.Direction),
		"magnitude":   report.Magnitude,
		"served":      len(directions),
		"controllers": report.Controllers,
	}, "ok")

	return directions, nil
}

// StoreFrame keeps the latest camera frame and notifies observers.
func (c *Coordinator) StoreFrame(ctx context.Context, actor string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty frame")
	}

	c.frameMu.Lock()
	c.frame = Frame{
		Data:       data,
		ReceivedAt: c.now().UTC(),
		Seq:        c.frame.Seq + 1,
	}
	seq := c.frame.Seq
	c.frameMu.Unlock()

	if c.hub != nil {
		err := c.hub.PublishImage(map[string]interface{}{
			"seq": seq,
			"ts":  c.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			c.logAudit(actor, audit.ActionFrameReceived, map[string]interface{}{
				"error": err.Error(),
			}, "publish_failed")
		}
	}

	c.logAudit(actor, audit.ActionFrameReceived, map[string]interface{}{
		"bytes": len(data),
		"seq":   seq,
	}, "ok")

	return nil
}

// LatestFrame returns the most recent camera frame, if any.
func (c *Coordinator) LatestFrame() (Frame, bool) {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	return c.frame, c.frame.Seq > 0
}

// History returns up to limit recent rover reports, newest first.
func (c *Coordinator) History(ctx context.Context, limit int) ([]history.Record, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.Recent(ctx, limit)
}

// Operators returns the number of live intents in the buffer.
func (c *Coordinator) Operators() int {
	c.buffer.EvictExpired(c.now())
	return c.buffer.Len()
}

// SetClock overrides the time source for tests.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Coordinator) logAudit(actor, action string, params map[string]interface{}, outcome string) {
	if c.auditor == nil {
		return
	}
	c.auditor.Record(actor, action, params, outcome)
}
