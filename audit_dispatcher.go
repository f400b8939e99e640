package tokenguard

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples security-event emission from the hot path.
// Events are handed to the sink on a single background goroutine; when the
// buffer is full the event is either dropped (counted) or the caller
// blocks, per AuditConfig.DropIfFull.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	dropIfFull bool

	dropped atomic.Uint64
	closed  atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// newAuditDispatcher returns nil when auditing is disabled; a nil
// dispatcher accepts Emit and Close as no-ops.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, bufferSize),
		dropIfFull: cfg.DropIfFull,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event for delivery. Safe for concurrent use; events queued
// after Close are silently discarded.
func (d *auditDispatcher) Emit(event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	d.events <- event
}

// Close stops the dispatcher after draining buffered events.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.events)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
