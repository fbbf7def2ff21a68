// Package audit forwards audit entries to a sink off the request path.
// Emitting never blocks and never fails the calling operation.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rosedal2/condoauth/internal/logging"
	"github.com/rosedal2/condoauth/internal/server/models"
)

// Emitter records audit entries.
type Emitter interface {
	Emit(ctx context.Context, e models.AuditEntry)
}

// Sink stores audit entries. The Postgres audit repository satisfies it.
type Sink interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

const (
	DefaultBufferSize = 256
	sinkTimeout       = 5 * time.Second
)

// Dispatcher buffers entries in a channel drained by one worker goroutine.
// When the buffer is full new entries are dropped and counted.
type Dispatcher struct {
	sink      Sink
	log       logging.Logger
	ch        chan models.AuditEntry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, bufferSize int, log logging.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = logging.Nop()
	}

	d := &Dispatcher{
		sink: sink,
		log:  log.With("module", "audit"),
		ch:   make(chan models.AuditEntry, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.write(e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.write(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(e models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := d.sink.Append(ctx, &e); err != nil {
		d.log.Error(ctx, "audit write failed", "action", e.Action, "error", err)
	}
}

func (d *Dispatcher) Emit(ctx context.Context, e models.AuditEntry) {
	if d == nil || d.closed.Load() {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	select {
	case d.ch <- e:
	default:
		d.dropped.Add(1)
		d.log.Warn(ctx, "audit buffer full, entry dropped", "action", e.Action)
	}
}

// Close stops accepting entries, drains the buffer and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Emit(context.Context, models.AuditEntry) {}
