package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

// DefaultDebounceDelay is the quiet interval before a pending write is saved.
const DefaultDebounceDelay = 750 * time.Millisecond

type writeKind int

const (
	writeVariables writeKind = iota
	writeScenario
)

type writeKey struct {
	planID string
	kind   writeKind
	id     string
}

type pendingWrite struct {
	seq   uint64
	timer *time.Timer
	save  func(ctx context.Context) error
}

// Debouncer is a trailing-edge write-behind cache in front of a Store. Rapid
// writes to the same scenario (or the same plan's variables) collapse into one
// save after the quiet interval. The last scheduled value always wins.
type Debouncer struct {
	store  Store
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[writeKey]*pendingWrite
	seq     uint64
	closed  bool

	// writeMu serializes saves; written drops saves older than one already made.
	writeMu sync.Mutex
	written map[writeKey]uint64
}

// NewDebouncer wraps st. A non-positive delay selects DefaultDebounceDelay.
func NewDebouncer(st Store, delay time.Duration, logger *slog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		store:   st,
		delay:   delay,
		logger:  logger,
		pending: make(map[writeKey]*pendingWrite),
		written: make(map[writeKey]uint64),
	}
}

// ScheduleScenario queues a scenario save.
func (d *Debouncer) ScheduleScenario(planID string, s scenario.Scenario) {
	s = s.Clone()
	d.schedule(writeKey{planID: planID, kind: writeScenario, id: s.ID}, func(ctx context.Context) error {
		return d.store.SaveScenario(ctx, planID, s)
	})
}

// ScheduleVariables queues a save of the plan's variable definitions.
func (d *Debouncer) ScheduleVariables(planID string, defs variable.Definitions) {
	defs = defs.Clone()
	d.schedule(writeKey{planID: planID, kind: writeVariables}, func(ctx context.Context) error {
		return d.store.SaveVariables(ctx, planID, defs)
	})
}

// DeleteScenario drops any pending save for the scenario and deletes it now.
func (d *Debouncer) DeleteScenario(ctx context.Context, planID, scenarioID string) error {
	k := writeKey{planID: planID, kind: writeScenario, id: scenarioID}

	d.mu.Lock()
	d.seq++
	seq := d.seq
	if p, ok := d.pending[k]; ok {
		p.timer.Stop()
		delete(d.pending, k)
	}
	d.mu.Unlock()

	return d.run(ctx, k, seq, func(ctx context.Context) error {
		return d.store.DeleteScenario(ctx, planID, scenarioID)
	})
}

func (d *Debouncer) schedule(k writeKey, save func(ctx context.Context) error) {
	d.mu.Lock()
	d.seq++
	seq := d.seq

	if d.closed {
		d.mu.Unlock()
		if err := d.run(context.Background(), k, seq, save); err != nil {
			d.logger.Error("write after close failed", "plan", k.planID, "id", k.id, "error", err)
		}
		return
	}

	if p, ok := d.pending[k]; ok {
		p.timer.Stop()
	}
	p := &pendingWrite{seq: seq, save: save}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(k, seq) })
	d.pending[k] = p
	d.mu.Unlock()
}

func (d *Debouncer) fire(k writeKey, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[k]
	if !ok || p.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, k)
	d.mu.Unlock()

	if err := d.run(context.Background(), k, p.seq, p.save); err != nil {
		d.logger.Error("debounced write failed", "plan", k.planID, "id", k.id, "error", err)
	}
}

func (d *Debouncer) run(ctx context.Context, k writeKey, seq uint64, save func(ctx context.Context) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if d.written[k] > seq {
		return nil
	}
	if err := save(ctx); err != nil {
		return err
	}
	d.written[k] = seq
	return nil
}

// Pending reports how many writes are waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush saves every pending write now, in scheduling order.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	type job struct {
		key writeKey
		p   *pendingWrite
	}
	jobs := make([]job, 0, len(d.pending))
	for k, p := range d.pending {
		p.timer.Stop()
		jobs = append(jobs, job{key: k, p: p})
	}
	d.pending = make(map[writeKey]*pendingWrite)
	d.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].p.seq < jobs[j].p.seq })

	var errs []error
	for _, j := range jobs {
		if err := d.run(ctx, j.key, j.p.seq, j.p.save); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", j.key.planID, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending writes. Writes scheduled afterwards save immediately.
// The underlying store is left open.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}
