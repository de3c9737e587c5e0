// Package runner drives one pipeline stage against the message bus until
// a stop condition: record limit, idle timeout or cancellation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drive-search/pipeline/internal/bus"
)

// State is the runner lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateStopped  State = "stopped"
)

// Stage is one pipeline phase: a typed input topic, a typed output topic
// and an idempotent per-record processing function. Process returns the
// records to publish; nil output means the record was skipped.
type Stage interface {
	Name() string
	InputTopic() string
	OutputTopic() string
	Process(ctx context.Context, msg *bus.Message) ([]bus.OutMessage, error)
}

// Config bounds one run.
type Config struct {
	// PollTimeout is the wait of a single poll.
	PollTimeout time.Duration
	// IdleTimeout stops the runner after this much consecutive idle
	// polling. Early stages expecting bursty arrival want a long
	// timeout; terminal stages a short one.
	IdleTimeout time.Duration
	// MaxRecords stops the runner after processing this many records.
	// Zero means unlimited.
	MaxRecords int
}

func (c Config) withDefaults() Config {
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	return c
}

// Snapshot is a read-only copy of runner state for reporting.
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	State       State  `json:"state"`
	InputTopic  string `json:"inputTopic"`
	OutputTopic string `json:"outputTopic"`
	Processed   int    `json:"processed"`
	Emitted     int    `json:"emitted"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
}

// Runner polls a stage's input topic and publishes its output. Records
// from one topic are processed strictly in arrival order; cross-file
// parallelism comes from running more instances, never from internal
// concurrency.
type Runner struct {
	id    string
	stage Stage
	bus   bus.Bus
	cfg   Config
	log   *slog.Logger

	mu        sync.Mutex
	state     State
	processed int
	emitted   int
	skipped   int
	failed    int
}

func New(stage Stage, b bus.Bus, cfg Config, log *slog.Logger) *Runner {
	return &Runner{
		id:    uuid.NewString(),
		stage: stage,
		bus:   b,
		cfg:   cfg.withDefaults(),
		log:   log.With("runner", stage.Name()),
		state: StateIdle,
	}
}

// Run polls until a stop condition and then drains. Cancellation is
// honored at poll boundaries only; an in-flight record always finishes.
// The returned error is non-nil only for fatal transport failures.
func (r *Runner) Run(ctx context.Context) error {
	r.setState(StateRunning)
	r.log.Info("runner started", "id", r.id, "input_topic", r.stage.InputTopic())

	runErr := r.poll(ctx)

	r.setState(StateDraining)
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.bus.Flush(flushCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush: %w", err)
	}
	r.setState(StateStopped)

	snap := r.Snapshot()
	r.log.Info("runner stopped",
		"processed", snap.Processed,
		"emitted", snap.Emitted,
		"skipped", snap.Skipped,
		"failed", snap.Failed,
	)
	return runErr
}

func (r *Runner) poll(ctx context.Context) error {
	var idle time.Duration

	for {
		if ctx.Err() != nil {
			r.log.Info("stop signal received")
			return nil
		}
		if r.cfg.MaxRecords > 0 && r.recordCount() >= r.cfg.MaxRecords {
			r.log.Info("record limit reached", "max_records", r.cfg.MaxRecords)
			return nil
		}

		msg, err := r.bus.Poll(ctx, r.stage.InputTopic(), r.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			// Connectivity loss is fatal; surface it to the operator.
			return fmt.Errorf("poll %s: %w", r.stage.InputTopic(), err)
		}
		if msg == nil {
			idle += r.cfg.PollTimeout
			if idle >= r.cfg.IdleTimeout {
				r.log.Info("idle timeout reached", "idle", idle.String())
				return nil
			}
			continue
		}
		idle = 0

		outs, err := r.stage.Process(ctx, msg)
		if err != nil {
			// One bad record must not stop the stage.
			r.log.Error("record processing failed", "key", msg.Key, "error", err)
			r.incFailed()
			continue
		}
		if len(outs) == 0 {
			r.incSkipped()
			continue
		}

		for _, out := range outs {
			if err := r.bus.Publish(ctx, out.Topic, out.Key, out.Value); err != nil {
				return fmt.Errorf("publish to %s: %w", out.Topic, err)
			}
		}
		r.incProcessed(len(outs))
	}
}

// Snapshot returns a copy of the runner's counters and state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:          r.id,
		Name:        r.stage.Name(),
		State:       r.state,
		InputTopic:  r.stage.InputTopic(),
		OutputTopic: r.stage.OutputTopic(),
		Processed:   r.processed,
		Emitted:     r.emitted,
		Skipped:     r.skipped,
		Failed:      r.failed,
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// recordCount is the number of records consumed, whatever their outcome.
func (r *Runner) recordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

func (r *Runner) incProcessed(emitted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.emitted += emitted
}

func (r *Runner) incSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.skipped++
}

func (r *Runner) incFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.failed++
}
