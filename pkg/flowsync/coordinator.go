// Package flowsync reconciles a locally edited flow graph with its canonical
// remote value without feedback loops: a local edit never echoes back as a
// remote change and a remote update never re-triggers outward sync.
package flowsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maqel/zapflow/pkg/graph"
	"github.com/maqel/zapflow/pkg/models"
)

const (
	defaultDebounce = 250 * time.Millisecond
	defaultSettle   = 50 * time.Millisecond
)

// ErrNoFlow is returned when an edit arrives before any flow is loaded.
var ErrNoFlow = errors.New("no flow loaded")

// EmitFunc publishes the coalesced working copy outward (persistence, event
// bus). Emission is fire-and-forget from the editor's point of view: a
// failure keeps the local diff pending and the next debounce cycle retries.
type EmitFunc func(ctx context.Context, flow *models.Flow) error

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce sets the window over which rapid local edits are coalesced
// before being considered for outward sync.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithSettle sets the quiet period after a remote update during which local
// changes are treated as remote-originated and not emitted outward.
func WithSettle(d time.Duration) Option {
	return func(c *Coordinator) { c.settle = d }
}

// Coordinator holds the canonical remote value, the local working copy and
// the origin marker that keeps the two update directions apart.
type Coordinator struct {
	logger   *slog.Logger
	emit     EmitFunc
	debounce time.Duration
	settle   time.Duration

	mu              sync.Mutex
	lastKnownRemote *models.Flow
	workingCopy     *models.Flow
	applyingRemote  bool
	remoteGen       uint64
	pending         *time.Timer
	settleTimer     *time.Timer
	closed          bool
}

// NewCoordinator creates a coordinator around an initial flow value.
func NewCoordinator(logger *slog.Logger, initial *models.Flow, emit EmitFunc, opts ...Option) *Coordinator {
	coordinator := &Coordinator{
		logger:   logger,
		emit:     emit,
		debounce: defaultDebounce,
		settle:   defaultSettle,
	}

	if initial != nil {
		coordinator.lastKnownRemote = initial.Clone()
		coordinator.workingCopy = initial.Clone()
	}

	for _, opt := range opts {
		opt(coordinator)
	}

	return coordinator
}

// WorkingCopy returns a copy of the current local state.
func (c *Coordinator) WorkingCopy() *models.Flow {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.workingCopy == nil {
		return nil
	}

	return c.workingCopy.Clone()
}

// ApplyRemote takes a new canonical value. A value structurally equal to the
// last known remote is discarded: it is either a redundant broadcast or the
// echo of this coordinator's own emission.
func (c *Coordinator) ApplyRemote(flow *models.Flow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || graph.Equal(flow, c.lastKnownRemote) {
		return
	}

	c.applyingRemote = true
	c.remoteGen++
	c.workingCopy = flow.Clone()
	c.lastKnownRemote = flow.Clone()

	// A pending local diff is superseded: last writer wins.
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}

	c.settleTimer = time.AfterFunc(c.settle, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.applyingRemote = false
	})
}

// Edit applies a mutation to the working copy. Edits arriving while a remote
// update settles are kept locally but not notified outward; any other edit
// restarts the debounce window, so only the latest coalesced state is ever
// emitted, never an intermediate one.
func (c *Coordinator) Edit(apply func(flow *models.Flow) (*models.Flow, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.workingCopy == nil {
		return ErrNoFlow
	}

	next, err := apply(c.workingCopy)
	if err != nil {
		return err
	}

	c.workingCopy = next

	if c.closed || c.applyingRemote {
		return nil
	}

	c.scheduleLocked()

	return nil
}

// Flush cancels any pending debounce window and emits the current diff
// immediately. Used on shutdown and in tests.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.mu.Unlock()

	return c.emitDiff(ctx)
}

// Close stops all timers. A pending diff is dropped; callers that need it
// delivered call Flush first.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
}

func (c *Coordinator) scheduleLocked() {
	if c.pending != nil {
		c.pending.Stop()
	}

	c.pending = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()

		if err := c.emitDiff(context.Background()); err != nil {
			c.mu.Lock()
			defer c.mu.Unlock()

			if !c.closed {
				// Keep the user's intent; the same diff is retried on the
				// next cycle.
				c.logger.Warn("outward sync failed, diff kept pending", "error", err)
				c.scheduleLocked()
			}
		}
	})
}

// emitDiff emits the working copy if it structurally differs from the last
// known remote. Advancing lastKnownRemote only on success is what makes a
// failed emission retryable; a remote update landing while the emit is in
// flight supersedes the snapshot, so lastKnownRemote must not regress to it.
func (c *Coordinator) emitDiff(ctx context.Context) error {
	c.mu.Lock()

	if c.closed || c.workingCopy == nil || graph.Equal(c.workingCopy, c.lastKnownRemote) {
		c.mu.Unlock()

		return nil
	}

	snapshot := c.workingCopy.Clone()
	gen := c.remoteGen
	c.mu.Unlock()

	if err := c.emit(ctx, snapshot); err != nil {
		return err
	}

	c.mu.Lock()
	if c.remoteGen == gen {
		c.lastKnownRemote = snapshot
	}
	c.mu.Unlock()

	return nil
}
