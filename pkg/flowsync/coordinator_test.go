package flowsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/maqel/zapflow/pkg/graph"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitRecorder struct {
	mu      sync.Mutex
	emitted []*models.Flow
	fail    int // fail the next N emissions
}

func (r *emitRecorder) emit(_ context.Context, flow *models.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail > 0 {
		r.fail--

		return errors.New("persistence rejected update")
	}

	r.emitted = append(r.emitted, flow)

	return nil
}

func (r *emitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.emitted)
}

func (r *emitRecorder) last() *models.Flow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.emitted) == 0 {
		return nil
	}

	return r.emitted[len(r.emitted)-1]
}

func baseFlow() *models.Flow {
	return &models.Flow{
		ID:     "flow-1",
		Name:   "Sync flow",
		Status: models.FlowStatusDraft,
		Nodes: []*models.Node{
			{ID: "t1", Kind: models.KindWhatsAppTrigger,
				Config: models.WhatsAppTriggerConfig{InstanceID: "instance-1"}},
		},
		Edges: []*models.Edge{},
	}
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func addEndNode(id string) func(flow *models.Flow) (*models.Flow, error) {
	return func(flow *models.Flow) (*models.Flow, error) {
		next := flow.Clone()
		next.Nodes = append(next.Nodes, &models.Node{
			ID: id, Kind: models.KindEnd, Config: models.EndConfig{},
		})

		return next, nil
	}
}

func TestCoordinator_RedundantRemoteIsDiscarded(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit)
	defer coordinator.Close()

	before := coordinator.WorkingCopy()
	coordinator.ApplyRemote(baseFlow())

	assert.True(t, graph.Equal(before, coordinator.WorkingCopy()))
	assert.Zero(t, recorder.count())
}

func TestCoordinator_LocalEditEmitsOnce(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit,
		WithDebounce(10*time.Millisecond))
	defer coordinator.Close()

	require.NoError(t, coordinator.Edit(addEndNode("end-1")))

	require.Eventually(t, func() bool { return recorder.count() == 1 },
		time.Second, 5*time.Millisecond)

	assert.NotNil(t, recorder.last().NodeByID("end-1"))

	// lastKnownRemote advanced; flushing again must not re-emit.
	require.NoError(t, coordinator.Flush(t.Context()))
	assert.Equal(t, 1, recorder.count())
}

func TestCoordinator_RapidEditsAreCoalesced(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit,
		WithDebounce(30*time.Millisecond))
	defer coordinator.Close()

	for i := range 5 {
		require.NoError(t, coordinator.Edit(addEndNode("end-"+string(rune('a'+i)))))
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return recorder.count() >= 1 },
		time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, recorder.count(), "intermediate states must never be emitted")
	assert.Len(t, recorder.last().Nodes, 6)
}

func TestCoordinator_NoEchoAfterRemoteUpdate(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit,
		WithDebounce(10*time.Millisecond), WithSettle(40*time.Millisecond))
	defer coordinator.Close()

	remote := baseFlow()
	remote.Nodes = append(remote.Nodes, &models.Node{
		ID: "resp-1", Kind: models.KindResponse,
		Config: models.ResponseConfig{Type: models.ResponseText, Content: "oi"},
	})

	coordinator.ApplyRemote(remote)

	// A render-driven edit during the settle window originated remotely and
	// must not be notified outward.
	require.NoError(t, coordinator.Edit(func(flow *models.Flow) (*models.Flow, error) {
		return flow.Clone(), nil
	}))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, recorder.count())

	assert.True(t, graph.Equal(remote, coordinator.WorkingCopy()))
}

func TestCoordinator_EditAfterSettleEmits(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit,
		WithDebounce(10*time.Millisecond), WithSettle(10*time.Millisecond))
	defer coordinator.Close()

	remote := baseFlow()
	remote.Name = "Renamed"
	remote.Nodes = append(remote.Nodes, &models.Node{
		ID: "end-1", Kind: models.KindEnd, Config: models.EndConfig{},
	})
	coordinator.ApplyRemote(remote)

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, coordinator.Edit(addEndNode("end-2")))

	require.Eventually(t, func() bool { return recorder.count() == 1 },
		time.Second, 5*time.Millisecond)
	assert.NotNil(t, recorder.last().NodeByID("end-2"))
}

func TestCoordinator_FailedEmissionIsRetried(t *testing.T) {
	recorder := &emitRecorder{fail: 1}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit,
		WithDebounce(10*time.Millisecond))
	defer coordinator.Close()

	require.NoError(t, coordinator.Edit(addEndNode("end-1")))

	// First cycle fails, lastKnownRemote stays put, the next cycle retries
	// the same diff.
	require.Eventually(t, func() bool { return recorder.count() == 1 },
		time.Second, 5*time.Millisecond)

	assert.NotNil(t, recorder.last().NodeByID("end-1"))
}

func TestCoordinator_EditWithoutFlow(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), nil, recorder.emit)
	defer coordinator.Close()

	err := coordinator.Edit(addEndNode("end-1"))
	assert.ErrorIs(t, err, ErrNoFlow)
	assert.Zero(t, recorder.count())
}

func TestCoordinator_RemoteDuringEmitKeepsNewerValue(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	emit := func(_ context.Context, _ *models.Flow) error {
		started <- struct{}{}
		<-release

		return nil
	}

	coordinator := NewCoordinator(testLogger(), baseFlow(), emit)
	defer coordinator.Close()

	require.NoError(t, coordinator.Edit(addEndNode("end-1")))

	done := make(chan error, 1)
	go func() { done <- coordinator.Flush(context.Background()) }()

	<-started

	// A newer canonical value lands while the emit is still in flight; it
	// supersedes the snapshot being emitted.
	remote := baseFlow()
	remote.Nodes = append(remote.Nodes, &models.Node{
		ID: "resp-1", Kind: models.KindResponse,
		Config: models.ResponseConfig{Type: models.ResponseText, Content: "oi"},
	})
	coordinator.ApplyRemote(remote)

	close(release)
	require.NoError(t, <-done)

	require.NoError(t, coordinator.Edit(addEndNode("end-2")))

	// A redundant broadcast of the newer value must still be discarded, not
	// re-applied over the local edit.
	coordinator.ApplyRemote(remote.Clone())

	workingCopy := coordinator.WorkingCopy()
	assert.NotNil(t, workingCopy.NodeByID("end-2"), "redundant remote must not clobber local edits")
	assert.NotNil(t, workingCopy.NodeByID("resp-1"))
}

func TestCoordinator_FlushWithoutChangesIsNoop(t *testing.T) {
	recorder := &emitRecorder{}
	coordinator := NewCoordinator(testLogger(), baseFlow(), recorder.emit)
	defer coordinator.Close()

	require.NoError(t, coordinator.Flush(t.Context()))
	assert.Zero(t, recorder.count())
}
