package admission

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence/file"
	"github.com/maqel/zapflow/pkg/testutil"
)

func newTestManager(t *testing.T) (*Manager, *models.Flow) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	flow := testutil.CreateTestFlowWithNodes()
	require.NoError(t, p.FlowRepository().Save(t.Context(), flow))

	manager := NewManager(p.FlowRepository(), p.ActivationRepository(),
		slog.Default(), noop.NewTracerProvider().Tracer("test"))

	return manager, flow
}

func TestManager_AdmitCreatesActiveRecord(t *testing.T) {
	manager, flow := newTestManager(t)

	activation, admitted, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	assert.True(t, admitted)
	assert.Equal(t, models.ActivationStatusActive, activation.Status)
	require.NotNil(t, activation.CurrentNodeID)
	assert.Equal(t, "trigger-1", *activation.CurrentNodeID)
	assert.False(t, activation.EnteredAt.IsZero())
	assert.Nil(t, activation.ExitedAt)
}

func TestManager_AdmitIsIdempotentWhileActive(t *testing.T) {
	manager, flow := newTestManager(t)

	first, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	_, err = manager.Advance(t.Context(), flow.ID, "5511999999999", "response-1")
	require.NoError(t, err)

	second, admitted, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)
	assert.False(t, admitted)

	assert.Equal(t, first.EnteredAt.UTC(), second.EnteredAt.UTC(),
		"re-admission must not reset enteredAt")
	require.NotNil(t, second.CurrentNodeID)
	assert.Equal(t, "response-1", *second.CurrentNodeID,
		"re-admission must not move the contact back to the entry node")
}

func TestManager_AdmitUnknownFlow(t *testing.T) {
	manager, _ := newTestManager(t)

	_, _, err := manager.Admit(t.Context(), "missing", "5511999999999", "trigger-1")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestManager_AdmitUnknownEntryNode(t *testing.T) {
	manager, flow := newTestManager(t)

	_, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "nope")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestManager_ConcurrentAdmitsCreateSingleRecord(t *testing.T) {
	manager, flow := newTestManager(t)

	var wg sync.WaitGroup

	results := make([]*models.ContactActivation, 20)

	for i := range results {
		wg.Add(1)

		go func(slot int) {
			defer wg.Done()

			activation, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
			if assert.NoError(t, err) {
				results[slot] = activation
			}
		}(i)
	}

	wg.Wait()

	require.NotNil(t, results[0])

	for _, activation := range results {
		assert.Equal(t, results[0].EnteredAt.UTC(), activation.EnteredAt.UTC(),
			"every admit must observe the same single record")
	}

	listed, err := manager.List(t.Context(), flow.ID)
	require.NoError(t, err)

	count := 0
	for range listed {
		count++
	}

	assert.Equal(t, 1, count)
}

func TestManager_AdvanceMovesContact(t *testing.T) {
	manager, flow := newTestManager(t)

	_, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	activation, err := manager.Advance(t.Context(), flow.ID, "5511999999999", "response-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActivationStatusActive, activation.Status)
	require.NotNil(t, activation.CurrentNodeID)
	assert.Equal(t, "response-1", *activation.CurrentNodeID)
}

func TestManager_AdvanceToTerminalExits(t *testing.T) {
	manager, flow := newTestManager(t)

	_, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	activation, err := manager.Advance(t.Context(), flow.ID, "5511999999999", "end-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActivationStatusExited, activation.Status)
	assert.Nil(t, activation.CurrentNodeID)
	require.NotNil(t, activation.ExitedAt)
}

func TestManager_AdvanceRequiresActiveContact(t *testing.T) {
	manager, flow := newTestManager(t)

	_, err := manager.Advance(t.Context(), flow.ID, "5511999999999", "response-1")
	assert.ErrorIs(t, err, ErrNotActive)

	_, _, err = manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	_, err = manager.Advance(t.Context(), flow.ID, "5511999999999", "end-1")
	require.NoError(t, err)

	_, err = manager.Advance(t.Context(), flow.ID, "5511999999999", "response-1")
	assert.ErrorIs(t, err, ErrNotActive, "exited contact cannot advance")
}

func TestManager_ReadmissionAfterExitIsFresh(t *testing.T) {
	manager, flow := newTestManager(t)
	manager.now = func() time.Time { return time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC) }

	first, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	_, err = manager.Advance(t.Context(), flow.ID, "5511999999999", "end-1")
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC) }

	second, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActivationStatusActive, second.Status)
	assert.True(t, second.EnteredAt.After(first.EnteredAt))
	assert.Nil(t, second.ExitedAt)
}

func TestManager_ClearAllThenAdmitIsFresh(t *testing.T) {
	manager, flow := newTestManager(t)
	manager.now = func() time.Time { return time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC) }

	first, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	require.NoError(t, manager.ClearAll(t.Context(), flow.ID))

	listed, err := manager.List(t.Context(), flow.ID)
	require.NoError(t, err)

	for range listed {
		t.Fatal("expected no activations after ClearAll")
	}

	manager.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }

	second, _, err := manager.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActivationStatusActive, second.Status)
	assert.True(t, second.EnteredAt.After(first.EnteredAt))
	require.NotNil(t, second.CurrentNodeID)
	assert.Equal(t, "trigger-1", *second.CurrentNodeID)
}

func TestManager_ListOrdersByEnteredAtDescending(t *testing.T) {
	manager, flow := newTestManager(t)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, contact := range []string{"contact-a", "contact-b", "contact-c"} {
		entered := base.Add(time.Duration(i) * time.Hour)
		manager.now = func() time.Time { return entered }

		_, _, err := manager.Admit(t.Context(), flow.ID, contact, "trigger-1")
		require.NoError(t, err)
	}

	listed, err := manager.List(t.Context(), flow.ID)
	require.NoError(t, err)

	contacts := make([]string, 0, 3)
	for activation := range listed {
		contacts = append(contacts, activation.Contact)
	}

	assert.Equal(t, []string{"contact-c", "contact-b", "contact-a"}, contacts)

	// The sequence is restartable.
	again := 0
	for range listed {
		again++
	}

	assert.Equal(t, 3, again)
}
