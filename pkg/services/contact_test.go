package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/maqel/zapflow/pkg/admission"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence/file"
	"github.com/maqel/zapflow/pkg/testutil"
)

func newContactService(t *testing.T) (*Contact, *models.Flow) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	flow := testutil.CreateTestFlowWithNodes()
	require.NoError(t, p.FlowRepository().Save(t.Context(), flow))

	manager := admission.NewManager(p.FlowRepository(), p.ActivationRepository(),
		slog.Default(), noop.NewTracerProvider().Tracer("test"))

	return NewContact(manager, nil, slog.Default()), flow
}

func TestContact_AdmitReportsFreshness(t *testing.T) {
	service, flow := newContactService(t)

	_, admitted, err := service.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)
	assert.True(t, admitted)

	_, admitted, err = service.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)
	assert.False(t, admitted, "second admission of an active contact is a no-op")
}

func TestContact_AdvanceAndExit(t *testing.T) {
	service, flow := newContactService(t)

	_, _, err := service.Admit(t.Context(), flow.ID, "5511999999999", "trigger-1")
	require.NoError(t, err)

	activation, err := service.Advance(t.Context(), flow.ID, "5511999999999", "response-1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivationStatusActive, activation.Status)

	activation, err = service.Advance(t.Context(), flow.ID, "5511999999999", "end-1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivationStatusExited, activation.Status)
}

func TestContact_ClearAllAndList(t *testing.T) {
	service, flow := newContactService(t)

	for _, contact := range []string{"contact-a", "contact-b"} {
		_, _, err := service.Admit(t.Context(), flow.ID, contact, "trigger-1")
		require.NoError(t, err)
	}

	listed, err := service.List(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, service.ClearAll(t.Context(), flow.ID))

	listed, err = service.List(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
