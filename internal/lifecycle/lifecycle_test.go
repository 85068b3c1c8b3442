package lifecycle

import (
	"testing"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestTaskTransition(t *testing.T) {
	allowed := [][2]models.TaskStatus{
		{models.TaskOpen, models.TaskInProgress},
		{models.TaskOpen, models.TaskCancelled},
		{models.TaskInProgress, models.TaskCompleted},
		{models.TaskInProgress, models.TaskCancelled},
	}
	for _, tr := range allowed {
		require.NoError(t, TaskTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	rejected := [][2]models.TaskStatus{
		{models.TaskOpen, models.TaskCompleted},
		{models.TaskOpen, models.TaskOpen},
		{models.TaskCompleted, models.TaskOpen},
		{models.TaskCancelled, models.TaskInProgress},
		{models.TaskOpen, models.TaskStatus("Swiped Right")},
	}
	for _, tr := range rejected {
		err := TaskTransition(tr[0], tr[1])
		require.True(t, apperr.Is(err, apperr.KindValidation), "%s -> %s", tr[0], tr[1])
	}
}

func TestParseTaskStatus(t *testing.T) {
	s, err := ParseTaskStatus(" inprogress ")
	require.NoError(t, err)
	require.Equal(t, models.TaskInProgress, s)

	_, err = ParseTaskStatus("assigned")
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestIsTerminalTask(t *testing.T) {
	require.True(t, IsTerminalTask(models.TaskCompleted))
	require.True(t, IsTerminalTask(models.TaskCancelled))
	require.False(t, IsTerminalTask(models.TaskOpen))
}

func TestApplicationTransition(t *testing.T) {
	require.NoError(t, ApplicationTransition(models.ApplicationPending, models.ApplicationAccepted))
	require.NoError(t, ApplicationTransition(models.ApplicationPending, models.ApplicationCancelled))
	require.Error(t, ApplicationTransition(models.ApplicationAccepted, models.ApplicationRejected))
	require.Error(t, ApplicationTransition(models.ApplicationRejected, models.ApplicationPending))
}

func TestDisputeTransition(t *testing.T) {
	require.NoError(t, DisputeTransition(models.DisputeOpen, models.DisputeUnderReview))
	require.NoError(t, DisputeTransition(models.DisputeUnderReview, models.DisputeResolved))
	require.NoError(t, DisputeTransition(models.DisputeResolved, models.DisputeClosed))
	require.Error(t, DisputeTransition(models.DisputeClosed, models.DisputeOpen))
	require.Error(t, DisputeTransition(models.DisputeResolved, models.DisputeUnderReview))

	_, err := ParseDisputeStatus("Rejected")
	require.Error(t, err)
}

func TestEscrowTransition(t *testing.T) {
	require.NoError(t, EscrowTransition(models.PaymentHeld, models.PaymentReleased))
	require.NoError(t, EscrowTransition(models.PaymentHeld, models.PaymentRefunded))

	err := EscrowTransition(models.PaymentReleased, models.PaymentRefunded)
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, "Payment has already been released", err.Error())
}

func TestParseSwipeDirection(t *testing.T) {
	d, err := ParseSwipeDirection("RIGHT")
	require.NoError(t, err)
	require.Equal(t, models.SwipeRight, d)

	_, err = ParseSwipeDirection("up")
	require.Error(t, err)
}
