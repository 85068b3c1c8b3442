package services

import (
	"context"
	"testing"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestReviewTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	open := f.task(t, alice.ID, nil, models.TaskOpen)
	done := f.task(t, alice.ID, nil, models.TaskCompleted)

	in := ReviewInput{ReviewedUserID: bob.ID, Rating: 4, Comment: "Tidy work"}

	_, err := f.svc.Reviews.ReviewTask(ctx, open.ID, in, alice.ID)
	require.EqualError(t, err, "Can only review completed tasks")

	_, err = f.svc.Reviews.ReviewTask(ctx, done.ID, ReviewInput{ReviewedUserID: bob.ID, Rating: 6}, alice.ID)
	requireKind(t, err, apperr.KindValidation)

	review, err := f.svc.Reviews.ReviewTask(ctx, done.ID, in, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 4, review.Rating)
	require.Contains(t, f.events(t, realtime.UserGroup(bob.ID)), realtime.EventNewReview)

	_, err = f.svc.Reviews.ReviewTask(ctx, done.ID, ReviewInput{ReviewedUserID: bob.ID, Rating: 2}, alice.ID)
	require.NoError(t, err)

	rating, err := f.svc.Users.GetRating(ctx, bob.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.0, rating, 0.001)

	reviews, err := f.svc.Users.GetReviews(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.Equal(t, "Alice", reviews[0].ReviewerName)

	listed, err := f.svc.Reviews.ListTaskReviews(ctx, done.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestDisputeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	mallory := f.user(t, "Mallory")
	task := f.task(t, alice.ID, nil, models.TaskInProgress)

	_, err := f.svc.Reviews.CreateDispute(ctx, "missing", DisputeInput{Reason: "late"}, bob.ID)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Reviews.CreateDispute(ctx, task.ID, DisputeInput{}, bob.ID)
	requireKind(t, err, apperr.KindValidation)

	dispute, err := f.svc.Reviews.CreateDispute(ctx, task.ID, DisputeInput{Reason: "Work not done", Evidence: "photos"}, bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.DisputeOpen, dispute.Status)
	require.Equal(t, []string{"New dispute raised by Bob for task '" + task.Title + "'"}, f.messages(t, alice.ID))
	require.Contains(t, f.events(t, realtime.TaskGroup(task.ID)), realtime.EventDisputeUpdated)

	_, err = f.svc.Reviews.UpdateDisputeStatus(ctx, dispute.ID, "UnderReview", "", mallory.ID)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Reviews.UpdateDisputeStatus(ctx, dispute.ID, "Resolved", "", alice.ID)
	requireKind(t, err, apperr.KindValidation)

	reviewing, err := f.svc.Reviews.UpdateDisputeStatus(ctx, dispute.ID, "underreview", "", alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.DisputeUnderReview, reviewing.Status)

	resolved, err := f.svc.Reviews.UpdateDisputeStatus(ctx, dispute.ID, "Resolved", "Partial refund agreed", bob.ID)
	require.NoError(t, err)
	require.Equal(t, "Partial refund agreed", resolved.Resolution)

	want := "Dispute for task '" + task.Title + "' has been resolved"
	require.Contains(t, f.messages(t, alice.ID), want)
	require.Contains(t, f.messages(t, bob.ID), want)

	_, err = f.svc.Reviews.UpdateDisputeStatus(ctx, dispute.ID, "Open", "", alice.ID)
	requireKind(t, err, apperr.KindValidation)

	disputes, err := f.svc.Reviews.ListTaskDisputes(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, disputes, 1)
	require.Equal(t, models.DisputeResolved, disputes[0].Status)
}
