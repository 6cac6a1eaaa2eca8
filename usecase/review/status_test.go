package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapcrew/backend/domain"
)

func TestSetStatus_Approve(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.ClaimedBy = int64Ptr(200)
	task.Review.ClaimedAt = timePtr(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	f := newFixture(task)

	res, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsChanged)

	require.NotNil(t, res.Task.Review.Status)
	assert.Equal(t, domain.ReviewApproved, *res.Task.Review.Status)
	require.NotNil(t, res.Task.Review.ReviewedBy)
	assert.Equal(t, int64(200), *res.Task.Review.ReviewedBy)
	assert.Nil(t, res.Task.Review.ClaimedBy, "terminal status clears the claim")
	require.NotNil(t, res.Task.Review.ReviewStartedAt, "claim time becomes the review start")

	require.Len(t, f.locker.unlocks, 1)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ReviewApproved, f.history.entries[0].Status)
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewStatus(42), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestSetStatus_NonReviewerCannotApprove(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))

	_, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewApproved, "", "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestSetStatus_MapperMayDispute(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewRejected)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	res, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewDisputed, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewDisputed, *res.Task.Review.Status)
}

func TestSetStatus_LockedByOtherFailsWhole(t *testing.T) {
	task := requestedTask(1, 10, 100)
	f := newFixture(task)
	f.tasks.lock(1, 999)

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	assert.ErrorIs(t, err, domain.ErrLockedByOther)

	got, getErr := f.tasks.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ReviewRequested, *got.Review.Status, "nothing applied on a lock conflict")
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.metrics.updates)
}

func TestSetStatus_BundlePrimaryLockedHoldsBackChildren(t *testing.T) {
	primary := requestedTask(1, 10, 100)
	primary.BundleID = int64Ptr(5)
	primary.IsBundlePrimary = boolPtr(true)
	child := requestedTask(2, 10, 100)
	child.BundleID = int64Ptr(5)

	f := newFixture(primary, child)
	f.bundles.bundles[5] = &domain.TaskBundle{ID: 5, TaskIDs: []int64{1, 2}}
	f.tasks.lock(1, 999)

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	assert.ErrorIs(t, err, domain.ErrLockedByOther)

	for _, id := range []int64{1, 2} {
		got, getErr := f.tasks.GetByID(context.Background(), id)
		require.NoError(t, getErr)
		assert.Equal(t, domain.ReviewRequested, *got.Review.Status, "task %d must not move when any bundle member is held", id)
	}
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.metrics.updates)
	assert.Empty(t, f.notifier.sent)
}

func TestSetStatus_LockedBundleChildHoldsBackPrimary(t *testing.T) {
	primary := requestedTask(1, 10, 100)
	primary.BundleID = int64Ptr(5)
	primary.IsBundlePrimary = boolPtr(true)
	child := requestedTask(2, 10, 100)
	child.BundleID = int64Ptr(5)

	f := newFixture(primary, child)
	f.bundles.bundles[5] = &domain.TaskBundle{ID: 5, TaskIDs: []int64{1, 2}}
	f.tasks.lock(2, 999)

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	assert.ErrorIs(t, err, domain.ErrLockedByOther)

	got, getErr := f.tasks.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ReviewRequested, *got.Review.Status)
	assert.Empty(t, f.history.entries)
}

func TestSetStatus_RejectThenReRequestAttribution(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewRejected)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	res, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewRequested, "", "")
	require.NoError(t, err)

	require.NotNil(t, res.Task.Review.RequestedBy)
	assert.Equal(t, int64(100), *res.Task.Review.RequestedBy, "re-request credits the requester, not the reviewer")
	require.NotNil(t, res.Task.Review.ReviewedBy)
	assert.Equal(t, int64(200), *res.Task.Review.ReviewedBy, "previous reviewer attribution is preserved")

	require.Len(t, f.history.entries, 1, "exactly one audit row per transition")
	assert.Empty(t, f.metrics.updates, "a plain re-request earns no score")
}

func TestSetStatus_UnnecessaryFromRequested(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))

	res, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewUnnecessary, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsChanged)
	assert.Equal(t, domain.ReviewUnnecessary, *res.Task.Review.Status)
	assert.Empty(t, f.metrics.updates, "unnecessary never scores")
	assert.Empty(t, f.notifier.sent, "unnecessary never notifies")
}

func TestSetStatus_UnnecessaryFromApprovedIsNoop(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewApproved)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	res, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewUnnecessary, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsChanged)
	assert.Equal(t, domain.ReviewApproved, *res.Task.Review.Status, "a completed review cannot be withdrawn")
	assert.Empty(t, f.history.entries)
}

func TestSetStatus_UnnecessaryRequiresWriteAccess(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))
	f.perms.writeErr = domain.ErrNotAuthorized

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewUnnecessary, "", "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestSetStatus_ApproveScoresBothSides(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.ClaimedBy = int64Ptr(200)
	claimedAt := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	task.Review.ClaimedAt = &claimedAt
	f := newFixture(task)

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	require.NoError(t, err)

	require.Len(t, f.metrics.updates, 2)
	requesterUpd := f.metrics.updates[0]
	assert.Equal(t, int64(100), requesterUpd.UserID)
	assert.False(t, requesterUpd.AsReviewer)

	reviewerUpd := f.metrics.updates[1]
	assert.Equal(t, int64(200), reviewerUpd.UserID)
	assert.True(t, reviewerUpd.AsReviewer)
	assert.Equal(t, claimedAt.UnixMilli(), reviewerUpd.ReviewStartMs)
}

func TestSetStatus_DisputeScoresBothSidesAsDisputed(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewRejected)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	_, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewDisputed, "", "")
	require.NoError(t, err)

	require.Len(t, f.metrics.updates, 2)
	reviewerUpd := f.metrics.updates[0]
	assert.Equal(t, int64(200), reviewerUpd.UserID)
	assert.True(t, reviewerUpd.AsReviewer)
	assert.Equal(t, domain.ReviewDisputed, reviewerUpd.ReviewStatus)

	requesterUpd := f.metrics.updates[1]
	assert.Equal(t, int64(100), requesterUpd.UserID)
	assert.True(t, requesterUpd.IsRevision, "dispute rolls back the requester's booked result")
}

func TestSetStatus_ReDisputeIsPlainTransition(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewDisputed)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	res, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewDisputed, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsChanged)
	assert.Empty(t, f.metrics.updates, "repeating disputed earns nothing")
}

func TestSetStatus_NotifiesRequester(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "thanks")
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(100), f.notifier.sent[0].recipientID)
	assert.Equal(t, domain.ReviewApproved, f.notifier.sent[0].status)
	require.Len(t, f.comments.created, 1)
	assert.Equal(t, "thanks", f.comments.created[0])
}

func TestSetStatus_DisputeSkipsNotification(t *testing.T) {
	task := requestedTask(1, 10, 100)
	task.Review.Status = statusPtr(domain.ReviewRejected)
	task.Review.ReviewedBy = int64Ptr(200)
	f := newFixture(task)

	_, err := f.svc.SetStatus(context.Background(), mapper(100), 1, domain.ReviewDisputed, "", "")
	require.NoError(t, err)
	assert.Empty(t, f.notifier.sent)
}

func TestSetStatus_BundlePrimaryMovesMembers(t *testing.T) {
	primary := requestedTask(1, 10, 100)
	primary.BundleID = int64Ptr(5)
	primary.IsBundlePrimary = boolPtr(true)
	child := requestedTask(2, 10, 100)
	child.BundleID = int64Ptr(5)

	f := newFixture(primary, child)
	f.bundles.bundles[5] = &domain.TaskBundle{ID: 5, TaskIDs: []int64{1, 2}}

	res, err := f.svc.SetStatus(context.Background(), reviewer(200), 1, domain.ReviewApproved, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsChanged)

	childRow, err := f.tasks.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, *childRow.Review.Status)

	require.Len(t, f.history.entries, 1, "audit follows the primary only")
	assert.Equal(t, int64(1), f.history.entries[0].TaskID)
	assert.Len(t, f.locker.unlocks, 2)
}

func TestSetStatus_BundleChildSkipsHistoryAndNotification(t *testing.T) {
	child := requestedTask(2, 10, 100)
	child.BundleID = int64Ptr(5)
	f := newFixture(child)

	_, err := f.svc.SetStatus(context.Background(), reviewer(200), 2, domain.ReviewApproved, "", "")
	require.NoError(t, err)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.notifier.sent)
}
