package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/relayer"
)

type fakeReceipts struct {
	byHash map[string]*entity.Receipt
}

func (r *fakeReceipts) Receipt(_ context.Context, txHash string) (*entity.Receipt, error) {
	return r.byHash[txHash], nil
}

func acceptedRecord(authID string) *entity.SubmissionRecord {
	now := time.Now().UTC()
	return &entity.SubmissionRecord{
		ID:              "rec-" + authID,
		AuthorizationID: authID,
		UserID:          "u1",
		RelayerStatus:   entity.StatusAccepted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPollRevertOverridesAccepted(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "accepted", TxHash: "0xabc"},
	}}
	receipts := &fakeReceipts{byHash: map[string]*entity.Receipt{
		"0xabc": {ChainStatus: entity.ChainRevert, BlockNumber: 42, GasUsed: 21000},
	}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, receipts, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAccepted, rec.RelayerStatus)
	assert.Equal(t, entity.OutcomeRevert, rec.Outcome())
	assert.True(t, rec.Terminal())
	assert.EqualValues(t, 42, rec.Receipt.BlockNumber)
}

func TestPollUnminedStaysAccepted(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "accepted", TxHash: "0xabc"},
	}}
	receipts := &fakeReceipts{byHash: map[string]*entity.Receipt{}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, receipts, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeAccepted, rec.Outcome())
	assert.False(t, rec.Terminal())
	assert.Equal(t, "0xabc", rec.TxHash)
	assert.Nil(t, rec.Receipt)
}

func TestPollStalePendingNeverDowngradesAccepted(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "pending"},
	}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, &fakeReceipts{byHash: map[string]*entity.Receipt{}}, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAccepted, rec.RelayerStatus,
		"accepted is set once; a stale pending reply must not undo it")
}

func TestPollPendingReplyForFreshRecord(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "queued"},
	}}
	subs := newFakeSubmissions()

	svc := NewStatusService(rel, &fakeReceipts{byHash: map[string]*entity.Receipt{}}, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, rec.RelayerStatus)
}

func TestPollReconcilesJournaledHashWhenReplyOmitsIt(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "accepted"},
	}}
	receipts := &fakeReceipts{byHash: map[string]*entity.Receipt{
		"0xabc": {ChainStatus: entity.ChainSuccess, BlockNumber: 11, GasUsed: 21000},
	}}
	subs := newFakeSubmissions()
	rec := acceptedRecord("auth-1")
	rec.TxHash = "0xabc"
	require.NoError(t, subs.Insert(context.Background(), rec))

	svc := NewStatusService(rel, receipts, subs, slog.Default())
	got, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", got.TxHash, "a known hash is kept when the reply omits it")
	assert.Equal(t, entity.OutcomeSuccess, got.Outcome())
}

func TestPollRejectionWithoutHash(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "failed", Error: "insufficient balance"},
	}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, &fakeReceipts{byHash: map[string]*entity.Receipt{}}, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusRejected, rec.RelayerStatus)
	assert.Equal(t, "insufficient balance", rec.Reason)
	assert.True(t, rec.Terminal())
}

func TestPollTerminalRecordSkipsRelayer(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{}}
	subs := newFakeSubmissions()

	rec := acceptedRecord("auth-1")
	rec.TxHash = "0xabc"
	rec.Receipt = &entity.Receipt{ChainStatus: entity.ChainSuccess, BlockNumber: 7}
	require.NoError(t, subs.Insert(context.Background(), rec))

	svc := NewStatusService(rel, &fakeReceipts{}, subs, slog.Default())
	got, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSuccess, got.Outcome())
	assert.Zero(t, rel.statCalls, "terminal records must not be re-polled")
}

func TestPollServesJournalWhenRelayerForgets(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, &fakeReceipts{}, subs, slog.Default())
	rec, err := svc.Poll(context.Background(), "auth-1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, rec.RelayerStatus)
}

func TestPollUnknownID(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{}}
	svc := NewStatusService(rel, &fakeReceipts{}, newFakeSubmissions(), slog.Default())

	_, err := svc.Poll(context.Background(), "missing", "")
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeNotFound, wrapErrors.CodeOf(err))
}

func TestReconcilerSweepsOpenSubmissions(t *testing.T) {
	rel := &fakeRelayer{replies: map[string]*relayer.StatusReply{
		"auth-1": {AuthorizationID: "auth-1", Status: "accepted", TxHash: "0xabc"},
	}}
	receipts := &fakeReceipts{byHash: map[string]*entity.Receipt{
		"0xabc": {ChainStatus: entity.ChainSuccess, BlockNumber: 9},
	}}
	subs := newFakeSubmissions()
	require.NoError(t, subs.Insert(context.Background(), acceptedRecord("auth-1")))

	svc := NewStatusService(rel, receipts, subs, slog.Default())
	r := NewReconciler(svc, time.Hour, slog.Default())
	r.sweep(context.Background())

	rec, err := subs.GetByAuthorizationID(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeSuccess, rec.Outcome())

	// second sweep finds nothing open
	r.sweep(context.Background())
	assert.Equal(t, 1, rel.statCalls)
}
