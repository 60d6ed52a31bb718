package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corzoapp/transfer_service/domain"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/relayer"
)

const (
	senderAddr    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	recipientAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeDirectory struct {
	accounts []*entity.Account
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	for _, a := range d.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) FindByName(_ context.Context, name string) (*entity.Account, error) {
	for _, a := range d.accounts {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return nil, nil
}

type fakeWallets struct {
	byUser map[string]*entity.Wallet
}

func (w *fakeWallets) Create(_ context.Context, userID string) (*entity.Wallet, error) {
	wallet := &entity.Wallet{UserID: userID, Address: senderAddr}
	w.byUser[userID] = wallet
	return wallet, nil
}

func (w *fakeWallets) Get(_ context.Context, userID string) (*entity.Wallet, error) {
	wallet, ok := w.byUser[userID]
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "get wallet", "wallet not found")
	}
	return wallet, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(_ context.Context, auth *entity.TransferAuthorization, _ *entity.Wallet) (*entity.SignedAuthorization, error) {
	sig := make([]byte, 65)
	sig[64] = 27
	return &entity.SignedAuthorization{Authorization: *auth, Signature: sig}, nil
}

type fakeRelayer struct {
	submitted []*entity.SignedAuthorization
	replies   map[string]*relayer.StatusReply
	statCalls int
}

func (r *fakeRelayer) Submit(_ context.Context, signed *entity.SignedAuthorization, _ string) (*relayer.SubmissionAck, error) {
	r.submitted = append(r.submitted, signed)
	return &relayer.SubmissionAck{AuthorizationID: "auth-1", StatusCode: 200}, nil
}

func (r *fakeRelayer) Status(_ context.Context, id, _ string) (*relayer.StatusReply, error) {
	r.statCalls++
	reply, ok := r.replies[id]
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "query relayer status", "unknown authorization id")
	}
	return reply, nil
}

type fakeSubmissions struct {
	byAuthID map[string]*entity.SubmissionRecord
}

func newFakeSubmissions() *fakeSubmissions {
	return &fakeSubmissions{byAuthID: map[string]*entity.SubmissionRecord{}}
}

func (s *fakeSubmissions) Insert(_ context.Context, rec *entity.SubmissionRecord) error {
	s.byAuthID[rec.AuthorizationID] = rec
	return nil
}

func (s *fakeSubmissions) GetByAuthorizationID(_ context.Context, id string) (*entity.SubmissionRecord, error) {
	rec, ok := s.byAuthID[id]
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "get submission", "submission not found")
	}
	return rec, nil
}

func (s *fakeSubmissions) Save(_ context.Context, rec *entity.SubmissionRecord) error {
	s.byAuthID[rec.AuthorizationID] = rec
	return nil
}

func (s *fakeSubmissions) ListOpen(_ context.Context, limit int64) ([]*entity.SubmissionRecord, error) {
	var out []*entity.SubmissionRecord
	for _, rec := range s.byAuthID {
		if !rec.Terminal() && int64(len(out)) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestTransferService(rel *fakeRelayer, subs *fakeSubmissions) *TransferService {
	directory := &fakeDirectory{accounts: []*entity.Account{
		{ID: "u2", Email: "Bob@example.com", Name: "Bob"},
	}}
	wallets := &fakeWallets{byUser: map[string]*entity.Wallet{
		"u1": {UserID: "u1", Address: senderAddr},
		"u2": {UserID: "u2", Address: recipientAddr},
	}}
	return NewTransferService(
		wallets,
		NewResolver(directory, wallets),
		domain.NewBuilder(),
		fakeSigner{},
		rel,
		subs,
		slog.Default(),
	)
}

func TestSendResolvesEmailAndSubmits(t *testing.T) {
	rel := &fakeRelayer{}
	subs := newFakeSubmissions()
	svc := newTestTransferService(rel, subs)

	res, err := svc.Send(context.Background(), "u1", "Bob@example.com", "2.50", "")
	require.NoError(t, err)
	assert.Equal(t, "auth-1", res.AuthorizationID)

	require.Len(t, rel.submitted, 1)
	sent := rel.submitted[0].Authorization
	assert.Equal(t, senderAddr, sent.From)
	assert.Equal(t, recipientAddr, sent.To)
	assert.Equal(t, "2500000", sent.Value.String())

	rec, err := subs.GetByAuthorizationID(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, rec.RelayerStatus)
	assert.Equal(t, "u1", rec.UserID)
}

func TestSendRejectsBelowMinimumBeforeSubmit(t *testing.T) {
	rel := &fakeRelayer{}
	svc := newTestTransferService(rel, newFakeSubmissions())

	_, err := svc.Send(context.Background(), "u1", "Bob@example.com", "0.50", "")
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeValidation, wrapErrors.CodeOf(err))
	assert.Empty(t, rel.submitted, "nothing may reach the relayer on validation failure")
}

func TestSendUnknownRecipient(t *testing.T) {
	rel := &fakeRelayer{}
	svc := newTestTransferService(rel, newFakeSubmissions())

	_, err := svc.Send(context.Background(), "u1", "nobody@example.com", "2.50", "")
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeNotFound, wrapErrors.CodeOf(err))
	assert.Empty(t, rel.submitted)
}

func TestSendRejectsSelfTransfer(t *testing.T) {
	rel := &fakeRelayer{}
	subs := newFakeSubmissions()
	directory := &fakeDirectory{accounts: []*entity.Account{
		{ID: "u1", Email: "alice@example.com", Name: "Alice"},
	}}
	wallets := &fakeWallets{byUser: map[string]*entity.Wallet{
		"u1": {UserID: "u1", Address: senderAddr},
	}}
	svc := NewTransferService(
		wallets, NewResolver(directory, wallets), domain.NewBuilder(),
		fakeSigner{}, rel, subs, slog.Default(),
	)

	_, err := svc.Send(context.Background(), "u1", "alice@example.com", "2.50", "")
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeConflict, wrapErrors.CodeOf(err))
}

func TestResolveEmailCaseSensitive(t *testing.T) {
	directory := &fakeDirectory{accounts: []*entity.Account{
		{ID: "u2", Email: "Bob@example.com", Name: "Bob"},
	}}
	wallets := &fakeWallets{byUser: map[string]*entity.Wallet{
		"u2": {UserID: "u2", Address: recipientAddr},
	}}
	r := NewResolver(directory, wallets)

	_, err := r.Resolve(context.Background(), "bob@example.com", senderAddr)
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeNotFound, wrapErrors.CodeOf(err))

	addr, err := r.Resolve(context.Background(), "Bob@example.com", senderAddr)
	require.NoError(t, err)
	assert.Equal(t, recipientAddr, addr)
}

func TestResolveNameIgnoresCase(t *testing.T) {
	directory := &fakeDirectory{accounts: []*entity.Account{
		{ID: "u2", Email: "Bob@example.com", Name: "Bob"},
	}}
	wallets := &fakeWallets{byUser: map[string]*entity.Wallet{
		"u2": {UserID: "u2", Address: recipientAddr},
	}}
	r := NewResolver(directory, wallets)

	addr, err := r.Resolve(context.Background(), "bob", senderAddr)
	require.NoError(t, err)
	assert.Equal(t, recipientAddr, addr)
}

func TestResolveWalletNotProvisioned(t *testing.T) {
	directory := &fakeDirectory{accounts: []*entity.Account{
		{ID: "u3", Email: "carol@example.com", Name: "Carol"},
	}}
	wallets := &fakeWallets{byUser: map[string]*entity.Wallet{}}
	r := NewResolver(directory, wallets)

	_, err := r.Resolve(context.Background(), "carol@example.com", senderAddr)
	require.Error(t, err)
	assert.Equal(t, wrapErrors.CodeNotFound, wrapErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "wallet not provisioned")
}

func TestRecipientExists(t *testing.T) {
	svc := newTestTransferService(&fakeRelayer{}, newFakeSubmissions())

	ok, err := svc.RecipientExists(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.RecipientExists(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
