package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corzoapp/transfer_service/domain"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/relayer"
)

// Directory looks up accounts in the user directory. Lookups return
// (nil, nil) when no account matches; errors are infrastructure faults.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByName(ctx context.Context, name string) (*entity.Account, error)
}

// WalletStore provisions and looks up custodial wallets. Key material
// stays behind it.
type WalletStore interface {
	Create(ctx context.Context, userID string) (*entity.Wallet, error)
	Get(ctx context.Context, userID string) (*entity.Wallet, error)
}

// AuthSigner signs built authorizations.
type AuthSigner interface {
	Sign(ctx context.Context, auth *entity.TransferAuthorization, wallet *entity.Wallet) (*entity.SignedAuthorization, error)
}

// Relayer submits signed authorizations and reports their status.
type Relayer interface {
	Submit(ctx context.Context, signed *entity.SignedAuthorization, originIP string) (*relayer.SubmissionAck, error)
	Status(ctx context.Context, authorizationID, originIP string) (*relayer.StatusReply, error)
}

// Submissions is the journal of relayer submissions.
type Submissions interface {
	Insert(ctx context.Context, rec *entity.SubmissionRecord) error
	GetByAuthorizationID(ctx context.Context, authorizationID string) (*entity.SubmissionRecord, error)
	Save(ctx context.Context, rec *entity.SubmissionRecord) error
	ListOpen(ctx context.Context, limit int64) ([]*entity.SubmissionRecord, error)
}

// Resolver maps a human identifier (email or display name) to the
// recipient's wallet address. Resolution is read-only and safe to call
// concurrently.
type Resolver struct {
	directory Directory
	wallets   WalletStore
}

func NewResolver(directory Directory, wallets WalletStore) *Resolver {
	return &Resolver{directory: directory, wallets: wallets}
}

// Resolve finds the recipient by exact email (case-sensitive) when the
// identifier contains '@', otherwise by exact name ignoring case. The
// resolved address is re-checked against the canonical form before use.
func (r *Resolver) Resolve(ctx context.Context, identifier, senderAddress string) (string, error) {
	var (
		acct *entity.Account
		err  error
	)
	if strings.Contains(identifier, "@") {
		acct, err = r.directory.FindByEmail(ctx, identifier)
	} else {
		acct, err = r.directory.FindByName(ctx, identifier)
	}
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", wrapErrors.New(wrapErrors.CodeNotFound, "resolve recipient", "recipient not found")
	}

	wallet, err := r.wallets.Get(ctx, acct.ID)
	if err != nil {
		if wrapErrors.CodeOf(err) == wrapErrors.CodeNotFound {
			return "", wrapErrors.New(wrapErrors.CodeNotFound, "resolve recipient", "recipient wallet not provisioned")
		}
		return "", err
	}

	if !entity.ValidAddress(wallet.Address) {
		return "", wrapErrors.New(wrapErrors.CodeInternal, "resolve recipient", "stored recipient address not canonical")
	}
	if strings.EqualFold(wallet.Address, senderAddress) {
		return "", wrapErrors.New(wrapErrors.CodeConflict, "resolve recipient", "self transfer not allowed")
	}
	return wallet.Address, nil
}

// TransferResult is the acknowledgement returned to the caller once the
// relayer has accepted a submission. Confirmation happens later, via
// status polling.
type TransferResult struct {
	AuthorizationID string
	Signed          *entity.SignedAuthorization
	Ack             *relayer.SubmissionAck
}

// TransferService runs the full gasless transfer pipeline: resolve
// recipient, load sender wallet, build, sign, submit, journal.
type TransferService struct {
	wallets     WalletStore
	resolver    *Resolver
	builder     *domain.Builder
	signer      AuthSigner
	relayer     Relayer
	submissions Submissions
	log         *slog.Logger
}

func NewTransferService(
	wallets WalletStore,
	resolver *Resolver,
	builder *domain.Builder,
	signer AuthSigner,
	rel Relayer,
	submissions Submissions,
	log *slog.Logger,
) *TransferService {
	return &TransferService{
		wallets:     wallets,
		resolver:    resolver,
		builder:     builder,
		signer:      signer,
		relayer:     rel,
		submissions: submissions,
		log:         log,
	}
}

// Send executes one transfer request. All local validation fails before
// any signing or network call; the request/response boundary ends at the
// relayer's accept/reject.
func (s *TransferService) Send(ctx context.Context, userID, recipient, amount, originIP string) (*TransferResult, error) {
	wallet, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	toAddress, err := s.resolver.Resolve(ctx, recipient, wallet.Address)
	if err != nil {
		return nil, err
	}

	auth, err := s.builder.Build(wallet.Address, toAddress, amount, time.Now())
	if err != nil {
		return nil, err
	}

	signed, err := s.signer.Sign(ctx, auth, wallet)
	if err != nil {
		return nil, err
	}

	ack, err := s.relayer.Submit(ctx, signed, originIP)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &entity.SubmissionRecord{
		ID:              uuid.NewString(),
		AuthorizationID: ack.AuthorizationID,
		UserID:          userID,
		RelayerStatus:   entity.StatusAccepted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// a journal failure must not undo an already-accepted submission
	if err := s.submissions.Insert(ctx, rec); err != nil {
		s.log.Warn("failed to journal submission",
			"authorization_id", ack.AuthorizationID, "err", err)
	}

	return &TransferResult{
		AuthorizationID: ack.AuthorizationID,
		Signed:          signed,
		Ack:             ack,
	}, nil
}

// CreateWallet provisions the custodial wallet for a user; called by the
// registration flow.
func (s *TransferService) CreateWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	return s.wallets.Create(ctx, userID)
}

// Wallet returns the user's wallet.
func (s *TransferService) Wallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	return s.wallets.Get(ctx, userID)
}

// RecipientExists reports whether an identifier resolves to a known
// account; used by the send form's pre-check.
func (s *TransferService) RecipientExists(ctx context.Context, identifier string) (bool, error) {
	var (
		acct *entity.Account
		err  error
	)
	if strings.Contains(identifier, "@") {
		acct, err = s.resolver.directory.FindByEmail(ctx, identifier)
	} else {
		acct, err = s.resolver.directory.FindByName(ctx, identifier)
	}
	if err != nil {
		return false, err
	}
	return acct != nil, nil
}
