package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// Receipts fetches on-chain transaction receipts. Returns (nil, nil)
// while the transaction is unmined.
type Receipts interface {
	Receipt(ctx context.Context, txHash string) (*entity.Receipt, error)
}

// StatusService reconciles submissions against the relayer and, once a
// transaction hash is known, against on-chain receipts. Polling is
// idempotent; the chain receipt overrides the relayer's optimistic
// accepted status.
type StatusService struct {
	relayer     Relayer
	receipts    Receipts
	submissions Submissions
	log         *slog.Logger
}

func NewStatusService(rel Relayer, receipts Receipts, submissions Submissions, log *slog.Logger) *StatusService {
	return &StatusService{
		relayer:     rel,
		receipts:    receipts,
		submissions: submissions,
		log:         log,
	}
}

// Poll returns the current submission record for an authorization id,
// refreshing it from the relayer and chain unless it is already
// terminal. Unknown ids fail with not-found.
func (s *StatusService) Poll(ctx context.Context, authorizationID, originIP string) (*entity.SubmissionRecord, error) {
	rec, err := s.submissions.GetByAuthorizationID(ctx, authorizationID)
	if err != nil && wrapErrors.CodeOf(err) != wrapErrors.CodeNotFound {
		return nil, err
	}
	if rec != nil && rec.Terminal() {
		return rec, nil
	}

	reply, err := s.relayer.Status(ctx, authorizationID, originIP)
	if err != nil {
		// keep serving the journaled view when the relayer has
		// forgotten an id we know about
		if rec != nil && wrapErrors.CodeOf(err) == wrapErrors.CodeNotFound {
			return rec, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	if rec == nil {
		rec = &entity.SubmissionRecord{
			ID:              uuid.NewString(),
			AuthorizationID: authorizationID,
			CreatedAt:       now,
		}
	}
	rec.UpdatedAt = now

	switch reply.Status {
	case "pending", "queued":
		// accepted/rejected is set once and never steps back to pending;
		// a stale relayer view must not undo the submit-time acceptance
		if rec.RelayerStatus == "" || rec.RelayerStatus == entity.StatusPending {
			rec.RelayerStatus = entity.StatusPending
		}
	case "rejected", "failed":
		// terminal failure without a hash is a rejection with the
		// relayer's stated reason; with a hash the receipt decides
		if reply.TxHash == "" {
			rec.RelayerStatus = entity.StatusRejected
			rec.Reason = reply.Error
		} else {
			rec.RelayerStatus = entity.StatusAccepted
		}
	default:
		rec.RelayerStatus = entity.StatusAccepted
	}

	// prefer the relayer's hash, but keep reconciling one we already know
	// even when a later reply omits it
	txHash := reply.TxHash
	if txHash == "" {
		txHash = rec.TxHash
	}
	if txHash != "" {
		rec.TxHash = txHash
		receipt, err := s.receipts.Receipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			rec.Receipt = receipt
		}
	}

	if err := s.submissions.Save(ctx, rec); err != nil {
		s.log.Warn("failed to save submission record",
			"authorization_id", authorizationID, "err", err)
	}
	return rec, nil
}

// Reconciler periodically polls open submissions in the background so
// confirmation lands even when no client is asking.
type Reconciler struct {
	status   *StatusService
	interval time.Duration
	log      *slog.Logger
}

func NewReconciler(status *StatusService, interval time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{status: status, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, sweeping open submissions once per
// interval. Individual poll failures are logged and retried on the next
// sweep.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	open, err := r.status.submissions.ListOpen(ctx, 100)
	if err != nil {
		r.log.Warn("reconciler: list open submissions", "err", err)
		return
	}
	for _, rec := range open {
		if _, err := r.status.Poll(ctx, rec.AuthorizationID, ""); err != nil {
			r.log.Warn("reconciler: poll submission",
				"authorization_id", rec.AuthorizationID, "err", err)
		}
	}
}
