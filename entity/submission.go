package entity

import "time"

// RelayerStatus is the relayer's view of a submission. Pending moves to
// Accepted or Rejected exactly once, on the relayer's first definitive
// response.
type RelayerStatus string

const (
	StatusPending  RelayerStatus = "pending"
	StatusAccepted RelayerStatus = "accepted"
	StatusRejected RelayerStatus = "rejected"
)

// ChainStatus is the on-chain outcome taken from the transaction receipt.
type ChainStatus string

const (
	ChainSuccess ChainStatus = "success"
	ChainRevert  ChainStatus = "revert"
)

// Receipt carries the reconciled on-chain facts for a submission.
type Receipt struct {
	ChainStatus ChainStatus `bson:"chain_status" json:"chain_status"`
	BlockNumber uint64      `bson:"block_number" json:"block_number"`
	GasUsed     uint64      `bson:"gas_used" json:"gas_used"`
}

// SubmissionRecord tracks one relayer submission from acceptance through
// on-chain reconciliation.
type SubmissionRecord struct {
	ID              string        `bson:"_id" json:"id"`
	AuthorizationID string        `bson:"authorization_id" json:"authorization_id"`
	UserID          string        `bson:"user_id" json:"user_id"`
	RelayerStatus   RelayerStatus `bson:"relayer_status" json:"relayer_status"`
	Reason          string        `bson:"reason,omitempty" json:"reason,omitempty"`
	TxHash          string        `bson:"tx_hash,omitempty" json:"tx_hash,omitempty"`
	Receipt         *Receipt      `bson:"receipt,omitempty" json:"receipt,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
}

// Outcome derives the submission's overall state. Chain-level truth
// overrides the relayer's optimistic accepted status once a receipt
// exists.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeSuccess  Outcome = "success"
	OutcomeRevert   Outcome = "revert"
)

func (r *SubmissionRecord) Outcome() Outcome {
	if r.Receipt != nil {
		if r.Receipt.ChainStatus == ChainSuccess {
			return OutcomeSuccess
		}
		return OutcomeRevert
	}
	switch r.RelayerStatus {
	case StatusRejected:
		return OutcomeRejected
	case StatusAccepted:
		return OutcomeAccepted
	default:
		return OutcomePending
	}
}

// Terminal reports whether the record can no longer change: an explicit
// rejection, or any on-chain receipt. Terminal records are never
// re-polled.
func (r *SubmissionRecord) Terminal() bool {
	switch r.Outcome() {
	case OutcomeRejected, OutcomeSuccess, OutcomeRevert:
		return true
	}
	return false
}
