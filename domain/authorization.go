package domain

import (
	"crypto/rand"
	"io"
	"math/big"
	"time"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/utils"
)

const (
	// ValidAfterSkew backdates validAfter so small clock drift between
	// this service and the verifying contract cannot make a fresh
	// authorization unredeemable.
	ValidAfterSkew = 10 * time.Second

	// ValidityWindow bounds how long a signed authorization stays
	// redeemable, independent of any off-chain processing delay.
	ValidityWindow = 2 * time.Hour
)

// Builder turns validated transfer inputs into unsigned authorizations.
type Builder struct {
	minUnits *big.Int
}

// NewBuilder configures the minimum at one whole token's worth of base
// units.
func NewBuilder() *Builder {
	return &Builder{minUnits: utils.UnitsPerToken(utils.TokenDecimals)}
}

// Build validates inputs and produces a transfer authorization. All
// validation happens here, before any signing or network work, so a bad
// request never costs a relayer call.
func (b *Builder) Build(from, to, amount string, now time.Time) (*entity.TransferAuthorization, error) {
	if !entity.ValidAddress(from) {
		return nil, wrapErrors.New(wrapErrors.CodeValidation, "build authorization", "sender address not canonical")
	}
	if !entity.ValidAddress(to) {
		return nil, wrapErrors.New(wrapErrors.CodeValidation, "build authorization", "recipient address not canonical")
	}

	value, err := utils.ToBaseUnits(amount, utils.TokenDecimals)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeValidation, "parse amount", err)
	}
	if value.Cmp(b.minUnits) < 0 {
		return nil, wrapErrors.New(wrapErrors.CodeValidation, "build authorization", "amount below minimum of one token")
	}

	auth := &entity.TransferAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  now.Add(-ValidAfterSkew).Unix(),
		ValidBefore: now.Add(ValidityWindow).Unix(),
	}

	// Random nonces need no coordination state; a counter would
	// serialize concurrent builds for the same sender.
	if _, err := io.ReadFull(rand.Reader, auth.Nonce[:]); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "generate nonce", err)
	}
	return auth, nil
}
