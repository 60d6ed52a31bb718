package chain

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/corzoapp/transfer_service/config"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// DigestSigner is the signing capability the signer consumes. The key
// vault implements it; tests substitute an in-memory key.
type DigestSigner interface {
	SignDigest(ctx context.Context, userID string, digest []byte) ([]byte, error)
}

// transferTypes is the EIP-3009 typed-data schema. The digest binds the
// domain (token name, version, chain id, verifying contract) to the
// authorization fields, so a signature can never be replayed against a
// different contract or chain.
var transferTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"TransferWithAuthorization": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// Signer produces domain-separated, malleability-normalized signatures
// over transfer authorizations.
type Signer struct {
	domain apitypes.TypedDataDomain
	vault  DigestSigner
}

func NewSigner(cfg config.EthConfig, vault DigestSigner) *Signer {
	return &Signer{
		domain: apitypes.TypedDataDomain{
			Name:              cfg.DomainName,
			Version:           cfg.DomainVersion,
			ChainId:           math.NewHexOrDecimal256(cfg.ChainID),
			VerifyingContract: cfg.TokenAddress,
		},
		vault: vault,
	}
}

// Digest computes the EIP-712 hash for an authorization.
func (s *Signer) Digest(auth *entity.TransferAuthorization) ([]byte, error) {
	typed := apitypes.TypedData{
		Types:       transferTypes,
		PrimaryType: "TransferWithAuthorization",
		Domain:      s.domain,
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       auth.Value.String(),
			"validAfter":  strconv.FormatInt(auth.ValidAfter, 10),
			"validBefore": strconv.FormatInt(auth.ValidBefore, 10),
			"nonce":       auth.NonceHex(),
		},
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "hash typed data", err)
	}
	return digest, nil
}

// Sign computes the digest, signs it with the wallet's key, and
// normalizes the recovery byte. go-ethereum's signer already enforces
// canonical low-s, so digest+key always yields the same signature.
func (s *Signer) Sign(ctx context.Context, auth *entity.TransferAuthorization, wallet *entity.Wallet) (*entity.SignedAuthorization, error) {
	digest, err := s.Digest(auth)
	if err != nil {
		return nil, err
	}
	sig, err := s.vault.SignDigest(ctx, wallet.UserID, digest)
	if err != nil {
		return nil, err
	}
	sig, err = NormalizeV(sig)
	if err != nil {
		return nil, err
	}
	return &entity.SignedAuthorization{
		Authorization: *auth,
		Signature:     sig,
	}, nil
}

// NormalizeV maps a raw 0/1 recovery identifier to the 27/28 convention
// the verifying contract expects. A signature already carrying 27/28
// passes through unchanged.
func NormalizeV(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, wrapErrors.New(wrapErrors.CodeInternal, "normalize signature", "signature must be 65 bytes")
	}
	out := make([]byte, 65)
	copy(out, sig)
	switch out[64] {
	case 0, 1:
		out[64] += 27
	case 27, 28:
	default:
		return nil, wrapErrors.New(wrapErrors.CodeInternal, "normalize signature", "unexpected recovery identifier")
	}
	return out, nil
}
