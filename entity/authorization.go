package entity

import (
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NonceSize is the byte length of a transfer authorization nonce.
const NonceSize = 32

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a canonical 0x-prefixed 40-hex-digit
// address string.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// TransferAuthorization is an unsigned, time-bounded transfer instruction.
// Built per request and never reused; the random nonce makes concurrent
// builds for the same sender replay-safe without coordination.
type TransferAuthorization struct {
	From        string
	To          string
	Value       *big.Int // token base units
	ValidAfter  int64    // unix seconds
	ValidBefore int64    // unix seconds
	Nonce       [NonceSize]byte
}

// NonceHex returns the nonce as a 0x-prefixed hex string, the form the
// relayer wire format and the typed-data message both use.
func (a *TransferAuthorization) NonceHex() string {
	return hexutil.Encode(a.Nonce[:])
}

// SignedAuthorization couples an authorization with its 65-byte
// r‖s‖v signature, v already normalized to 27/28.
type SignedAuthorization struct {
	Authorization TransferAuthorization
	Signature     []byte
}

// SignatureHex returns the signature as a 0x-prefixed hex string
// (132 characters for a 65-byte signature).
func (s *SignedAuthorization) SignatureHex() string {
	return hexutil.Encode(s.Signature)
}
