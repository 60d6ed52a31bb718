package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

const (
	fromAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	toAddr   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestBuildWindow(t *testing.T) {
	b := NewBuilder()
	now := time.Now()

	auth, err := b.Build(fromAddr, toAddr, "2.50", now)
	require.NoError(t, err)

	assert.Equal(t, int64(7210), auth.ValidBefore-auth.ValidAfter)
	assert.LessOrEqual(t, auth.ValidAfter, now.Unix())
	assert.Equal(t, "2500000", auth.Value.String())
	assert.Equal(t, fromAddr, auth.From)
	assert.Equal(t, toAddr, auth.To)
}

func TestBuildRejectsBelowMinimum(t *testing.T) {
	b := NewBuilder()

	// 0.50 parses to 500000 units, below one whole token
	auth, err := b.Build(fromAddr, toAddr, "0.50", time.Now())
	require.Error(t, err)
	assert.Nil(t, auth)
	assert.Equal(t, wrapErrors.CodeValidation, wrapErrors.CodeOf(err))

	// exactly one token passes
	_, err = b.Build(fromAddr, toAddr, "1.00", time.Now())
	assert.NoError(t, err)
}

func TestBuildRejectsBadInput(t *testing.T) {
	b := NewBuilder()
	now := time.Now()

	cases := map[string]struct{ from, to, amount string }{
		"non-numeric amount":    {fromAddr, toAddr, "abc"},
		"negative amount":       {fromAddr, toAddr, "-2"},
		"over-precise amount":   {fromAddr, toAddr, "1.0000001"},
		"bad sender address":    {"0x123", toAddr, "2.00"},
		"bad recipient address": {fromAddr, "bbbb", "2.00"},
	}
	for name, tc := range cases {
		_, err := b.Build(tc.from, tc.to, tc.amount, now)
		require.Error(t, err, name)
		assert.Equal(t, wrapErrors.CodeValidation, wrapErrors.CodeOf(err), name)
	}
}

func TestNonceUniqueness(t *testing.T) {
	b := NewBuilder()
	now := time.Now()

	seen := make(map[[32]byte]bool, 10000)
	for i := 0; i < 10000; i++ {
		auth, err := b.Build(fromAddr, toAddr, "2.00", now)
		require.NoError(t, err)
		require.False(t, seen[auth.Nonce], "duplicate nonce at iteration %d", i)
		seen[auth.Nonce] = true
	}
}
