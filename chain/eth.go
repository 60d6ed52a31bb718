package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/corzoapp/transfer_service/config"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// ETHChain reads chain state over JSON-RPC: transaction receipts for
// reconciliation and token balances for the wallet view. It never signs
// or broadcasts; the relayer owns submission.
type ETHChain struct {
	client *ethclient.Client
	token  common.Address
	abi    abi.ABI
}

func NewETHChain(cfg config.EthConfig) (*ETHChain, error) {
	client, err := ethclient.Dial(cfg.RPC)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "eth dial", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "parse erc20 abi", err)
	}
	return &ETHChain{
		client: client,
		token:  common.HexToAddress(cfg.TokenAddress),
		abi:    parsed,
	}, nil
}

// Receipt fetches the receipt for txHash. Returns (nil, nil) while the
// transaction is not yet mined; receipt status 1 maps to success, 0 to
// revert.
func (e *ETHChain) Receipt(ctx context.Context, txHash string) (*entity.Receipt, error) {
	rcpt, err := e.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "get receipt", err)
	}

	status := entity.ChainRevert
	if rcpt.Status == 1 {
		status = entity.ChainSuccess
	}
	out := &entity.Receipt{
		ChainStatus: status,
		GasUsed:     rcpt.GasUsed,
	}
	if rcpt.BlockNumber != nil {
		out.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	return out, nil
}

// TokenBalance reads the stablecoin balance of an address in base units
// via an eth_call of balanceOf.
func (e *ETHChain) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	data, err := e.abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "pack balanceOf", err)
	}
	raw, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.token, Data: data}, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "call balanceOf", err)
	}
	out, err := e.abi.Unpack("balanceOf", raw)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "unpack balanceOf", err)
	}
	if len(out) == 0 {
		return nil, wrapErrors.New(wrapErrors.CodeInternal, "unpack balanceOf", "empty return data")
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeInternal, "unpack balanceOf", "unexpected return type")
	}
	return balance, nil
}
