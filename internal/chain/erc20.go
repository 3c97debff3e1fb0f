package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20DecimalsABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	decimalsABI     abi.ABI
	decimalsABIOnce sync.Once
	decimalsABIErr  error
)

func getDecimalsABI() (abi.ABI, error) {
	decimalsABIOnce.Do(func() {
		decimalsABI, decimalsABIErr = abi.JSON(strings.NewReader(erc20DecimalsABIJSON))
	})
	return decimalsABI, decimalsABIErr
}

// ContractCaller is the subset of an RPC client needed for read-only calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetchDecimals calls decimals() on an ERC20 token at the latest block.
func FetchDecimals(ctx context.Context, caller ContractCaller, token common.Address) (uint8, error) {
	if caller == nil {
		return 0, fmt.Errorf("contract caller is nil")
	}
	erc20, err := getDecimalsABI()
	if err != nil {
		return 0, err
	}

	data, err := erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}

	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}

	values, err := erc20.Unpack("decimals", resp)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("decimals return size %d", len(values))
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return d, nil
}
