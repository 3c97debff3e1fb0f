package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and caches token decimals.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		decimals:  make(map[common.Address]uint8),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// TokenDecimals returns the ERC20 decimals of token, using an in-memory cache.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	c.mu.RLock()
	d, ok := c.decimals[token]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	d, err := FetchDecimals(ctx, c, token)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.decimals[token] = d
	c.mu.Unlock()
	return d, nil
}
