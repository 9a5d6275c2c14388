package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Client wraps go-ethereum RPC for the read-only calls the audit needs.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	metaCache *TokenMetaCache
	logger    *zap.Logger
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		metaCache: NewTokenMetaCache(),
		logger:    logger,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// BalanceOf returns token.balanceOf(owner) at blockNumber, or latest when nil.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address, blockNumber *big.Int) (*uint256.Int, error) {
	return BalanceOf(ctx, c, token, owner, blockNumber)
}

// TokenMeta returns cached metadata, fetching it on first use.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (TokenMeta, error) {
	if meta, ok := c.metaCache.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, c, token, c.logger)
	if err != nil {
		return meta, err
	}
	c.metaCache.Set(token, meta)
	return meta, nil
}
