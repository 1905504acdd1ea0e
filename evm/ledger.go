package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// eip3009ABI is the subset of the token contract the facilitator touches:
// two reads and the settlement call.
const eip3009ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"authorizationState","type":"function","stateMutability":"view","inputs":[{"name":"authorizer","type":"address"},{"name":"nonce","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferWithAuthorization","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"validAfter","type":"uint256"},{"name":"validBefore","type":"uint256"},{"name":"nonce","type":"bytes32"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]}
]`

// ContractBackend is the subset of the Ethereum RPC surface used by the
// ledger client. *ethclient.Client satisfies it.
type ContractBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Ledger is the read/write contract the facilitator holds against the
// token. Reads are fresh oracle queries on every call; nothing is cached.
type Ledger interface {
	// BalanceOf returns the token balance of an account.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	// AuthorizationState reports whether (authorizer, nonce) has been consumed.
	AuthorizationState(ctx context.Context, authorizer common.Address, nonce common.Hash) (bool, error)

	// TransferWithAuthorization submits the authorized transfer under the
	// facilitator's credential and returns the transaction hash.
	TransferWithAuthorization(ctx context.Context, auth *Authorization, sig Signature) (common.Hash, error)
}

// Client implements Ledger against an EIP-3009 token contract.
type Client struct {
	backend   ContractBackend
	token     common.Address
	signer    *Signer
	chainID   *big.Int
	gasPolicy GasPolicy
	abi       abi.ABI

	// mu serializes account-nonce assignment for the facilitator's own
	// transactions; concurrent settlements share one credential.
	mu sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithGasPolicy overrides the settlement gas policy. The default is
// FixedGasPolicy{Limit: DefaultSettleGasLimit}.
func WithGasPolicy(policy GasPolicy) ClientOption {
	return func(c *Client) {
		c.gasPolicy = policy
	}
}

// NewClient creates a ledger client for the given token contract.
// The signer is the facilitator's submitting credential; it pays the
// network fee for settlements.
func NewClient(backend ContractBackend, token common.Address, signer *Signer, chainID *big.Int, opts ...ClientOption) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("ledger client: backend required")
	}
	if signer == nil {
		return nil, fmt.Errorf("ledger client: signer required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("ledger client: chain id required")
	}

	parsed, err := abi.JSON(strings.NewReader(eip3009ABI))
	if err != nil {
		return nil, fmt.Errorf("ledger client: parse ABI: %w", err)
	}

	c := &Client{
		backend:   backend,
		token:     token,
		signer:    signer,
		chainID:   chainID,
		gasPolicy: FixedGasPolicy{Limit: DefaultSettleGasLimit},
		abi:       parsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial initialises an EVM RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// BalanceOf implements Ledger.
func (c *Client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	input, err := c.abi.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	results, err := c.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack balanceOf: unexpected type %T", results[0])
	}
	return balance, nil
}

// AuthorizationState implements Ledger.
func (c *Client) AuthorizationState(ctx context.Context, authorizer common.Address, nonce common.Hash) (bool, error) {
	input, err := c.abi.Pack("authorizationState", authorizer, [32]byte(nonce))
	if err != nil {
		return false, fmt.Errorf("pack authorizationState: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: input}, nil)
	if err != nil {
		return false, fmt.Errorf("call authorizationState: %w", err)
	}

	results, err := c.abi.Unpack("authorizationState", out)
	if err != nil {
		return false, fmt.Errorf("unpack authorizationState: %w", err)
	}
	used, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unpack authorizationState: unexpected type %T", results[0])
	}
	return used, nil
}

// TransferWithAuthorization implements Ledger. The transaction is signed
// with the facilitator's key and submitted with the gas limit chosen by
// the configured GasPolicy. No retry is attempted; a rejection (raced
// nonce, insufficient fee balance, network failure) surfaces to the caller.
func (c *Client) TransferWithAuthorization(ctx context.Context, auth *Authorization, sig Signature) (common.Hash, error) {
	input, err := c.abi.Pack("transferWithAuthorization",
		auth.From, auth.To, auth.Value, auth.ValidAfter, auth.ValidBefore,
		[32]byte(auth.Nonce), sig.V, sig.R, sig.S)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack transferWithAuthorization: %w", err)
	}

	gasLimit, err := c.gasPolicy.GasLimit(ctx, c.backend, ethereum.CallMsg{
		From: c.signer.Address(),
		To:   &c.token,
		Data: input,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas limit: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	accountNonce, err := c.backend.PendingNonceAt(ctx, c.signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    accountNonce,
		To:       &c.token,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})

	signed, err := c.signer.SignTx(tx, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("submit transferWithAuthorization: %w", err)
	}
	return signed.Hash(), nil
}
