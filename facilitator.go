package facilitator

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mark3labs/x402-facilitator/evm"
)

// Facilitator verifies payment authorizations and settles them on-chain.
// It is stateless between requests: every decision input is re-read from
// the ledger, so instances are safe for concurrent use.
type Facilitator struct {
	network string
	scheme  string
	asset   TokenConfig
	chainID *big.Int
	domain  evm.Domain

	ledger evm.Ledger
	signer *evm.Signer
	sink   EventSink
	logger *slog.Logger

	// now is the time source for the validity-window check; replaced in tests.
	now func() time.Time
}

// Option configures a Facilitator.
type Option func(*Facilitator) error

// New creates a Facilitator. A ledger, signer, network, chain id and asset
// are required; the scheme defaults to "exact".
func New(opts ...Option) (*Facilitator, error) {
	f := &Facilitator{
		scheme: SchemeExact,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	if f.ledger == nil {
		return nil, fmt.Errorf("facilitator: ledger required")
	}
	if f.signer == nil {
		return nil, fmt.Errorf("facilitator: signer required")
	}
	if f.network == "" {
		return nil, fmt.Errorf("facilitator: network required")
	}
	if f.chainID == nil || f.chainID.Sign() <= 0 {
		return nil, fmt.Errorf("facilitator: chain id required")
	}
	if f.asset.Address == "" {
		return nil, fmt.Errorf("facilitator: asset required")
	}

	f.domain = evm.Domain{
		Name:              f.asset.Name,
		Version:           f.asset.Version,
		ChainID:           f.chainID,
		VerifyingContract: common.HexToAddress(f.asset.Address),
	}
	return f, nil
}

// WithChain configures network, chain id and USDC asset from a ChainConfig.
func WithChain(chain ChainConfig) Option {
	return func(f *Facilitator) error {
		f.network = chain.NetworkID
		f.chainID = chain.ChainID
		f.asset = chain.USDCToken()
		return nil
	}
}

// WithNetwork sets the network identifier the facilitator serves.
func WithNetwork(network string) Option {
	return func(f *Facilitator) error {
		f.network = network
		return nil
	}
}

// WithScheme sets the payment scheme the facilitator serves.
func WithScheme(scheme string) Option {
	return func(f *Facilitator) error {
		f.scheme = scheme
		return nil
	}
}

// WithChainID sets the EVM chain id used in the signature domain.
func WithChainID(chainID *big.Int) Option {
	return func(f *Facilitator) error {
		f.chainID = chainID
		return nil
	}
}

// WithAsset sets the token the facilitator settles. The token's Name and
// Version become the EIP-712 domain parameters for signature recovery.
func WithAsset(asset TokenConfig) Option {
	return func(f *Facilitator) error {
		f.asset = asset
		return nil
	}
}

// WithLedger sets the ledger used for balance, nonce-state and settlement calls.
func WithLedger(ledger evm.Ledger) Option {
	return func(f *Facilitator) error {
		f.ledger = ledger
		return nil
	}
}

// WithSigner sets the facilitator's submitting credential.
func WithSigner(signer *evm.Signer) Option {
	return func(f *Facilitator) error {
		f.signer = signer
		return nil
	}
}

// WithEventSink injects a lifecycle event sink.
func WithEventSink(sink EventSink) Option {
	return func(f *Facilitator) error {
		f.sink = sink
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facilitator) error {
		f.logger = logger
		return nil
	}
}

// WithClock overrides the time source for the validity-window check.
func WithClock(now func() time.Time) Option {
	return func(f *Facilitator) error {
		f.now = now
		return nil
	}
}

// Network returns the network identifier the facilitator serves.
func (f *Facilitator) Network() string {
	return f.network
}

// Scheme returns the payment scheme the facilitator serves.
func (f *Facilitator) Scheme() string {
	return f.scheme
}

// Supported advertises the facilitator's capabilities, including the
// address settlements are submitted from.
func (f *Facilitator) Supported() *SupportedResponse {
	return &SupportedResponse{
		X402Version: X402Version,
		Schemes:     []string{f.scheme},
		Networks:    []string{f.network},
		Assets: []SupportedAsset{{
			Network: f.network,
			Asset:   f.asset.Address,
			Name:    f.asset.Name,
		}},
		SignerAddress: f.signer.Address().Hex(),
	}
}

// matchRequirements confirms the payment's declared network and scheme
// match the facilitator's configuration. It runs before any cryptographic
// work or ledger round-trip so unsupported requests are rejected cheaply.
func (f *Facilitator) matchRequirements(payment *PaymentPayload, requirement *PaymentRequirement) error {
	if payment.Network != f.network {
		return fmt.Errorf("%w: got %q, serving %q", ErrNetworkMismatch, payment.Network, f.network)
	}
	if requirement.Network != f.network {
		return fmt.Errorf("%w: requirement wants %q, serving %q", ErrNetworkMismatch, requirement.Network, f.network)
	}
	if payment.Scheme != f.scheme {
		return fmt.Errorf("%w: got %q, serving %q", ErrSchemeMismatch, payment.Scheme, f.scheme)
	}
	if requirement.Scheme != f.scheme {
		return fmt.Errorf("%w: requirement wants %q, serving %q", ErrSchemeMismatch, requirement.Scheme, f.scheme)
	}
	return nil
}
