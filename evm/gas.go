package evm

import (
	"context"

	"github.com/ethereum/go-ethereum"
)

// DefaultSettleGasLimit is the gas ceiling used when submitting
// transferWithAuthorization. eth_estimateGas on the supported networks
// under-reports for this call shape, so settlement defaults to a fixed
// ceiling that covers the call's worst-case cost instead of trusting the
// node's estimate. Override with WithGasPolicy if the node's estimator
// is reliable for your deployment.
const DefaultSettleGasLimit uint64 = 120000

// GasPolicy decides the gas limit for a settlement submission.
type GasPolicy interface {
	GasLimit(ctx context.Context, backend ContractBackend, call ethereum.CallMsg) (uint64, error)
}

// FixedGasPolicy always submits with a configured ceiling and never
// consults the node. This is the default settlement policy.
type FixedGasPolicy struct {
	// Limit is the gas ceiling. Zero means DefaultSettleGasLimit.
	Limit uint64
}

// GasLimit implements GasPolicy.
func (p FixedGasPolicy) GasLimit(ctx context.Context, backend ContractBackend, call ethereum.CallMsg) (uint64, error) {
	if p.Limit == 0 {
		return DefaultSettleGasLimit, nil
	}
	return p.Limit, nil
}

// EstimateGasPolicy asks the node for a dynamic estimate before each
// submission. Only use this where the node's estimator handles
// transferWithAuthorization correctly; see DESIGN.md for the trade-off
// against FixedGasPolicy.
type EstimateGasPolicy struct{}

// GasLimit implements GasPolicy.
func (EstimateGasPolicy) GasLimit(ctx context.Context, backend ContractBackend, call ethereum.CallMsg) (uint64, error) {
	return backend.EstimateGas(ctx, call)
}
