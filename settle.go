package facilitator

import (
	"context"
	"fmt"

	"github.com/mark3labs/x402-facilitator/evm"
)

// Settle verifies and then executes a payment on-chain. The full
// verification pipeline runs again even if the caller verified earlier:
// ledger state can change between a verify and a settle, so a prior valid
// result is never trusted. The re-verify narrows but does not close the
// race between two concurrent settles for the same (from, nonce); the
// ledger's atomic nonce-uniqueness check decides the winner.
func (f *Facilitator) Settle(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) *SettlementResponse {
	f.emitBeforeSettle(ctx, payment, requirement)

	result := f.settle(ctx, payment, requirement)
	if result.Success {
		f.logger.Info("payment settled", "transaction", result.Transaction, "payer", result.Payer, "network", f.network)
	} else {
		f.logger.Info("settlement rejected", "reason", result.ErrorReason, "network", f.network)
	}

	f.emitSettleResult(ctx, payment, requirement, result)
	return result
}

func (f *Facilitator) settle(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) *SettlementResponse {
	verification, auth := f.validate(ctx, payment, requirement)
	if !verification.IsValid {
		return f.settlementFailed(verification.InvalidReason)
	}

	sig, err := evm.SplitSignature(payment.Payload.Signature)
	if err != nil {
		return f.settlementFailed(err.Error())
	}

	txHash, err := f.ledger.TransferWithAuthorization(ctx, auth, sig)
	if err != nil {
		// No retry: the client must resubmit, with a fresh authorization
		// if the nonce or window was consumed in the meantime.
		f.logger.Error("settlement submission failed", "error", err, "payer", verification.Payer)
		return f.settlementFailed(fmt.Sprintf("%v: %v", ErrSettlementFailed, err))
	}

	return &SettlementResponse{
		Success:     true,
		Transaction: txHash.Hex(),
		Network:     f.network,
		Payer:       verification.Payer,
	}
}

func (f *Facilitator) settlementFailed(reason string) *SettlementResponse {
	return &SettlementResponse{
		Success:     false,
		ErrorReason: reason,
		Network:     f.network,
	}
}
