package facilitator

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mark3labs/x402-facilitator/evm"
)

// Verify runs the verification pipeline against one payment and one
// requirement. The result is always structured: pipeline rejections and
// ledger transport failures alike surface as an invalid result with a
// human-readable reason, never as an error.
func (f *Facilitator) Verify(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) *VerifyResponse {
	f.emitBeforeVerify(ctx, payment, requirement)

	result, _ := f.validate(ctx, payment, requirement)
	if result.IsValid {
		f.logger.Info("payment verified", "payer", result.Payer, "network", f.network)
	} else {
		f.logger.Info("payment rejected", "reason", result.InvalidReason, "network", f.network)
	}

	f.emitVerifyResult(ctx, payment, requirement, result)
	return result
}

// validate is the ordered, short-circuiting rule pipeline. The order is a
// contract: callers rely on receiving the most specific failure first.
//
//  1. recovered signer matches authorization.from
//  2. validAfter <= now < validBefore
//  3. (from, nonce) not yet consumed on the ledger
//  4. ledger balance covers the required amount
//  5. authorized value covers the required amount
//  6. recipient matches payTo
//  7. requirement asset matches the configured asset
//
// It also returns the decoded authorization for the settlement path.
func (f *Facilitator) validate(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) (*VerifyResponse, *evm.Authorization) {
	if err := f.matchRequirements(payment, requirement); err != nil {
		return invalid(err.Error()), nil
	}

	auth, err := decodeAuthorization(&payment.Payload.Authorization)
	if err != nil {
		return invalid(err.Error()), nil
	}

	amount, err := ParseAmount(requirement.Amount)
	if err != nil {
		return invalid(fmt.Sprintf("invalid requirement amount %q", requirement.Amount)), nil
	}

	// 1. signature and signer identity
	signer, err := evm.RecoverSigner(f.domain, auth, payment.Payload.Signature)
	if err != nil {
		return invalid(err.Error()), nil
	}
	if signer != auth.From {
		return invalid(fmt.Sprintf("%s: recovered %s, authorization from %s",
			ReasonSignerMismatch, signer.Hex(), auth.From.Hex())), nil
	}

	// 2. validity window: inclusive lower bound, exclusive upper bound
	now := big.NewInt(f.now().Unix())
	if now.Cmp(auth.ValidAfter) < 0 {
		return invalid(ReasonNotYetValid), nil
	}
	if now.Cmp(auth.ValidBefore) >= 0 {
		return invalid(ReasonExpired), nil
	}

	// 3. anti-replay: fresh ledger read, never cached
	used, err := f.ledger.AuthorizationState(ctx, auth.From, auth.Nonce)
	if err != nil {
		return f.ledgerFault("authorizationState", err), nil
	}
	if used {
		return invalid(ReasonNonceUsed), nil
	}

	// 4. payer balance
	balance, err := f.ledger.BalanceOf(ctx, auth.From)
	if err != nil {
		return f.ledgerFault("balanceOf", err), nil
	}
	if balance.Cmp(amount) < 0 {
		return invalid(ReasonInsufficientFunds), nil
	}

	// 5. authorized value covers the requirement
	if auth.Value.Cmp(amount) < 0 {
		return invalid(ReasonValueBelowRequired), nil
	}

	// 6. recipient
	if !strings.EqualFold(payment.Payload.Authorization.To, requirement.PayTo) {
		return invalid(ReasonRecipientMismatch), nil
	}

	// 7. asset binding
	if !strings.EqualFold(requirement.Asset, f.asset.Address) {
		return invalid(ReasonAssetMismatch), nil
	}

	return &VerifyResponse{IsValid: true, Payer: signer.Hex()}, auth
}

// ledgerFault folds a ledger transport failure into a structured result.
// The full cause is logged; the caller sees a generic verification error.
func (f *Facilitator) ledgerFault(op string, err error) *VerifyResponse {
	f.logger.Error("ledger read failed", "op", op, "error", err)
	return invalid(fmt.Sprintf("verification error: %v", err))
}

func invalid(reason string) *VerifyResponse {
	return &VerifyResponse{IsValid: false, InvalidReason: reason}
}

// decodeAuthorization converts the wire-form authorization into typed
// on-chain values, rejecting malformed addresses, non-decimal integers and
// nonces that are not exactly 32 bytes.
func decodeAuthorization(a *EVMAuthorization) (*evm.Authorization, error) {
	if !common.IsHexAddress(a.From) {
		return nil, fmt.Errorf("%w: from address %q", ErrInvalidAuthorization, a.From)
	}
	if !common.IsHexAddress(a.To) {
		return nil, fmt.Errorf("%w: to address %q", ErrInvalidAuthorization, a.To)
	}

	value, ok := new(big.Int).SetString(a.Value, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("%w: value %q", ErrInvalidAuthorization, a.Value)
	}
	validAfter, ok := new(big.Int).SetString(a.ValidAfter, 10)
	if !ok || validAfter.Sign() < 0 {
		return nil, fmt.Errorf("%w: validAfter %q", ErrInvalidAuthorization, a.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(a.ValidBefore, 10)
	if !ok || validBefore.Sign() < 0 {
		return nil, fmt.Errorf("%w: validBefore %q", ErrInvalidAuthorization, a.ValidBefore)
	}

	nonce, err := hex.DecodeString(strings.TrimPrefix(a.Nonce, "0x"))
	if err != nil || len(nonce) != 32 {
		return nil, fmt.Errorf("%w: nonce must be 32 bytes", ErrInvalidAuthorization)
	}

	return &evm.Authorization{
		From:        common.HexToAddress(a.From),
		To:          common.HexToAddress(a.To),
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       common.BytesToHash(nonce),
	}, nil
}
