// Package validation checks the shape of incoming facilitator requests
// before the verification pipeline runs. Shape failures are request-format
// errors (HTTP 400); the pipeline only ever sees structurally sound input.
package validation

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	facilitator "github.com/mark3labs/x402-facilitator"
)

// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// nonceRegex matches 32-byte hex nonces with optional 0x prefix
var nonceRegex = regexp.MustCompile(`^(0x)?[a-fA-F0-9]{64}$`)

// ValidateAmount validates that an amount string is a valid non-negative
// decimal integer in atomic units.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	// Parse as big.Int to handle large values
	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative: %s", amount)
	}

	return nil
}

// ValidateAddress validates an EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid EVM address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidatePaymentRequirement validates a payment requirement's shape:
// amount, network, addresses, scheme and timeout.
func ValidatePaymentRequirement(req facilitator.PaymentRequirement) error {
	if err := ValidateAmount(req.Amount); err != nil {
		return fmt.Errorf("invalid requirement: %w", err)
	}

	if req.Network == "" {
		return fmt.Errorf("invalid requirement: network cannot be empty")
	}

	if req.Scheme == "" {
		return fmt.Errorf("invalid requirement: scheme cannot be empty")
	}

	if err := ValidateAddress(req.PayTo); err != nil {
		return fmt.Errorf("invalid requirement: payTo %w", err)
	}

	if err := ValidateAddress(req.Asset); err != nil {
		return fmt.Errorf("invalid requirement: asset %w", err)
	}

	if req.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("invalid requirement: timeout cannot be negative: %d", req.MaxTimeoutSeconds)
	}

	return nil
}

// ValidatePaymentPayload validates a payment payload's shape: protocol
// version, scheme, network, signature and authorization fields.
func ValidatePaymentPayload(payment facilitator.PaymentPayload) error {
	if payment.X402Version != facilitator.X402Version {
		return fmt.Errorf("unsupported x402 version: %d", payment.X402Version)
	}

	if payment.Scheme == "" {
		return fmt.Errorf("scheme cannot be empty")
	}

	if payment.Network == "" {
		return fmt.Errorf("network cannot be empty")
	}

	if payment.Payload.Signature == "" {
		return fmt.Errorf("signature cannot be empty")
	}

	return validateAuthorization(payment.Payload.Authorization)
}

// ValidatePaymentRequest validates the full request envelope. Failures
// wrap facilitator.ErrRequestFormat so callers can distinguish envelope
// problems from pipeline rejections.
func ValidatePaymentRequest(req facilitator.PaymentRequest) error {
	if err := ValidatePaymentPayload(req.Payload); err != nil {
		return fmt.Errorf("%w: %v", facilitator.ErrRequestFormat, err)
	}
	if err := ValidatePaymentRequirement(req.Requirements); err != nil {
		return fmt.Errorf("%w: %v", facilitator.ErrRequestFormat, err)
	}
	return nil
}

func validateAuthorization(auth facilitator.EVMAuthorization) error {
	if err := ValidateAddress(auth.From); err != nil {
		return fmt.Errorf("authorization from: %w", err)
	}
	if err := ValidateAddress(auth.To); err != nil {
		return fmt.Errorf("authorization to: %w", err)
	}
	if err := ValidateAmount(auth.Value); err != nil {
		return fmt.Errorf("authorization value: %w", err)
	}
	if err := ValidateAmount(auth.ValidAfter); err != nil {
		return fmt.Errorf("authorization validAfter: %w", err)
	}
	if err := ValidateAmount(auth.ValidBefore); err != nil {
		return fmt.Errorf("authorization validBefore: %w", err)
	}
	if !nonceRegex.MatchString(strings.TrimSpace(auth.Nonce)) {
		return fmt.Errorf("authorization nonce must be a 32-byte hex string")
	}
	return nil
}
