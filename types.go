// Package facilitator implements an x402 payment facilitator: it verifies
// off-chain-signed EIP-3009 transfer authorizations against a payment
// requirement and, on request, settles them on-chain under its own
// credential. The facilitator never custodies funds; it inspects signatures
// and ledger state and relays pre-authorized transfers.
package facilitator

import "math/big"

// X402Version is the supported x402 protocol version.
const X402Version = 1

// SchemeExact is the only payment scheme this facilitator implements.
const SchemeExact = "exact"

// PaymentPayload is a signed payment submitted for verification or
// settlement.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the signature and EIP-3009 authorization.
	Payload EVMPayload `json:"payload"`
}

// EVMPayload carries an EIP-3009 authorization and its signature.
type EVMPayload struct {
	// Signature is the hex-encoded 65-byte ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization represents EIP-3009 transferWithAuthorization parameters
// in their wire form. Unsigned integers are decimal strings; the nonce is a
// 32-byte hex string. Authorizations are created and signed by the payer;
// the facilitator only consumes them.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the authorized amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp at which the authorization becomes valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp at which the authorization expires.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte hex string scoped to the payer.
	Nonce string `json:"nonce"`
}

// PaymentRequirement is the resource server's acceptance criteria for one
// payment.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Asset is the token contract address.
	Asset string `json:"asset"`

	// Amount is the required payment amount in atomic units.
	Amount string `json:"amount"`

	// PayTo is the required recipient address.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`
}

// PaymentRequest is the envelope shared by the verify and settle endpoints.
type PaymentRequest struct {
	Payload      PaymentPayload     `json:"payload"`
	Requirements PaymentRequirement `json:"requirements"`
}

// VerifyResponse is the outcome of the verification pipeline. Exactly one
// of Payer (valid) or InvalidReason (invalid) is populated.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettlementResponse is the outcome of a settlement attempt.
type SettlementResponse struct {
	// Success indicates whether the transfer was submitted to the ledger.
	Success bool `json:"success"`

	// ErrorReason provides details if the settlement failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network the payment settled on.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// SupportedAsset describes one token the facilitator settles.
type SupportedAsset struct {
	Network string `json:"network"`
	Asset   string `json:"asset"`
	Name    string `json:"name"`
}

// SupportedResponse advertises the facilitator's capabilities.
type SupportedResponse struct {
	X402Version   int              `json:"x402Version"`
	Schemes       []string         `json:"schemes"`
	Networks      []string         `json:"networks"`
	Assets        []SupportedAsset `json:"assets"`
	SignerAddress string           `json:"signerAddress"`
}

// TokenConfig describes the token the facilitator is configured to settle,
// including its EIP-712 domain parameters.
type TokenConfig struct {
	// Address is the token contract address.
	Address string

	// Name is the token's EIP-712 domain name (e.g., "USD Coin"),
	// also used as the display name in the supported response.
	Name string

	// Version is the token's EIP-712 domain version (e.g., "2").
	Version string

	// Decimals is the number of decimal places for the token.
	Decimals uint8
}

// ParseAmount parses an atomic-unit decimal string into a big integer.
// Negative amounts are rejected; amounts larger than uint64 are fine.
func ParseAmount(amount string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return value, nil
}
