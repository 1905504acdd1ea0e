package facilitator

import "errors"

// Standard facilitator error definitions

var (
	// ErrRequestFormat indicates a request that does not match the envelope schema.
	ErrRequestFormat = errors.New("malformed request")

	// ErrNetworkMismatch indicates the payment targets a network this facilitator does not serve.
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrSchemeMismatch indicates the payment uses a scheme this facilitator does not serve.
	ErrSchemeMismatch = errors.New("scheme mismatch")

	// ErrInvalidAmount indicates an amount string that is not a non-negative decimal integer.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAuthorization indicates authorization fields that cannot be decoded.
	ErrInvalidAuthorization = errors.New("invalid authorization")

	// ErrSettlementFailed indicates the ledger rejected the settlement submission.
	ErrSettlementFailed = errors.New("settlement failed")
)

// Invalid-reason strings returned by the verification pipeline. The strings
// are part of the wire contract: resource servers match on them to decide
// whether a client should re-sign or give up.
const (
	ReasonSignerMismatch     = "signer mismatch"
	ReasonNotYetValid        = "authorization not yet valid"
	ReasonExpired            = "authorization expired"
	ReasonNonceUsed          = "nonce already used"
	ReasonInsufficientFunds  = "insufficient balance"
	ReasonValueBelowRequired = "authorization amount below requirement"
	ReasonRecipientMismatch  = "recipient mismatch"
	ReasonAssetMismatch      = "asset mismatch"
)
