// Package evm implements the on-chain side of the facilitator: EIP-712
// signature recovery for EIP-3009 transfer authorizations, the ledger
// client used for balance, nonce-state and settlement calls, and the
// facilitator's submitting credential.
package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain identifies the EIP-712 signing domain of an EIP-3009 token.
type Domain struct {
	// Name is the token's EIP-712 domain name (e.g., "USD Coin").
	Name string

	// Version is the token's EIP-712 domain version (e.g., "2").
	Version string

	// ChainID is the chain the token is deployed on.
	ChainID *big.Int

	// VerifyingContract is the token contract address.
	VerifyingContract common.Address
}

// Authorization is a decoded EIP-3009 transferWithAuthorization message.
type Authorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       common.Hash
}

// Signature is a secp256k1 signature split into the components the token
// contract takes for transferWithAuthorization.
type Signature struct {
	V byte
	R [32]byte
	S [32]byte
}

// SplitSignature splits a 65-byte hex signature blob into (v, r, s).
// r is bytes [0:32], s is bytes [32:64], v is byte 64. A recovery id
// below 27 is normalized by adding 27, so wire forms using {0, 1} and
// {27, 28} are both accepted. Any other blob length fails with
// ErrMalformedSignature.
func SplitSignature(blob string) (Signature, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(blob, "0x"))
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(raw) != 65 {
		return Signature{}, fmt.Errorf("%w: expected 65 bytes, got %d", ErrMalformedSignature, len(raw))
	}

	var sig Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	if sig.V < 27 {
		sig.V += 27
	}
	return sig, nil
}

// RecoverSigner recovers the address that signed the given authorization
// under the given domain. The digest is the canonical EIP-712 hash of the
// TransferWithAuthorization message, so a signature only verifies against
// the exact token contract, chain and message it was produced for.
func RecoverSigner(domain Domain, auth *Authorization, signature string) (common.Address, error) {
	sig, err := SplitSignature(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	if sig.V != 27 && sig.V != 28 {
		return common.Address{}, fmt.Errorf("%w: invalid recovery id %d", ErrSignatureRecovery, sig.V)
	}

	digest, err := AuthorizationDigest(domain, auth)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}

	// go-ethereum expects the recovery id in {0, 1}
	raw := make([]byte, 65)
	copy(raw[0:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.V - 27

	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AuthorizationDigest computes the EIP-712 digest the payer signed:
// keccak256("\x19\x01" || domainSeparator || messageHash).
func AuthorizationDigest(domain Domain, auth *Authorization) ([]byte, error) {
	typedData := transferWithAuthorizationTypedData(domain, auth)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct("TransferWithAuthorization", typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256(rawData), nil
}

// transferWithAuthorizationTypedData builds the fixed EIP-3009 typed-data
// structure for an authorization.
func transferWithAuthorizationTypedData(domain Domain, auth *Authorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From.Hex(),
			"to":          auth.To.Hex(),
			"value":       (*math.HexOrDecimal256)(auth.Value),
			"validAfter":  (*math.HexOrDecimal256)(auth.ValidAfter),
			"validBefore": (*math.HexOrDecimal256)(auth.ValidBefore),
			"nonce":       auth.Nonce.Hex(),
		},
	}
}
