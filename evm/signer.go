package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the facilitator's submitting credential. The private key
// is read-only after construction and safe to share across concurrently
// in-flight settlements; it is never exposed outside this package.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// NewSigner creates a signer from one of the key-loading options:
// WithPrivateKey, WithKeystore or WithMnemonic.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.privateKey == nil {
		return nil, ErrInvalidKey
	}
	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey sets the private key from a hex string.
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return ErrInvalidKey
		}

		s.privateKey = privateKey
		return nil
	}
}

// Address returns the signer's public identity. Settlement transactions
// are sent from (and fees paid by) this address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs a transaction for the given chain with the facilitator's key.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil {
		return nil, fmt.Errorf("chain id required")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
}
