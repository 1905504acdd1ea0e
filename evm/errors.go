package evm

import "errors"

var (
	// ErrMalformedSignature indicates a signature blob that is not 65 bytes.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrSignatureRecovery indicates public key recovery failed for a signature.
	ErrSignatureRecovery = errors.New("signature recovery failed")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrInvalidKeystore indicates an invalid or corrupted keystore file.
	ErrInvalidKeystore = errors.New("invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid BIP39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
)
