package evm

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
)

func TestFixedGasPolicy(t *testing.T) {
	// The backend must never be consulted; a nil backend proves it.
	limit, err := FixedGasPolicy{Limit: 90000}.GasLimit(context.Background(), nil, ethereum.CallMsg{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 90000 {
		t.Errorf("expected 90000, got %d", limit)
	}
}

func TestFixedGasPolicyZeroDefaults(t *testing.T) {
	limit, err := FixedGasPolicy{}.GasLimit(context.Background(), nil, ethereum.CallMsg{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != DefaultSettleGasLimit {
		t.Errorf("expected default %d, got %d", DefaultSettleGasLimit, limit)
	}
}

func TestEstimateGasPolicy(t *testing.T) {
	backend := &stubBackend{estimateGas: 43210}
	limit, err := EstimateGasPolicy{}.GasLimit(context.Background(), backend, ethereum.CallMsg{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 43210 {
		t.Errorf("expected 43210, got %d", limit)
	}
}

func TestEstimateGasPolicyError(t *testing.T) {
	backend := &stubBackend{estimateErr: errors.New("execution reverted")}
	if _, err := (EstimateGasPolicy{}).GasLimit(context.Background(), backend, ethereum.CallMsg{}); err == nil {
		t.Fatal("expected error")
	}
}
