package gin

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/evm"
)

// nullLedger reports every account as empty and every nonce as fresh.
// The adapter tests only exercise request binding; pipeline behavior is
// covered by the facilitator package tests.
type nullLedger struct{}

func (nullLedger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (nullLedger) AuthorizationState(ctx context.Context, authorizer common.Address, nonce common.Hash) (bool, error) {
	return false, nil
}

func (nullLedger) TransferWithAuthorization(ctx context.Context, auth *evm.Authorization, sig evm.Signature) (common.Hash, error) {
	return common.Hash{}, nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := evm.NewSigner(evm.WithPrivateKey("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"))
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	f, err := facilitator.New(
		facilitator.WithChain(facilitator.BaseSepolia),
		facilitator.WithLedger(nullLedger{}),
		facilitator.WithSigner(signer),
	)
	if err != nil {
		t.Fatalf("failed to create facilitator: %v", err)
	}

	r := gin.New()
	Register(r, f)
	return r
}

// wellFormedRequest passes shape validation; the dummy signature makes the
// pipeline reject it, which is enough to prove the adapter delegated.
func wellFormedRequest() facilitator.PaymentRequest {
	return facilitator.PaymentRequest{
		Payload: facilitator.PaymentPayload{
			X402Version: facilitator.X402Version,
			Scheme:      facilitator.SchemeExact,
			Network:     facilitator.BaseSepolia.NetworkID,
			Payload: facilitator.EVMPayload{
				Signature: "0x" + strings.Repeat("ab", 65),
				Authorization: facilitator.EVMAuthorization{
					From:        "0x1111111111111111111111111111111111111111",
					To:          "0x2222222222222222222222222222222222222222",
					Value:       "1000000",
					ValidAfter:  "0",
					ValidBefore: "9999999999",
					Nonce:       "0x" + strings.Repeat("01", 32),
				},
			},
		},
		Requirements: facilitator.PaymentRequirement{
			Scheme:            facilitator.SchemeExact,
			Network:           facilitator.BaseSepolia.NetworkID,
			Asset:             facilitator.BaseSepolia.USDCAddress,
			Amount:            "500000",
			PayTo:             "0x2222222222222222222222222222222222222222",
			MaxTimeoutSeconds: 300,
		},
	}
}

func TestRegisterVerify(t *testing.T) {
	router := testRouter(t)

	data, _ := json.Marshal(wellFormedRequest())
	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp facilitator.VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.IsValid {
		t.Error("dummy signature must not verify")
	}
	if resp.InvalidReason == "" {
		t.Error("expected an invalid reason from the pipeline")
	}
}

func TestRegisterVerifyMalformedJSON(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterVerifyShapeFailure(t *testing.T) {
	router := testRouter(t)

	envelope := wellFormedRequest()
	envelope.Payload.Payload.Authorization.Nonce = "0x01"
	data, _ := json.Marshal(envelope)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterSettle(t *testing.T) {
	router := testRouter(t)

	data, _ := json.Marshal(wellFormedRequest())
	req := httptest.NewRequest(http.MethodPost, "/settle", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp facilitator.SettlementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("dummy signature must not settle")
	}
}

func TestRegisterSupported(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/supported", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp facilitator.SupportedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.X402Version != facilitator.X402Version {
		t.Errorf("expected version %d, got %d", facilitator.X402Version, resp.X402Version)
	}
}
