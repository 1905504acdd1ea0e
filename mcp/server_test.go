package mcp

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mark3labs/mcp-go/mcp"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/evm"
)

// nullLedger reports every account as empty and every nonce as fresh.
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

func testFacilitator(t *testing.T) *facilitator.Facilitator {
	t.Helper()
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
	return f
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func wellFormedEnvelope(t *testing.T) string {
	t.Helper()
	envelope := facilitator.PaymentRequest{
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
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	return string(data)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewServer(t *testing.T) {
	if srv := NewServer("x402-facilitator", "1.0.0", testFacilitator(t)); srv == nil {
		t.Fatal("expected server")
	}
}

func TestVerifyTool(t *testing.T) {
	handler := verifyHandler(testFacilitator(t))

	result, err := handler(context.Background(), toolRequest("x402_verify", map[string]any{
		"request": wellFormedEnvelope(t),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var resp facilitator.VerifyResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if resp.IsValid {
		t.Error("dummy signature must not verify")
	}
	if resp.InvalidReason == "" {
		t.Error("expected an invalid reason from the pipeline")
	}
}

func TestVerifyToolMissingArgument(t *testing.T) {
	handler := verifyHandler(testFacilitator(t))

	result, err := handler(context.Background(), toolRequest("x402_verify", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing request argument")
	}
}

func TestVerifyToolInvalidJSON(t *testing.T) {
	handler := verifyHandler(testFacilitator(t))

	result, err := handler(context.Background(), toolRequest("x402_verify", map[string]any{
		"request": "{not json",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for invalid JSON")
	}
}

func TestVerifyToolShapeFailure(t *testing.T) {
	handler := verifyHandler(testFacilitator(t))

	envelope := wellFormedEnvelope(t)
	envelope = strings.Replace(envelope, "0x1111111111111111111111111111111111111111", "bogus", 1)

	result, err := handler(context.Background(), toolRequest("x402_verify", map[string]any{
		"request": envelope,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for shape failure")
	}
}

func TestSettleTool(t *testing.T) {
	handler := settleHandler(testFacilitator(t))

	result, err := handler(context.Background(), toolRequest("x402_settle", map[string]any{
		"request": wellFormedEnvelope(t),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var resp facilitator.SettlementResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if resp.Success {
		t.Error("dummy signature must not settle")
	}
}

func TestSupportedTool(t *testing.T) {
	handler := supportedHandler(testFacilitator(t))

	result, err := handler(context.Background(), toolRequest("x402_supported", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("unexpected tool error")
	}

	var resp facilitator.SupportedResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(resp.Networks) != 1 || resp.Networks[0] != facilitator.BaseSepolia.NetworkID {
		t.Errorf("unexpected networks: %v", resp.Networks)
	}
}
