// Package mcp exposes the facilitator as an MCP tool server, so agent
// frameworks can verify and settle payments through the same pipeline the
// HTTP surface uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/validation"
)

// NewServer creates an MCP server with x402_verify, x402_settle and
// x402_supported tools backed by the given facilitator.
func NewServer(name, version string, f *facilitator.Facilitator) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(name, version)

	srv.AddTool(mcp.NewTool(
		"x402_verify",
		mcp.WithDescription("Verify an x402 payment authorization without settling it"),
		mcp.WithString("request", mcp.Required(), mcp.Description("JSON payment request envelope: {payload, requirements}")),
	), verifyHandler(f))

	srv.AddTool(mcp.NewTool(
		"x402_settle",
		mcp.WithDescription("Verify and settle an x402 payment on-chain"),
		mcp.WithString("request", mcp.Required(), mcp.Description("JSON payment request envelope: {payload, requirements}")),
	), settleHandler(f))

	srv.AddTool(mcp.NewTool(
		"x402_supported",
		mcp.WithDescription("List the payment kinds this facilitator supports"),
	), supportedHandler(f))

	return srv
}

func verifyHandler(f *facilitator.Facilitator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payment, err := parseRequest(req)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(f.Verify(ctx, &payment.Payload, &payment.Requirements))
	}
}

func settleHandler(f *facilitator.Facilitator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payment, err := parseRequest(req)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(f.Settle(ctx, &payment.Payload, &payment.Requirements))
	}
}

func supportedHandler(f *facilitator.Facilitator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(f.Supported())
	}
}

func parseRequest(req mcp.CallToolRequest) (*facilitator.PaymentRequest, error) {
	args := req.GetArguments()
	raw, _ := args["request"].(string)
	if raw == "" {
		return nil, fmt.Errorf("request argument required")
	}

	var payment facilitator.PaymentRequest
	if err := json.Unmarshal([]byte(raw), &payment); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}
	if err := validation.ValidatePaymentRequest(payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.NewTextContent(err.Error())},
	}
}
