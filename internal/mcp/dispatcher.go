// Package mcp exposes the checkout engine as Model Context Protocol tools,
// both as a JSON-RPC endpoint body handler and as a go-sdk server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type productCatalog interface {
	Search(ctx context.Context, in productsvc.SearchInput) ([]domain.Product, error)
	GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error)
}

type checkoutEngine interface {
	Create(ctx context.Context, in checkoutsvc.CreateInput) (*domain.CheckoutSession, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, id string, in checkoutsvc.UpdateInput) (*domain.CheckoutSession, error)
	Complete(ctx context.Context, id, paymentToken string) (*checkoutsvc.CompleteResult, error)
	DelegatePayment(ctx context.Context, card payment.CardDetails) (string, error)
}

type orderReader interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// Deps are the engine services the tools drive.
type Deps struct {
	Products       productCatalog
	Checkout       checkoutEngine
	Orders         orderReader
	ResourceScheme string
	Logger         *log.Logger
}

// toolHandler returns the payload to wrap and whether it describes a
// business-level failure the agent should see as a tool error.
type toolHandler func(ctx context.Context, args json.RawMessage) (payload any, isError bool, err error)

type Dispatcher struct {
	products productCatalog
	checkout checkoutEngine
	orders   orderReader
	scheme   string
	logger   *log.Logger
	handlers map[string]toolHandler
	tools    []Tool
}

func NewDispatcher(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	scheme := deps.ResourceScheme
	if scheme == "" {
		scheme = "acp"
	}
	d := &Dispatcher{
		products: deps.Products,
		checkout: deps.Checkout,
		orders:   deps.Orders,
		scheme:   scheme,
		logger:   logger,
		tools:    Catalog(),
	}
	d.handlers = map[string]toolHandler{
		ToolSearchProducts:     d.searchProducts,
		ToolGetProductDetails:  d.getProductDetails,
		ToolCreateCheckout:     d.createCheckout,
		ToolAddShippingAddress: d.addShippingAddress,
		ToolCompletePurchase:   d.completePurchase,
		ToolGetOrderStatus:     d.getOrderStatus,
	}
	return d
}

func (d *Dispatcher) Tools() []Tool {
	return d.tools
}

// Handle routes one JSON-RPC request. It always returns a response; protocol
// and tool failures are reported in its Error field.
func (d *Dispatcher) Handle(ctx context.Context, req Request) *Response {
	if req.JSONRPC != "" && req.JSONRPC != jsonrpcVersion {
		return ErrorResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("Unsupported jsonrpc version: %s", req.JSONRPC))
	}

	switch req.Method {
	case "tools/list":
		return &Response{JSONRPC: jsonrpcVersion, ID: normalizeID(req.ID), Result: listResult{Tools: d.tools}}
	case "tools/call":
		if len(req.Params) == 0 || string(req.Params) == "null" {
			return ErrorResponse(req.ID, CodeInvalidParams, "Missing params for tools/call")
		}
		var params callParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, CodeInvalidParams, fmt.Sprintf("Invalid params for tools/call: %v", err))
		}
		if params.Name == "" {
			return ErrorResponse(req.ID, CodeInvalidParams, "Missing tool name in params")
		}
		result, err := d.CallTool(ctx, params.Name, params.Arguments)
		if err != nil {
			var rpcErr *RPCError
			if !errors.As(err, &rpcErr) {
				rpcErr = &RPCError{Code: CodeInternalError, Message: err.Error()}
			}
			return &Response{JSONRPC: jsonrpcVersion, ID: normalizeID(req.ID), Error: rpcErr}
		}
		return &Response{JSONRPC: jsonrpcVersion, ID: normalizeID(req.ID), Result: result}
	default:
		return ErrorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// CallTool runs a tool and wraps its payload in the result envelope. The
// returned error, when non-nil, is always an *RPCError.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	handler, ok := d.handlers[name]
	if !ok {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Tool not found: %s", name)}
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	payload, isError, err := handler(ctx, args)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		code := domain.Code(err)
		message := domain.Reason(err)
		if code == "internal_error" {
			d.logger.Printf("mcp: tool=%s error=%v", name, err)
			message = "internal error"
		}
		return nil, &RPCError{
			Code:    CodeInternalError,
			Message: "Tool execution error: " + message,
			Data:    errorData{Code: code},
		}
	}

	result, err := d.envelope(name, payload, isError)
	if err != nil {
		d.logger.Printf("mcp: tool=%s encode error=%v", name, err)
		return nil, &RPCError{Code: CodeInternalError, Message: "Tool execution error: encode result"}
	}
	return result, nil
}

// envelope serializes payload once so the text and resource blocks carry the
// same bytes.
func (d *Dispatcher) envelope(name string, payload any, isError bool) (*ToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	text := string(body)
	return &ToolResult{
		Content: []Content{
			{Type: "text", Text: text},
			{Type: "resource", Resource: &Resource{
				URI:      fmt.Sprintf("%s://commerce/%s", d.scheme, name),
				MIMEType: "application/json",
				Text:     text,
			}},
		},
		IsError: isError,
	}, nil
}
