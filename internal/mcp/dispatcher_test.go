package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynachiket/acp-checkout-poc/internal/events"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	"github.com/ynachiket/acp-checkout-poc/internal/pricing"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/memory"
	"github.com/ynachiket/acp-checkout-poc/internal/seed"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	ordersvc "github.com/ynachiket/acp-checkout-poc/internal/service/order"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store := memory.NewStore()
	_, err := seed.Apply(context.Background(), store.Products(), nil)
	require.NoError(t, err)

	tx := memory.NewTx(store)
	products := productsvc.New(store.Products())
	orders := ordersvc.New(store.Orders(), tx, events.NewLogPublisher(nil), "https://shop.example.com/orders", nil)
	engine := checkoutsvc.New(checkoutsvc.Deps{
		Sessions: store.Sessions(),
		Products: products,
		Payments: payment.NewMock(),
		Orders:   orders,
		Tx:       tx,
		Policy:   pricing.DefaultPolicy(),
	})
	return NewDispatcher(Deps{Products: products, Checkout: engine, Orders: orders})
}

func callRequest(t *testing.T, name string, args any) Request {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	return Request{JSONRPC: "2.0", Method: "tools/call", Params: params}
}

// call invokes a tool and returns the decoded payload of a successful result.
func call(t *testing.T, d *Dispatcher, name string, args any) (map[string]any, *ToolResult) {
	t.Helper()
	resp := d.Handle(context.Background(), callRequest(t, name, args))
	require.Nil(t, resp.Error, "unexpected rpc error: %+v", resp.Error)
	result, ok := resp.Result.(*ToolResult)
	require.True(t, ok, "result type %T", resp.Result)
	require.Len(t, result.Content, 2)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	return payload, result
}

func validCard(number string) map[string]any {
	return map[string]any{"card_number": number, "exp_month": 12, "exp_year": time.Now().Year() + 3, "cvc": "123"}
}

func usAddress() map[string]any {
	return map[string]any{"address_line_1": "123 Main St", "city": "San Francisco", "state": "CA", "postal_code": "94102"}
}

func TestToolsList(t *testing.T) {
	d := newDispatcher(t)
	resp := d.Handle(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`"a"`), Method: "tools/list"})
	require.Nil(t, resp.Error)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded struct {
		ID     string `json:"id"`
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "a", decoded.ID)

	var names []string
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
	assert.Equal(t, []string{
		"search_products", "get_product_details", "create_checkout",
		"add_shipping_address", "complete_purchase", "get_order_status",
	}, names)
}

func TestProtocolErrors(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
		code int
		msg  string
	}{
		{"unknown method", Request{Method: "resources/list"}, CodeMethodNotFound, "Method not found: resources/list"},
		{"missing params", Request{Method: "tools/call"}, CodeInvalidParams, "Missing params for tools/call"},
		{"missing name", Request{Method: "tools/call", Params: json.RawMessage(`{"arguments":{}}`)}, CodeInvalidParams, "Missing tool name in params"},
		{"unknown tool", callRequest(t, "teleport", map[string]any{}), CodeMethodNotFound, "Tool not found: teleport"},
		{"bad version", Request{JSONRPC: "1.0", Method: "tools/list"}, CodeInvalidRequest, "Unsupported jsonrpc version: 1.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := d.Handle(ctx, tc.req)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.msg, resp.Error.Message)
			assert.Equal(t, "null", string(resp.ID))
		})
	}
}

func TestInvalidArgumentsAreParamErrors(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	resp := d.Handle(ctx, callRequest(t, ToolSearchProducts, map[string]any{"limit": 3}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Missing required argument: query", resp.Error.Message)

	resp = d.Handle(ctx, callRequest(t, ToolGetOrderStatus, map[string]any{"order_id": "x", "verbose": true}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Invalid arguments for get_order_status")
}

func TestEnvelopeCarriesIdenticalPayloads(t *testing.T) {
	d := newDispatcher(t)
	resp := d.Handle(context.Background(), callRequest(t, ToolSearchProducts, map[string]any{"query": "air", "category": "Shoes", "price_max": 130}))
	require.Nil(t, resp.Error)
	result := resp.Result.(*ToolResult)

	require.Len(t, result.Content, 2)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "resource", result.Content[1].Type)
	assert.Equal(t, "acp://commerce/search_products", result.Content[1].Resource.URI)
	assert.Equal(t, "application/json", result.Content[1].Resource.MIMEType)
	assert.Equal(t, result.Content[0].Text, result.Content[1].Resource.Text)
	assert.False(t, result.IsError)

	var products []map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &products))
	var titles []string
	for _, p := range products {
		titles = append(titles, p["title"].(string))
	}
	assert.Equal(t, []string{"Nike Air Force 1 '07", "Nike Air Max 90"}, titles)
	assert.Equal(t, "115.00", products[0]["price"])
}

func TestGetProductDetails(t *testing.T) {
	d := newDispatcher(t)

	payload, result := call(t, d, ToolGetProductDetails, map[string]any{"gtin": "00883419552502"})
	assert.False(t, result.IsError)
	assert.Equal(t, "nike-air-max-90-white", payload["id"])
	assert.Len(t, payload["variants"], 3)

	payload, result = call(t, d, ToolGetProductDetails, map[string]any{"gtin": "00000000000000"})
	assert.True(t, result.IsError)
	assert.Equal(t, "00000000000000", payload["gtin"])
	assert.Contains(t, payload["error"], "not found")
}

func TestMalformedGTINIsExecutionError(t *testing.T) {
	d := newDispatcher(t)
	resp := d.Handle(context.Background(), callRequest(t, ToolGetProductDetails, map[string]any{"gtin": "abc12345"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, "Tool execution error: GTIN must be numeric, got: abc12345", resp.Error.Message)
	assert.Equal(t, errorData{Code: "invalid"}, resp.Error.Data)
}

func TestPurchaseFlow(t *testing.T) {
	d := newDispatcher(t)

	created, _ := call(t, d, ToolCreateCheckout, map[string]any{
		"items":       []map[string]any{{"gtin": "00883419552502", "quantity": 1}},
		"buyer_email": "jane@example.com",
	})
	sessionID := created["session_id"].(string)
	assert.Equal(t, "not_ready_for_payment", created["status"])
	assert.Equal(t, "120.00", created["subtotal"])
	assert.Equal(t, "Checkout session created. Add shipping address to continue.", created["message"])

	early, result := call(t, d, ToolCompletePurchase, map[string]any{"session_id": sessionID, "payment_method": validCard("4242424242424242")})
	assert.True(t, result.IsError)
	assert.Equal(t, "Session is not ready for payment", early["error"])
	assert.Equal(t, "not_ready_for_payment", early["status"])

	shipped, _ := call(t, d, ToolAddShippingAddress, map[string]any{"session_id": sessionID, "address": usAddress()})
	assert.Equal(t, "ready_for_payment", shipped["status"])
	assert.Equal(t, "standard", shipped["selected_shipping"])
	assert.Len(t, shipped["shipping_options"], 3)
	assert.Equal(t, map[string]any{"items": "120.00", "shipping": "5.00", "tax": "9.60", "total": "134.60"}, shipped["totals"])
	assert.Equal(t, "Customer", shipped["shipping_address"].(map[string]any)["name"])
	assert.Equal(t, "US", shipped["shipping_address"].(map[string]any)["country"])

	done, result := call(t, d, ToolCompletePurchase, map[string]any{"session_id": sessionID, "payment_method": validCard("4242424242424242")})
	require.False(t, result.IsError, "payload %v", done)
	orderID := done["order_id"].(string)
	assert.Equal(t, true, done["success"])
	assert.Equal(t, "created", done["order_status"])
	assert.Equal(t, "134.60", done["total"])
	assert.Equal(t, fmt.Sprintf("Order %s confirmed! Confirmation email sent.", orderID), done["message"])

	status, _ := call(t, d, ToolGetOrderStatus, map[string]any{"order_id": orderID})
	assert.Equal(t, "created", status["status"])
	assert.Equal(t, "134.60", status["total"])
	assert.Nil(t, status["tracking_number"])
	assert.True(t, strings.HasSuffix(status["permalink"].(string), "/"+orderID))

	again, result := call(t, d, ToolCompletePurchase, map[string]any{"session_id": sessionID, "payment_method": validCard("4242424242424242")})
	assert.True(t, result.IsError)
	assert.Equal(t, "completed", again["status"])
}

func TestCompletePurchaseDeclined(t *testing.T) {
	d := newDispatcher(t)
	created, _ := call(t, d, ToolCreateCheckout, map[string]any{"items": []map[string]any{{"gtin": "00883419552520", "quantity": 2}}})
	sessionID := created["session_id"].(string)
	call(t, d, ToolAddShippingAddress, map[string]any{"session_id": sessionID, "address": usAddress(), "fulfillment_option_id": "express"})

	declined, result := call(t, d, ToolCompletePurchase, map[string]any{"session_id": sessionID, "payment_method": validCard(payment.DeclineCardNumber)})
	assert.True(t, result.IsError)
	assert.Equal(t, "Payment failed", declined["error"])
	assert.Equal(t, "Payment was declined. Please check payment details.", declined["message"])
}

func TestForeignAddressIsExecutionError(t *testing.T) {
	d := newDispatcher(t)
	created, _ := call(t, d, ToolCreateCheckout, map[string]any{"items": []map[string]any{{"gtin": "00883419552502", "quantity": 1}}})

	addr := usAddress()
	addr["country"] = "CA"
	resp := d.Handle(context.Background(), callRequest(t, ToolAddShippingAddress, map[string]any{"session_id": created["session_id"], "address": addr}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, "Tool execution error: Invalid address: Currently only shipping to US addresses", resp.Error.Message)
}

func TestGetOrderStatusNotFound(t *testing.T) {
	d := newDispatcher(t)
	payload, result := call(t, d, ToolGetOrderStatus, map[string]any{"order_id": "order_missing"})
	assert.True(t, result.IsError)
	assert.Equal(t, "order_missing", payload["order_id"])
	assert.Equal(t, "Order order_missing not found", payload["error"])
}

func TestShippingAddressDefaultsCountry(t *testing.T) {
	d := newDispatcher(t)
	created, _ := call(t, d, ToolCreateCheckout, map[string]any{
		"items": []map[string]any{{"gtin": "00883419552502", "quantity": 1}},
	})

	addr := usAddress()
	_, hasCountry := addr["country"]
	require.False(t, hasCountry)

	shipped, result := call(t, d, ToolAddShippingAddress, map[string]any{"session_id": created["session_id"], "address": addr})
	assert.False(t, result.IsError)
	assert.Equal(t, "ready_for_payment", shipped["status"])
	assert.Equal(t, "US", shipped["shipping_address"].(map[string]any)["country"])
}
