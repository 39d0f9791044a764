package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ynachiket/acp-checkout-poc/internal/events"
	"github.com/ynachiket/acp-checkout-poc/internal/mcp"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	"github.com/ynachiket/acp-checkout-poc/internal/pricing"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/memory"
	"github.com/ynachiket/acp-checkout-poc/internal/seed"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	ordersvc "github.com/ynachiket/acp-checkout-poc/internal/service/order"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

const airMax90 = "00883419552502"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	if _, err := seed.Apply(context.Background(), store.Products(), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
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

	router, err := buildRouter(logDiscard(), nil, Deps{
		CheckoutSvc: engine,
		ProductSvc:  products,
		OrderSvc:    orders,
		MCP:         mcp.NewDispatcher(mcp.Deps{Products: products, Checkout: engine, Orders: orders}),
		Links:       Links{TermsOfService: "https://shop.example.com/terms", PrivacyPolicy: "https://shop.example.com/privacy"},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func address() map[string]string {
	return map[string]string{
		"name":           "Jane Doe",
		"address_line_1": "123 Main St",
		"city":           "San Francisco",
		"state":          "CA",
		"postal_code":    "94102",
		"country":        "US",
	}
}

func card(number string) map[string]any {
	return map[string]any{"card_number": number, "exp_month": 12, "exp_year": time.Now().Year() + 2, "cvc": "123"}
}

func totalValue(t *testing.T, session map[string]any, key string) string {
	t.Helper()
	totals := session["totals"].(map[string]any)
	return totals[key].(map[string]any)["value"].(string)
}

func createSession(t *testing.T, router http.Handler, body any) map[string]any {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)
}

func TestCheckoutFlow(t *testing.T) {
	router := newTestRouter(t)

	session := createSession(t, router, map[string]any{
		"line_items": []map[string]any{{"gtin": airMax90, "quantity": 1}},
		"buyer_info": map[string]string{"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com"},
	})
	id := session["id"].(string)
	if !strings.HasPrefix(id, "cs_") {
		t.Fatalf("unexpected session id %q", id)
	}
	if session["status"] != "not_ready_for_payment" {
		t.Fatalf("expected not ready, got %v", session["status"])
	}
	if session["selected_fulfillment_option_id"] != nil {
		t.Fatalf("expected null option, got %v", session["selected_fulfillment_option_id"])
	}
	if opts, ok := session["fulfillment_options"].([]any); !ok || len(opts) != 0 {
		t.Fatalf("expected empty options array, got %v", session["fulfillment_options"])
	}
	links := session["links"].(map[string]any)
	if links["terms_of_service"] != "https://shop.example.com/terms" {
		t.Fatalf("unexpected links %v", links)
	}

	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id, map[string]any{"fulfillment_address": address()})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session = decode(t, rec)
	if session["status"] != "ready_for_payment" || session["selected_fulfillment_option_id"] != "standard" {
		t.Fatalf("unexpected session after address: %v", session)
	}
	if got := totalValue(t, session, "total"); got != "134.60" {
		t.Fatalf("expected total 134.60, got %s", got)
	}

	rec = doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id, map[string]any{"selected_fulfillment_option_id": "express"})
	session = decode(t, rec)
	if got := totalValue(t, session, "total"); got != "144.60" {
		t.Fatalf("expected total 144.60, got %s", got)
	}

	first := doJSON(t, router, http.MethodGet, "/acp/v1/checkout_sessions/"+id, nil)
	second := doJSON(t, router, http.MethodGet, "/acp/v1/checkout_sessions/"+id, nil)
	if first.Body.String() != second.Body.String() {
		t.Fatalf("repeated reads differ")
	}

	rec = doJSON(t, router, http.MethodPost, "/acp/v1/delegate_payment", card("4242424242424242"))
	if rec.Code != http.StatusOK {
		t.Fatalf("delegate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token := decode(t, rec)["payment_token_id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id+"/complete", map[string]string{"payment_token_id": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	completed := decode(t, rec)
	if completed["status"] != "completed" {
		t.Fatalf("expected completed, got %v", completed["status"])
	}
	order := completed["order"].(map[string]any)
	orderID := order["id"].(string)
	if order["permalink"] != "https://shop.example.com/orders/"+orderID || order["checkout_session_id"] != id {
		t.Fatalf("unexpected order ref %v", order)
	}
	msgs := completed["messages"].([]any)
	text := msgs[0].(map[string]any)["text"].(string)
	if !strings.HasSuffix(text, "jane@example.com") {
		t.Fatalf("unexpected message %q", text)
	}

	session = decode(t, doJSON(t, router, http.MethodGet, "/acp/v1/checkout_sessions/"+id, nil))
	if session["order_id"] != orderID || session["payment_token_id"] != token {
		t.Fatalf("session not linked to order: %v", session)
	}

	rec = doJSON(t, router, http.MethodGet, "/acp/v1/orders/"+orderID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("order: expected 200, got %d", rec.Code)
	}
	o := decode(t, rec)
	if o["status"] != "created" || o["tracking_number"] != nil {
		t.Fatalf("unexpected order %v", o)
	}
	if got := o["totals"].(map[string]any)["total"].(map[string]any)["value"]; got != "144.60" {
		t.Fatalf("order total not copied from session: %v", got)
	}
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{
		"line_items":          []map[string]any{{"gtin": airMax90, "quantity": 1}},
		"fulfillment_address": address(),
	})
	id := session["id"].(string)

	for i, want := range []int{http.StatusOK, http.StatusBadRequest} {
		rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id+"/complete", map[string]string{"payment_token_id": fmt.Sprintf("pm_external_%d", i)})
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d: %s", i, want, rec.Code, rec.Body.String())
		}
		if i == 1 {
			if got := decode(t, rec)["code"]; got != "not_ready" {
				t.Fatalf("expected not_ready on second complete, got %v", got)
			}
		}
	}
}

func TestAddressWithoutCountryIsInvalid(t *testing.T) {
	router := newTestRouter(t)
	addr := address()
	delete(addr, "country")

	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions", map[string]any{
		"line_items":          []map[string]any{{"gtin": airMax90, "quantity": 1}},
		"fulfillment_address": addr,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["code"] != "invalid" || body["message"] != "Invalid address: Missing required field: country" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCompleteNotReadySession(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{"line_items": []map[string]any{{"gtin": airMax90, "quantity": 1}}})

	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+session["id"].(string)+"/complete", map[string]string{"payment_token_id": "pm_1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decode(t, rec)["code"] != "not_ready" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCompleteDeclinedCard(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{
		"line_items":          []map[string]any{{"gtin": airMax90, "quantity": 1}},
		"fulfillment_address": address(),
	})
	id := session["id"].(string)

	token := decode(t, doJSON(t, router, http.MethodPost, "/acp/v1/delegate_payment", card(payment.DeclineCardNumber)))["payment_token_id"].(string)
	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id+"/complete", map[string]string{"payment_token_id": token})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["code"] != "payment_declined" || !strings.HasPrefix(body["message"].(string), "Payment failed") {
		t.Fatalf("unexpected body %v", body)
	}

	session = decode(t, doJSON(t, router, http.MethodGet, "/acp/v1/checkout_sessions/"+id, nil))
	if session["status"] != "ready_for_payment" || session["order_id"] != nil {
		t.Fatalf("declined payment must leave the session untouched: %v", session)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	router := newTestRouter(t)
	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"no items", map[string]any{"line_items": []any{}}, http.StatusBadRequest, "invalid"},
		{"short gtin", map[string]any{"line_items": []map[string]any{{"gtin": "1234567", "quantity": 1}}}, http.StatusBadRequest, "invalid"},
		{"unknown gtin", map[string]any{"line_items": []map[string]any{{"gtin": "00000000000000", "quantity": 1}}}, http.StatusNotFound, "missing"},
		{"over cap", map[string]any{"line_items": []map[string]any{{"gtin": airMax90, "quantity": 11}}}, http.StatusBadRequest, "product_unavailable"},
		{"foreign address", map[string]any{
			"line_items":          []map[string]any{{"gtin": airMax90, "quantity": 1}},
			"fulfillment_address": map[string]string{"address_line_1": "1 Rue", "city": "Paris", "state": "IDF", "postal_code": "75001", "country": "FR"},
		}, http.StatusBadRequest, "invalid"},
	}

	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions", tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if got := decode(t, rec)["code"]; got != tc.code {
			t.Fatalf("%s: expected code %s, got %v", tc.name, tc.code, got)
		}
	}
}

func TestCancelSession(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{"line_items": []map[string]any{{"gtin": airMax90, "quantity": 2}}})
	id := session["id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["status"]; got != "canceled" {
		t.Fatalf("expected canceled, got %v", got)
	}

	rec = doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second cancel, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+id, map[string]any{"fulfillment_address": address()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 updating canceled session, got %d", rec.Code)
	}
}

func TestUnknownSessionIsMissing(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/acp/v1/checkout_sessions/cs_nope", "/acp/v1/orders/order_nope"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestProductRoutes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/acp/v1/products?query=air&category=Shoes&price_max=130", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["count"].(float64) != 2 {
		t.Fatalf("expected 2 products, got %v", body["count"])
	}

	rec = doJSON(t, router, http.MethodGet, "/acp/v1/products?price_min=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad price, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/acp/v1/products/"+airMax90, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["price"]; got != "120.00" {
		t.Fatalf("expected price 120.00, got %v", got)
	}

	rec = doJSON(t, router, http.MethodGet, "/acp/v1/products/abc12345", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric gtin, got %d", rec.Code)
	}
}

func TestOrderLifecycleRoutes(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{
		"line_items":          []map[string]any{{"gtin": airMax90, "quantity": 1}},
		"fulfillment_address": address(),
	})
	rec := doJSON(t, router, http.MethodPost, "/acp/v1/checkout_sessions/"+session["id"].(string)+"/complete", map[string]string{"payment_token_id": "pm_vaulted"})
	orderID := decode(t, rec)["order"].(map[string]any)["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/acp/v1/orders/"+orderID+"/status", map[string]string{"status": "shipped"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 skipping states, got %d", rec.Code)
	}

	for _, status := range []string{"confirmed", "processing"} {
		rec = doJSON(t, router, http.MethodPost, "/acp/v1/orders/"+orderID+"/status", map[string]string{"status": status})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", status, rec.Code, rec.Body.String())
		}
	}
	rec = doJSON(t, router, http.MethodPost, "/acp/v1/orders/"+orderID+"/status", map[string]string{"status": "shipped", "tracking_number": "1Z999AA10123456784"})
	if got := decode(t, rec)["tracking_number"]; got != "1Z999AA10123456784" {
		t.Fatalf("tracking number not stored: %v", got)
	}

	rec = doJSON(t, router, http.MethodGet, "/acp/v1/orders/"+orderID+"/events", nil)
	evts := decode(t, rec)["events"].([]any)
	var types []string
	for _, e := range evts {
		types = append(types, e.(map[string]any)["event_type"].(string))
	}
	want := []string{"order.created", "order.confirmed", "order.processing", "order.shipped"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestMCPOverHTTPSharesEngine(t *testing.T) {
	router := newTestRouter(t)
	session := createSession(t, router, map[string]any{"line_items": []map[string]any{{"gtin": airMax90, "quantity": 1}}})
	id := session["id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/mcp", map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      mcp.ToolAddShippingAddress,
			"arguments": map[string]any{"session_id": id, "address": address()},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["error"] != nil {
		t.Fatalf("unexpected rpc error: %v", resp["error"])
	}

	session = decode(t, doJSON(t, router, http.MethodGet, "/acp/v1/checkout_sessions/"+id, nil))
	if session["status"] != "ready_for_payment" {
		t.Fatalf("tool update not visible over ACP: %v", session["status"])
	}
}
