package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

func decodeArgs(tool string, raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid arguments for %s: %v", tool, err)}
	}
	return nil
}

func missingArg(name string) error {
	return &RPCError{Code: CodeInvalidParams, Message: "Missing required argument: " + name}
}

type productSummary struct {
	GTIN         string              `json:"gtin"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Price        domain.Amount       `json:"price"`
	Currency     string              `json:"currency"`
	Category     string              `json:"category"`
	Availability domain.Availability `json:"availability"`
	Images       []string            `json:"images"`
}

type productDetails struct {
	GTIN         string              `json:"gtin"`
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Price        domain.Amount       `json:"price"`
	Currency     string              `json:"currency"`
	Brand        string              `json:"brand"`
	Category     string              `json:"category"`
	Availability domain.Availability `json:"availability"`
	Images       []string            `json:"images"`
	Variants     []map[string]string `json:"variants"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (d *Dispatcher) searchProducts(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		Query    *string        `json:"query"`
		Category string         `json:"category"`
		PriceMax *domain.Amount `json:"price_max"`
		Limit    int            `json:"limit"`
	}
	if err := decodeArgs(ToolSearchProducts, raw, &args); err != nil {
		return nil, false, err
	}
	if args.Query == nil {
		return nil, false, missingArg("query")
	}

	products, err := d.products.Search(ctx, productsvc.SearchInput{
		Query:    *args.Query,
		Category: args.Category,
		PriceMax: args.PriceMax,
		Limit:    args.Limit,
	})
	if err != nil {
		return nil, false, err
	}
	out := make([]productSummary, 0, len(products))
	for _, p := range products {
		out = append(out, productSummary{
			GTIN:         p.GTIN,
			Title:        p.Title,
			Description:  p.Description,
			Price:        p.Price.Round2(),
			Currency:     p.Currency,
			Category:     p.Category,
			Availability: p.Availability,
			Images:       nonNil(p.Images),
		})
	}
	return out, false, nil
}

func (d *Dispatcher) getProductDetails(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		GTIN string `json:"gtin"`
	}
	if err := decodeArgs(ToolGetProductDetails, raw, &args); err != nil {
		return nil, false, err
	}
	if args.GTIN == "" {
		return nil, false, missingArg("gtin")
	}

	p, err := d.products.GetByGTIN(ctx, args.GTIN)
	if errors.Is(err, domain.ErrNotFound) {
		return map[string]string{"error": domain.Reason(err), "gtin": args.GTIN}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return productDetails{
		GTIN:         p.GTIN,
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Price:        p.Price.Round2(),
		Currency:     p.Currency,
		Brand:        p.Brand,
		Category:     p.Category,
		Availability: p.Availability,
		Images:       nonNil(p.Images),
		Variants:     nonNil(p.Variants),
	}, false, nil
}

type checkoutCreated struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status"`
	Items     []domain.LineItem    `json:"items"`
	Subtotal  domain.Amount        `json:"subtotal"`
	Currency  string               `json:"currency"`
	Message   string               `json:"message"`
}

func (d *Dispatcher) createCheckout(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		Items []struct {
			GTIN     string `json:"gtin"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		BuyerEmail string `json:"buyer_email"`
	}
	if err := decodeArgs(ToolCreateCheckout, raw, &args); err != nil {
		return nil, false, err
	}
	if len(args.Items) == 0 {
		return nil, false, missingArg("items")
	}

	in := checkoutsvc.CreateInput{}
	for _, item := range args.Items {
		in.Items = append(in.Items, checkoutsvc.ItemInput{GTIN: item.GTIN, Quantity: item.Quantity})
	}
	if email := strings.TrimSpace(args.BuyerEmail); email != "" {
		in.BuyerInfo = &domain.BuyerInfo{FirstName: "Customer", LastName: "User", Email: email}
	}

	cs, err := d.checkout.Create(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return checkoutCreated{
		SessionID: cs.ID,
		Status:    cs.Status,
		Items:     cs.LineItems,
		Subtotal:  cs.Totals.Subtotal.Value,
		Currency:  cs.Currency,
		Message:   "Checkout session created. Add shipping address to continue.",
	}, false, nil
}

type shippingTotals struct {
	Items    domain.Amount `json:"items"`
	Shipping domain.Amount `json:"shipping"`
	Tax      domain.Amount `json:"tax"`
	Total    domain.Amount `json:"total"`
}

type shippingAdded struct {
	SessionID        string                     `json:"session_id"`
	Status           domain.SessionStatus       `json:"status"`
	ShippingAddress  *domain.Address            `json:"shipping_address"`
	ShippingOptions  []domain.FulfillmentOption `json:"shipping_options"`
	SelectedShipping string                     `json:"selected_shipping"`
	Totals           shippingTotals             `json:"totals"`
	Message          string                     `json:"message"`
}

func (d *Dispatcher) addShippingAddress(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		SessionID           string          `json:"session_id"`
		Address             *domain.Address `json:"address"`
		FulfillmentOptionID string          `json:"fulfillment_option_id"`
	}
	if err := decodeArgs(ToolAddShippingAddress, raw, &args); err != nil {
		return nil, false, err
	}
	if args.SessionID == "" {
		return nil, false, missingArg("session_id")
	}
	if args.Address == nil {
		return nil, false, missingArg("address")
	}
	if strings.TrimSpace(args.Address.Name) == "" {
		args.Address.Name = "Customer"
	}
	if strings.TrimSpace(args.Address.Country) == "" {
		args.Address.Country = "US"
	}

	cs, err := d.checkout.Update(ctx, args.SessionID, checkoutsvc.UpdateInput{
		Address:             args.Address,
		FulfillmentOptionID: args.FulfillmentOptionID,
	})
	if err != nil {
		return nil, false, err
	}
	return shippingAdded{
		SessionID:        cs.ID,
		Status:           cs.Status,
		ShippingAddress:  cs.FulfillmentAddress,
		ShippingOptions:  nonNil(cs.FulfillmentOptions),
		SelectedShipping: cs.SelectedFulfillmentOptionID,
		Totals: shippingTotals{
			Items:    cs.Totals.ItemsTotal.Value,
			Shipping: cs.Totals.Fulfillment.Value,
			Tax:      cs.Totals.Taxes.Value,
			Total:    cs.Totals.Total.Value,
		},
		Message: "Shipping calculated. Ready for payment.",
	}, false, nil
}

type purchaseCompleted struct {
	Success     bool               `json:"success"`
	OrderID     string             `json:"order_id"`
	OrderStatus domain.OrderStatus `json:"order_status"`
	Total       domain.Amount      `json:"total"`
	Currency    string             `json:"currency"`
	Permalink   string             `json:"permalink"`
	Message     string             `json:"message"`
}

type purchaseFailed struct {
	Error   string               `json:"error"`
	Status  domain.SessionStatus `json:"status,omitempty"`
	Message string               `json:"message"`
}

func notReady(status domain.SessionStatus) purchaseFailed {
	return purchaseFailed{
		Error:   "Session is not ready for payment",
		Status:  status,
		Message: "Please add shipping address first.",
	}
}

// completePurchase tokenizes the card once and completes with that token. A
// completion failure is reported as is; the card is never tokenized again.
func (d *Dispatcher) completePurchase(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		SessionID     string               `json:"session_id"`
		PaymentMethod *payment.CardDetails `json:"payment_method"`
	}
	if err := decodeArgs(ToolCompletePurchase, raw, &args); err != nil {
		return nil, false, err
	}
	if args.SessionID == "" {
		return nil, false, missingArg("session_id")
	}
	if args.PaymentMethod == nil {
		return nil, false, missingArg("payment_method")
	}

	cs, err := d.checkout.Get(ctx, args.SessionID)
	if err != nil {
		return nil, false, err
	}
	if cs.Status != domain.SessionReady {
		return notReady(cs.Status), true, nil
	}

	token, err := d.checkout.DelegatePayment(ctx, *args.PaymentMethod)
	if err != nil {
		return nil, false, err
	}
	res, err := d.checkout.Complete(ctx, cs.ID, token)
	switch {
	case errors.Is(err, domain.ErrPaymentDeclined):
		return purchaseFailed{
			Error:   "Payment failed",
			Message: "Payment was declined. Please check payment details.",
		}, true, nil
	case errors.Is(err, domain.ErrNotReady):
		return notReady(cs.Status), true, nil
	case err != nil:
		return nil, false, err
	}

	return purchaseCompleted{
		Success:     true,
		OrderID:     res.Order.ID,
		OrderStatus: res.Order.Status,
		Total:       res.Session.Totals.Total.Value,
		Currency:    res.Session.Currency,
		Permalink:   res.Order.Permalink,
		Message:     fmt.Sprintf("Order %s confirmed! Confirmation email sent.", res.Order.ID),
	}, false, nil
}

type orderStatus struct {
	OrderID         string             `json:"order_id"`
	Status          domain.OrderStatus `json:"status"`
	Items           []domain.LineItem  `json:"items"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	Total           domain.Amount      `json:"total"`
	TrackingNumber  *string            `json:"tracking_number"`
	Permalink       string             `json:"permalink"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (d *Dispatcher) getOrderStatus(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var args struct {
		OrderID string `json:"order_id"`
	}
	if err := decodeArgs(ToolGetOrderStatus, raw, &args); err != nil {
		return nil, false, err
	}
	if args.OrderID == "" {
		return nil, false, missingArg("order_id")
	}

	o, err := d.orders.Get(ctx, args.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return map[string]string{"error": domain.Reason(err), "order_id": args.OrderID}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return orderStatus{
		OrderID:         o.ID,
		Status:          o.Status,
		Items:           o.LineItems,
		ShippingAddress: o.ShippingAddress,
		Total:           o.Totals.Total.Value,
		TrackingNumber:  o.TrackingNumber,
		Permalink:       o.Permalink,
		CreatedAt:       o.CreatedAt,
	}, false, nil
}
