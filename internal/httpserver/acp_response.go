package httpserver

import (
	"time"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// sessionResponse is the full session state returned by every session route.
type sessionResponse struct {
	ID                          string                     `json:"id"`
	Status                      domain.SessionStatus       `json:"status"`
	Currency                    string                     `json:"currency"`
	LineItems                   []domain.LineItem          `json:"line_items"`
	FulfillmentAddress          *domain.Address            `json:"fulfillment_address"`
	FulfillmentOptions          []domain.FulfillmentOption `json:"fulfillment_options"`
	SelectedFulfillmentOptionID *string                    `json:"selected_fulfillment_option_id"`
	Totals                      domain.Totals              `json:"totals"`
	BuyerInfo                   *domain.BuyerInfo          `json:"buyer_info"`
	PaymentTokenID              *string                    `json:"payment_token_id"`
	OrderID                     *string                    `json:"order_id"`
	Links                       Links                      `json:"links"`
	CreatedAt                   time.Time                  `json:"created_at"`
	UpdatedAt                   time.Time                  `json:"updated_at"`
	ExpiresAt                   time.Time                  `json:"expires_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toSessionResponse(cs *domain.CheckoutSession, links Links) sessionResponse {
	items := cs.LineItems
	if items == nil {
		items = []domain.LineItem{}
	}
	options := cs.FulfillmentOptions
	if options == nil {
		options = []domain.FulfillmentOption{}
	}
	return sessionResponse{
		ID:                          cs.ID,
		Status:                      cs.Status,
		Currency:                    cs.Currency,
		LineItems:                   items,
		FulfillmentAddress:          cs.FulfillmentAddress,
		FulfillmentOptions:          options,
		SelectedFulfillmentOptionID: optional(cs.SelectedFulfillmentOptionID),
		Totals:                      cs.Totals,
		BuyerInfo:                   cs.BuyerInfo,
		PaymentTokenID:              optional(cs.PaymentTokenID),
		OrderID:                     optional(cs.OrderID),
		Links:                       links,
		CreatedAt:                   cs.CreatedAt,
		UpdatedAt:                   cs.UpdatedAt,
		ExpiresAt:                   cs.ExpiresAt,
	}
}

type orderRef struct {
	ID                string    `json:"id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	Permalink         string    `json:"permalink"`
	CreatedAt         time.Time `json:"created_at"`
}

type message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type completeResponse struct {
	ID       string               `json:"id"`
	Status   domain.SessionStatus `json:"status"`
	Order    orderRef             `json:"order"`
	Messages []message            `json:"messages"`
}

func toCompleteResponse(cs *domain.CheckoutSession, o *domain.Order) completeResponse {
	text := "Your order has been confirmed!"
	if o.BuyerInfo != nil && o.BuyerInfo.Email != "" {
		text += " You'll receive a confirmation email at " + o.BuyerInfo.Email
	}
	return completeResponse{
		ID:     cs.ID,
		Status: cs.Status,
		Order: orderRef{
			ID:                o.ID,
			CheckoutSessionID: o.CheckoutSessionID,
			Permalink:         o.Permalink,
			CreatedAt:         o.CreatedAt,
		},
		Messages: []message{{Type: "success", Text: text}},
	}
}

type cancelResponse struct {
	ID        string               `json:"id"`
	Status    domain.SessionStatus `json:"status"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type delegateResponse struct {
	PaymentTokenID string `json:"payment_token_id"`
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
}

type orderEventsResponse struct {
	OrderID string              `json:"order_id"`
	Events  []domain.OrderEvent `json:"events"`
}
