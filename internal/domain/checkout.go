package domain

import "time"

type SessionStatus string

const (
	SessionNotReady  SessionStatus = "not_ready_for_payment"
	SessionReady     SessionStatus = "ready_for_payment"
	SessionCompleted SessionStatus = "completed"
	SessionCanceled  SessionStatus = "canceled"
)

// Terminal reports whether the session can no longer be mutated.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCanceled
}

type Address struct {
	Name         string `json:"name,omitempty"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

type BuyerInfo struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem is frozen at session creation; its price never follows later catalog changes.
type LineItem struct {
	GTIN      string `json:"gtin"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice Amount `json:"unit_price"`
	LineTotal Amount `json:"line_total"`
}

type FulfillmentOption struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Cost            Amount `json:"cost"`
	DeliveryMinDays int    `json:"delivery_min_days"`
	DeliveryMaxDays int    `json:"delivery_max_days"`
}

type Totals struct {
	ItemsTotal  Money `json:"items_total"`
	Discounts   Money `json:"discounts"`
	Subtotal    Money `json:"subtotal"`
	Fulfillment Money `json:"fulfillment"`
	Taxes       Money `json:"taxes"`
	Fees        Money `json:"fees"`
	Total       Money `json:"total"`
}

// CheckoutSession is the aggregate driven by both protocol surfaces.
// Version increments on every persisted write.
type CheckoutSession struct {
	ID                          string              `json:"id"`
	Status                      SessionStatus       `json:"status"`
	Currency                    string              `json:"currency"`
	LineItems                   []LineItem          `json:"line_items"`
	FulfillmentAddress          *Address            `json:"fulfillment_address"`
	FulfillmentOptions          []FulfillmentOption `json:"fulfillment_options"`
	SelectedFulfillmentOptionID string              `json:"selected_fulfillment_option_id,omitempty"`
	Totals                      Totals              `json:"totals"`
	BuyerInfo                   *BuyerInfo          `json:"buyer_info"`
	PaymentTokenID              string              `json:"payment_token_id,omitempty"`
	OrderID                     string              `json:"order_id,omitempty"`
	Version                     int                 `json:"version"`
	CreatedAt                   time.Time           `json:"created_at"`
	UpdatedAt                   time.Time           `json:"updated_at"`
	ExpiresAt                   time.Time           `json:"expires_at"`
}

func (s *CheckoutSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Option looks up a fulfillment option offered on the session.
func (s *CheckoutSession) Option(id string) (FulfillmentOption, bool) {
	for _, opt := range s.FulfillmentOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return FulfillmentOption{}, false
}
