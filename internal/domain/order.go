package domain

import "time"

type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCanceled   OrderStatus = "canceled"
)

// orderTransitions lists the legal next states for each order status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated:    {OrderConfirmed, OrderCanceled},
	OrderConfirmed:  {OrderProcessing, OrderCanceled},
	OrderProcessing: {OrderShipped, OrderCanceled},
	OrderShipped:    {OrderDelivered, OrderCanceled},
	OrderDelivered:  nil,
	OrderCanceled:   nil,
}

// ParseOrderStatus validates a status name supplied by a caller.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", Errorf(ErrInvalidInput, "Unknown order status: %s", s)
	}
	return st, nil
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is an immutable snapshot of a completed checkout session. Only
// Status, TrackingNumber and UpdatedAt change after creation.
type Order struct {
	ID                string            `json:"id"`
	CheckoutSessionID string            `json:"checkout_session_id"`
	Status            OrderStatus       `json:"status"`
	LineItems         []LineItem        `json:"line_items"`
	ShippingAddress   Address           `json:"shipping_address"`
	ShippingOption    FulfillmentOption `json:"shipping_option"`
	Totals            Totals            `json:"totals"`
	BuyerInfo         *BuyerInfo        `json:"buyer_info"`
	PaymentID         string            `json:"payment_id"`
	TrackingNumber    *string           `json:"tracking_number"`
	Permalink         string            `json:"permalink"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

const EventOrderCreated = "order.created"

// OrderEventType names the event appended for a status change.
func OrderEventType(s OrderStatus) string {
	return "order." + string(s)
}

// OrderEvent is an append-only log entry.
type OrderEvent struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}
