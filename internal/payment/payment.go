package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// DeclineCardNumber tokenizes normally but every intent against it fails.
const DeclineCardNumber = "4000000000000002"

type CardDetails struct {
	CardNumber     string          `json:"card_number"`
	ExpMonth       int             `json:"exp_month"`
	ExpYear        int             `json:"exp_year"`
	CVC            string          `json:"cvc"`
	BillingAddress *domain.Address `json:"billing_address,omitempty"`
}

type IntentStatus string

const (
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "failed"
)

type Intent struct {
	ID            string       `json:"id"`
	Status        IntentStatus `json:"status"`
	Amount        domain.Money `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// Provider is the payment collaborator. Callers must treat any status other
// than IntentSucceeded as a decline.
type Provider interface {
	Tokenize(ctx context.Context, card CardDetails) (string, error)
	CreatePaymentIntent(ctx context.Context, amount domain.Money, token string) (*Intent, error)
}

// Mock simulates a processor. Tokens it did not mint are accepted as
// externally vaulted methods. A token can back at most one successful intent.
type Mock struct {
	mu       sync.Mutex
	declined map[string]bool
	used     map[string]bool
	now      func() time.Time
}

func NewMock() *Mock {
	return &Mock{
		declined: make(map[string]bool),
		used:     make(map[string]bool),
		now:      time.Now,
	}
}

func (m *Mock) Tokenize(_ context.Context, card CardDetails) (string, error) {
	number := strings.ReplaceAll(strings.ReplaceAll(card.CardNumber, " ", ""), "-", "")
	if len(number) < 12 || len(number) > 19 || !allDigits(number) {
		return "", domain.Errorf(domain.ErrInvalidInput, "Invalid card number")
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		return "", domain.Errorf(domain.ErrInvalidInput, "Invalid expiration month: %d", card.ExpMonth)
	}
	now := m.now().UTC()
	if card.ExpYear < now.Year() || (card.ExpYear == now.Year() && card.ExpMonth < int(now.Month())) {
		return "", domain.Errorf(domain.ErrInvalidInput, "Card has expired")
	}
	if len(card.CVC) < 3 || len(card.CVC) > 4 || !allDigits(card.CVC) {
		return "", domain.Errorf(domain.ErrInvalidInput, "Invalid CVC")
	}

	token := domain.NewPaymentTokenID()
	m.mu.Lock()
	m.declined[token] = number == DeclineCardNumber
	m.mu.Unlock()
	return token, nil
}

func (m *Mock) CreatePaymentIntent(_ context.Context, amount domain.Money, token string) (*Intent, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Payment token is required")
	}
	intent := &Intent{
		ID:            domain.NewPaymentIntentID(),
		Status:        IntentSucceeded,
		Amount:        amount,
		PaymentMethod: token,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.declined[token]:
		intent.Status = IntentFailed
		intent.FailureReason = "card_declined"
	case m.used[token]:
		intent.Status = IntentFailed
		intent.FailureReason = "payment_method_already_used"
	default:
		m.used[token] = true
	}
	return intent, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
