package domain

import (
	"encoding/hex"

	"github.com/google/uuid"
)

func NewSessionID() string       { return prefixedID("cs_", 16) }
func NewOrderID() string         { return prefixedID("order_", 12) }
func NewEventID() string         { return prefixedID("evt_", 12) }
func NewPaymentTokenID() string  { return prefixedID("pm_", 16) }
func NewPaymentIntentID() string { return prefixedID("pi_", 16) }

// prefixedID appends up to 24 random hex characters to prefix. Bytes 6 and 8
// of a v4 UUID carry the version and variant bits and are skipped.
func prefixedID(prefix string, n int) string {
	u := uuid.New()
	b := append(append(make([]byte, 0, 12), u[:6]...), u[10:]...)
	return prefix + hex.EncodeToString(b)[:n]
}
