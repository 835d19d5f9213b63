// Package events defines the business events the ledger engine consumes
// and the handler that turns them into reconcile calls.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type discriminates the envelope payload.
type Type string

const (
	TypePaymentSaved      Type = "payment.saved"
	TypePaymentDeleted    Type = "payment.deleted"
	TypeOEMPaymentSaved   Type = "oem_payment.saved"
	TypeOEMPaymentDeleted Type = "oem_payment.deleted"
	TypeExpenseSaved      Type = "expense.saved"
	TypeExpenseDeleted    Type = "expense.deleted"
)

// Envelope wraps every event on the wire. Saved events carry the full
// record as payload; deleted events carry only the record id.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Deleted is the payload of every *.deleted event.
type Deleted struct {
	ID uuid.UUID `json:"id"`
}
