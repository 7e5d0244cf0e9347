// Package order tracks confirmed deals from offer acceptance through payment
// verification and delivery to completion.
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// Status is the order lifecycle state. The in_transit and delivered values
// are projections mirrored from the logistics job, never set by hand.
type Status string

const (
	StatusAccepted        Status = "accepted"
	StatusPaymentVerified Status = "payment_verified"
	StatusInTransit       Status = "in_transit"
	StatusDelivered       Status = "delivered"
	StatusCompleted       Status = "completed"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusPaymentVerified, StatusInTransit, StatusDelivered, StatusCompleted:
		return true
	}
	return false
}

// PaymentStatus tracks the buyer's payment against the order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
)

// Order is a confirmed deal created by offer acceptance.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	Reference     string        `json:"reference"`
	RFQID         uuid.UUID     `json:"rfq_id"`
	OfferID       uuid.UUID     `json:"offer_id"`
	BuyerID       uuid.UUID     `json:"buyer_id"`
	Subtotal      float64       `json:"subtotal"`
	VATAmount     float64       `json:"vat_amount"`
	FinalTotal    float64       `json:"final_total"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

var (
	// ErrNotFound indicates an unknown order.
	ErrNotFound = fmt.Errorf("order: not found: %w", httpx.ErrNotFound)
	// ErrInvalidTransition indicates the order is not in a state the operation allows.
	ErrInvalidTransition = fmt.Errorf("order: transition not allowed: %w", httpx.ErrConflict)
	// ErrNotOwner blocks buyers from other buyers' orders.
	ErrNotOwner = fmt.Errorf("order: belongs to another buyer: %w", httpx.ErrForbidden)
)
