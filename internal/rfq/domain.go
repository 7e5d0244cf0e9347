// Package rfq implements the request-for-quotation side of the marketplace:
// buyers raise sourcing requests, admins shepherd them through sourcing until
// an offer is published and accepted.
package rfq

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// Status is the RFQ lifecycle state.
type Status string

const (
	StatusNew       Status = "new"
	StatusSourcing  Status = "sourcing"
	StatusQuoted    Status = "quoted"
	StatusAccepted  Status = "accepted"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusSourcing, StatusQuoted, StatusAccepted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusCancelled
}

// CanQuote reports whether suppliers may still submit quotes.
func (s Status) CanQuote() bool {
	return s == StatusNew || s == StatusSourcing
}

// CanCancel reports whether the RFQ may still be withdrawn.
func (s Status) CanCancel() bool {
	return !s.Terminal()
}

// RFQ is a buyer's sourcing request.
type RFQ struct {
	ID               uuid.UUID  `json:"id"`
	Reference        string     `json:"reference"`
	BuyerID          uuid.UUID  `json:"buyer_id"`
	CategoryID       uuid.UUID  `json:"category_id,omitempty"`
	ProductName      string     `json:"product_name"`
	Quantity         float64    `json:"quantity"`
	Unit             string     `json:"unit"`
	DeliveryAddress  string     `json:"delivery_address"`
	DeliveryCity     string     `json:"delivery_city"`
	DeliveryProvince string     `json:"delivery_province,omitempty"`
	RequiredBy       *time.Time `json:"required_by,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	// ErrNotFound indicates an unknown RFQ.
	ErrNotFound = fmt.Errorf("rfq: not found: %w", httpx.ErrNotFound)
	// ErrInvalidRFQ indicates malformed RFQ fields.
	ErrInvalidRFQ = fmt.Errorf("rfq: invalid request: %w", httpx.ErrValidation)
	// ErrInvalidTransition indicates the RFQ is not in a state the operation allows.
	ErrInvalidTransition = fmt.Errorf("rfq: transition not allowed: %w", httpx.ErrConflict)
	// ErrNotOwner blocks buyers from other buyers' RFQs.
	ErrNotOwner = fmt.Errorf("rfq: belongs to another buyer: %w", httpx.ErrForbidden)
)
