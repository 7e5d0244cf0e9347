// Package quote holds supplier quotes against open RFQs. A supplier keeps a
// single quote per RFQ and may revise it until sourcing closes or the quote
// is selected for an offer.
package quote

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// SupplierQuote is one supplier's bid on an RFQ. TotalPrice is derived
// server-side from the RFQ quantity at every write; it is never accepted
// from the client.
type SupplierQuote struct {
	ID           uuid.UUID `json:"id"`
	RFQID        uuid.UUID `json:"rfq_id"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	PricePerUnit float64   `json:"price_per_unit"`
	TotalPrice   float64   `json:"total_price"`
	LeadTimeDays int       `json:"lead_time_days"`
	PickupCity   string    `json:"pickup_city"`
	Notes        string    `json:"notes,omitempty"`
	IsSelected   bool      `json:"is_selected"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates an unknown quote.
	ErrNotFound = fmt.Errorf("quote: not found: %w", httpx.ErrNotFound)
	// ErrInvalidQuote indicates malformed quote fields.
	ErrInvalidQuote = fmt.Errorf("quote: invalid quote: %w", httpx.ErrValidation)
	// ErrRFQClosed indicates the RFQ no longer accepts quotes.
	ErrRFQClosed = fmt.Errorf("quote: rfq closed for quoting: %w", httpx.ErrConflict)
	// ErrAlreadySelected guards a quote that has been turned into an offer.
	ErrAlreadySelected = fmt.Errorf("quote: already selected: %w", httpx.ErrConflict)
)
