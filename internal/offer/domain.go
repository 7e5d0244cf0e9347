// Package offer turns a selected supplier quote into a priced client offer
// and handles the buyer's acceptance, which is the only way an order is born.
package offer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/pricing"
)

// Status is the client offer lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
)

// ClientOffer is the admin-priced offer shown to the buyer. The embedded
// breakdown is the full admin-side decomposition; buyers only ever receive
// the BuyerView projection.
type ClientOffer struct {
	ID                    uuid.UUID         `json:"id"`
	RFQID                 uuid.UUID         `json:"rfq_id"`
	QuoteID               uuid.UUID         `json:"quote_id"`
	BuyerID               uuid.UUID         `json:"buyer_id"`
	Breakdown             pricing.Breakdown `json:"breakdown"`
	EstimatedDeliveryDays int               `json:"estimated_delivery_days"`
	ValidUntil            time.Time         `json:"valid_until"`
	Status                Status            `json:"status"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// BuyerView is the buyer-facing projection. It deliberately omits supplier
// cost, margin and logistics amounts.
type BuyerView struct {
	ID                    uuid.UUID `json:"id"`
	RFQID                 uuid.UUID `json:"rfq_id"`
	FinalTotal            float64   `json:"final_total"`
	VATPercent            float64   `json:"vat_percent"`
	EstimatedDeliveryDays int       `json:"estimated_delivery_days"`
	ValidUntil            time.Time `json:"valid_until"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// ForBuyer projects the offer down to what the buyer may see.
func (o *ClientOffer) ForBuyer() BuyerView {
	return BuyerView{
		ID:                    o.ID,
		RFQID:                 o.RFQID,
		FinalTotal:            o.Breakdown.FinalTotal,
		VATPercent:            o.Breakdown.VATPercent,
		EstimatedDeliveryDays: o.EstimatedDeliveryDays,
		ValidUntil:            o.ValidUntil,
		Status:                o.Status,
		CreatedAt:             o.CreatedAt,
	}
}

var (
	// ErrNotFound indicates an unknown offer.
	ErrNotFound = fmt.Errorf("offer: not found: %w", httpx.ErrNotFound)
	// ErrInvalidOffer indicates malformed offer parameters.
	ErrInvalidOffer = fmt.Errorf("offer: invalid offer: %w", httpx.ErrValidation)
	// ErrQuoteAlreadySelected means another offer already claimed the quote.
	ErrQuoteAlreadySelected = fmt.Errorf("offer: quote already selected: %w", httpx.ErrConflict)
	// ErrQuoteChanged means the quote price moved between pricing and publishing.
	ErrQuoteChanged = fmt.Errorf("offer: quote price changed, re-price before publishing: %w", httpx.ErrConflict)
	// ErrNotPending means the offer was already accepted or expired.
	ErrNotPending = fmt.Errorf("offer: no longer pending: %w", httpx.ErrConflict)
	// ErrOfferExpired means valid_until has passed; no order is created.
	ErrOfferExpired = fmt.Errorf("offer: validity window passed: %w", httpx.ErrExpired)
	// ErrNotOwner blocks buyers from other buyers' offers.
	ErrNotOwner = fmt.Errorf("offer: belongs to another buyer: %w", httpx.ErrForbidden)
)
