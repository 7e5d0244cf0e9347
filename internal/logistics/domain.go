// Package logistics runs the delivery leg: jobs raised against paid orders,
// claimed by transporters, tracked through to proof-of-delivery.
package logistics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// Status is the logistics job lifecycle state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAssigned    Status = "assigned"
	StatusPickedUp    Status = "picked_up"
	StatusInTransit   Status = "in_transit"
	StatusDelivered   Status = "delivered"
	StatusPODUploaded Status = "pod_uploaded"
	StatusCompleted   Status = "completed"
)

// next is the single permitted successor for each state; the chain never
// branches or skips.
var next = map[Status]Status{
	StatusPending:     StatusAssigned,
	StatusAssigned:    StatusPickedUp,
	StatusPickedUp:    StatusInTransit,
	StatusInTransit:   StatusDelivered,
	StatusDelivered:   StatusPODUploaded,
	StatusPODUploaded: StatusCompleted,
}

// CanAdvanceTo reports whether to is the immediate successor of s.
func (s Status) CanAdvanceTo(to Status) bool {
	return next[s] == to
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	if s == StatusCompleted {
		return true
	}
	_, ok := next[s]
	return ok
}

// Job is one delivery assignment against a paid order.
type Job struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	TransporterID   *uuid.UUID `json:"transporter_id,omitempty"`
	PickupAddress   string     `json:"pickup_address"`
	PickupCity      string     `json:"pickup_city"`
	DeliveryAddress string     `json:"delivery_address"`
	DeliveryCity    string     `json:"delivery_city"`
	DistanceKm      float64    `json:"distance_km"`
	AgreedRate      float64    `json:"agreed_rate"`
	PODURL          string     `json:"pod_url,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

var (
	// ErrNotFound indicates an unknown job.
	ErrNotFound = fmt.Errorf("logistics: job not found: %w", httpx.ErrNotFound)
	// ErrInvalidJob indicates malformed job fields.
	ErrInvalidJob = fmt.Errorf("logistics: invalid job: %w", httpx.ErrValidation)
	// ErrOrderNotReady means the order has no verified payment yet.
	ErrOrderNotReady = fmt.Errorf("logistics: order not ready for dispatch: %w", httpx.ErrConflict)
	// ErrAlreadyClaimed means another transporter got the job first.
	ErrAlreadyClaimed = fmt.Errorf("logistics: job already claimed: %w", httpx.ErrConflict)
	// ErrInvalidTransition indicates a skipped or repeated lifecycle step.
	ErrInvalidTransition = fmt.Errorf("logistics: transition not allowed: %w", httpx.ErrConflict)
	// ErrNotAssignee blocks transporters from jobs they do not hold.
	ErrNotAssignee = fmt.Errorf("logistics: job held by another transporter: %w", httpx.ErrForbidden)
	// ErrMissingPOD blocks completion without a recorded proof of delivery.
	ErrMissingPOD = fmt.Errorf("logistics: proof of delivery required: %w", httpx.ErrConflict)
)
