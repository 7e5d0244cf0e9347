// Package pricing computes the buyer-facing price for a sourced quote:
// supplier cost plus broker margin plus a distance-based logistics fee,
// with VAT applied on the subtotal.
package pricing

import (
	"fmt"
	"math"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// VATPercent is the flat VAT rate applied to every offer.
const VATPercent = 15.0

// ErrInvalidInput indicates malformed calculator inputs.
var ErrInvalidInput = fmt.Errorf("pricing: invalid input: %w", httpx.ErrValidation)

// Input holds the parameters for one price calculation.
type Input struct {
	SupplierCost  float64
	MarginPercent float64
	DistanceKm    float64
	RatePerKm     float64
	MinFee        float64
}

// Breakdown is the full decomposition of a computed price. Only FinalTotal
// ever crosses the buyer boundary; the rest stays admin-side.
type Breakdown struct {
	SupplierCost  float64 `json:"supplier_cost"`
	MarginPercent float64 `json:"margin_percent"`
	MarginAmount  float64 `json:"margin_amount"`
	DistanceKm    float64 `json:"distance_km"`
	LogisticsFee  float64 `json:"logistics_fee"`
	Subtotal      float64 `json:"subtotal"`
	VATPercent    float64 `json:"vat_percent"`
	VATAmount     float64 `json:"vat_amount"`
	FinalTotal    float64 `json:"final_total"`
}

// Calculate derives the offer price in fixed order: margin, logistics fee
// (floored at MinFee so short routes still cover dispatch overhead), subtotal,
// VAT, final total. Each derived amount is rounded to cents.
func Calculate(in Input) (Breakdown, error) {
	if err := validate(in); err != nil {
		return Breakdown{}, err
	}

	marginAmount := roundCents(in.SupplierCost * in.MarginPercent / 100)
	logisticsFee := roundCents(math.Max(in.DistanceKm*in.RatePerKm, in.MinFee))
	subtotal := roundCents(in.SupplierCost + marginAmount + logisticsFee)
	vatAmount := roundCents(subtotal * VATPercent / 100)
	finalTotal := roundCents(subtotal + vatAmount)

	return Breakdown{
		SupplierCost:  in.SupplierCost,
		MarginPercent: in.MarginPercent,
		MarginAmount:  marginAmount,
		DistanceKm:    in.DistanceKm,
		LogisticsFee:  logisticsFee,
		Subtotal:      subtotal,
		VATPercent:    VATPercent,
		VATAmount:     vatAmount,
		FinalTotal:    finalTotal,
	}, nil
}

func validate(in Input) error {
	switch {
	case in.SupplierCost <= 0:
		return fmt.Errorf("%w: supplier cost must be positive", ErrInvalidInput)
	case in.MarginPercent < 0 || in.MarginPercent > 100:
		return fmt.Errorf("%w: margin percent must be within 0-100", ErrInvalidInput)
	case in.DistanceKm < 0:
		return fmt.Errorf("%w: distance cannot be negative", ErrInvalidInput)
	case in.RatePerKm < 0:
		return fmt.Errorf("%w: rate per km cannot be negative", ErrInvalidInput)
	case in.MinFee < 0:
		return fmt.Errorf("%w: minimum logistics fee cannot be negative", ErrInvalidInput)
	}
	return nil
}

// roundCents rounds half away from zero to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
