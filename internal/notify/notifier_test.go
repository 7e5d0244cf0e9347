package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veldlink/veldlink/internal/logistics"
	"github.com/veldlink/veldlink/internal/offer"
	"github.com/veldlink/veldlink/internal/order"
	"github.com/veldlink/veldlink/internal/pricing"
)

type capturedMail struct {
	to, subject, body string
}

type fakeQueue struct {
	sent []capturedMail
}

func (q *fakeQueue) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	q.sent = append(q.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

type fakeDirectory map[uuid.UUID]string

func (d fakeDirectory) Email(ctx context.Context, userID uuid.UUID) (string, error) {
	return d[userID], nil
}

func TestOfferPublishedMailsBuyerWithoutCostDetails(t *testing.T) {
	queue := &fakeQueue{}
	buyer := uuid.New()
	n := NewNotifier(queue, fakeDirectory{buyer: "buyer@example.com"}, nil)

	n.OfferPublished(context.Background(), &offer.ClientOffer{
		BuyerID: buyer,
		Breakdown: pricing.Breakdown{
			SupplierCost: 10000, MarginAmount: 1500, LogisticsFee: 3000, FinalTotal: 16675,
		},
		EstimatedDeliveryDays: 5,
		ValidUntil:            time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, queue.sent, 1)
	mail := queue.sent[0]
	require.Equal(t, "buyer@example.com", mail.to)
	require.Contains(t, mail.body, "5 days")
	// The buyer email must never leak the internal decomposition.
	require.NotContains(t, mail.body, "margin")
	require.NotContains(t, mail.body, "10000")
	require.NotContains(t, mail.body, "3000")
}

func TestOrderCreatedUsesReference(t *testing.T) {
	queue := &fakeQueue{}
	buyer := uuid.New()
	n := NewNotifier(queue, fakeDirectory{buyer: "buyer@example.com"}, nil)

	n.OrderCreated(context.Background(), &order.Order{
		Reference: "ORD-2608-0001", BuyerID: buyer, FinalTotal: 16675,
	})

	require.Len(t, queue.sent, 1)
	require.Contains(t, queue.sent[0].subject, "ORD-2608-0001")
}

func TestJobAssignedMailsTransporter(t *testing.T) {
	queue := &fakeQueue{}
	transporter := uuid.New()
	n := NewNotifier(queue, fakeDirectory{transporter: "driver@example.com"}, nil)

	n.JobAssigned(context.Background(), &logistics.Job{
		TransporterID: &transporter,
		PickupAddress: "4 Quarry Rd", PickupCity: "Durban",
		DeliveryAddress: "12 Foundry Rd", DeliveryCity: "Johannesburg",
		DistanceKm: 568, AgreedRate: 14200,
	})

	require.Len(t, queue.sent, 1)
	require.Equal(t, "driver@example.com", queue.sent[0].to)
	require.Contains(t, queue.sent[0].body, "Durban")
}

func TestFormatZARCarriesTheRandSymbol(t *testing.T) {
	out := FormatZAR(16675)
	require.True(t, strings.Contains(out, "R"))
}
