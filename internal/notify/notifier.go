package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/logistics"
	"github.com/veldlink/veldlink/internal/offer"
	"github.com/veldlink/veldlink/internal/order"
)

// Enqueuer hands mail off to the background queue.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Directory resolves a user ID to the address we mail.
type Directory interface {
	Email(ctx context.Context, userID uuid.UUID) (string, error)
}

// Notifier translates workflow events into queued email. Failures are logged
// and swallowed; notification trouble never fails the originating request.
type Notifier struct {
	queue  Enqueuer
	users  Directory
	logger *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(queue Enqueuer, users Directory, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{queue: queue, users: users, logger: logger}
}

// OfferPublished mails the buyer that a priced offer is waiting.
func (n *Notifier) OfferPublished(ctx context.Context, o *offer.ClientOffer) {
	body := fmt.Sprintf(
		"An offer is ready on your request.\n\nTotal (incl. VAT): %s\nEstimated delivery: %d days\nValid until: %s\n",
		FormatZAR(o.Breakdown.FinalTotal), o.EstimatedDeliveryDays, o.ValidUntil.Format("2 January 2006"))
	n.send(ctx, o.BuyerID, "Your Veldlink offer is ready", body)
}

// OrderCreated mails the buyer their order confirmation.
func (n *Notifier) OrderCreated(ctx context.Context, ord *order.Order) {
	body := fmt.Sprintf(
		"Order %s has been created.\n\nTotal (incl. VAT): %s\nWe will confirm dispatch once payment is verified.\n",
		ord.Reference, FormatZAR(ord.FinalTotal))
	n.send(ctx, ord.BuyerID, "Order confirmed: "+ord.Reference, body)
}

// JobAssigned mails the transporter their new load.
func (n *Notifier) JobAssigned(ctx context.Context, job *logistics.Job) {
	if job.TransporterID == nil {
		return
	}
	body := fmt.Sprintf(
		"You have been assigned a delivery.\n\nPickup: %s, %s\nDelivery: %s, %s\nDistance: %.0f km\nAgreed rate: %s\n",
		job.PickupAddress, job.PickupCity, job.DeliveryAddress, job.DeliveryCity,
		job.DistanceKm, FormatZAR(job.AgreedRate))
	n.send(ctx, *job.TransporterID, "New delivery assignment", body)
}

func (n *Notifier) send(ctx context.Context, userID uuid.UUID, subject, body string) {
	to, err := n.users.Email(ctx, userID)
	if err != nil {
		n.logger.Warn("notify: resolve recipient", slog.String("user_id", userID.String()), slog.Any("error", err))
		return
	}
	if err := n.queue.EnqueueEmail(ctx, to, subject, body); err != nil {
		n.logger.Warn("notify: enqueue mail", slog.String("to", to), slog.Any("error", err))
	}
}

// AuthDirectory adapts the auth service to the Directory port.
type AuthDirectory struct {
	service *auth.Service
}

// NewAuthDirectory constructs an AuthDirectory.
func NewAuthDirectory(service *auth.Service) *AuthDirectory {
	return &AuthDirectory{service: service}
}

// Email returns the account email for a user ID.
func (d *AuthDirectory) Email(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := d.service.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

var (
	_ offer.Notifier     = (*Notifier)(nil)
	_ logistics.Notifier = (*Notifier)(nil)
)
