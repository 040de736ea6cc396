package payments

import (
	"context"

	"github.com/relhe/billpilot/internal/client/lookup"
	"github.com/relhe/billpilot/internal/domain/payment"
)

// PaymentAPI defines the remote payment service surface the manager needs
type PaymentAPI interface {
	// List fetches every payment record
	List(ctx context.Context) ([]payment.Payment, error)
	// Get fetches a single payment by identifier
	Get(ctx context.Context, id string) (payment.Payment, error)
	// Create persists a new payment and returns the assigned identifier
	Create(ctx context.Context, p payment.Payment) (string, error)
	// Update sends a field patch for an existing payment
	Update(ctx context.Context, id string, patch payment.Patch) error
	// Delete removes a payment
	Delete(ctx context.Context, id string) error
	// UploadEvidence attaches an evidence file to a payment
	UploadEvidence(ctx context.Context, id string, ev payment.Evidence) error
	// DownloadEvidence returns the evidence file attached to a payment
	DownloadEvidence(ctx context.Context, id string) (payment.Evidence, error)
}

// LocationLookup defines the reference-data surface used for country
// resolution and currency choices
type LocationLookup interface {
	// Countries returns every country with its ISO2 code and city list
	Countries(ctx context.Context) ([]lookup.Country, error)
	// Currencies returns the deduplicated list of ISO 4217 codes
	Currencies(ctx context.Context) ([]string, error)
}
