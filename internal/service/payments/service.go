// Package payments orchestrates the payment record flows: loading the
// working copy, the edit/create/delete round trips against the remote
// service, and the business rules guarding them.
package payments

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/relhe/billpilot/internal/client/lookup"
	"github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/domain/payment"
	"github.com/relhe/billpilot/internal/metrics"
	"github.com/relhe/billpilot/internal/store"
)

// Service coordinates the store, the remote payment service and the
// reference-data lookup. One mutating operation per record may be in
// flight at a time; a second is rejected with a conflict error.
type Service struct {
	api    PaymentAPI
	lookup LocationLookup
	store  *store.Store
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates the manager service
func NewService(api PaymentAPI, lookup LocationLookup, st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:      api,
		lookup:   lookup,
		store:    st,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Store exposes the working copy for view operations (filtering, paging)
func (s *Service) Store() *store.Store {
	return s.store
}

// Load fetches every record from the remote service and replaces the
// working copy wholesale
func (s *Service) Load(ctx context.Context) error {
	start := time.Now()
	records, err := s.api.List(ctx)
	s.observe("list", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "loading payments failed", "error", err)
		return err
	}

	s.store.Load(records)
	metrics.SetStoreSize(s.store.Len())
	s.logger.InfoContext(ctx, "payments loaded", "count", len(records))
	return nil
}

// OpenForEdit fetches the current server copy of a record and prefills an
// edit form from it. Overdue records are locked and cannot be opened.
func (s *Service) OpenForEdit(ctx context.Context, id string) (payment.EditForm, payment.Payment, error) {
	start := time.Now()
	p, err := s.api.Get(ctx, id)
	s.observe("get", start, err)
	if err != nil {
		return payment.EditForm{}, payment.Payment{}, err
	}

	if p.Status == payment.StatusOverdue {
		return payment.EditForm{}, payment.Payment{}, errors.ErrOverdueLocked
	}

	return payment.FormFromPayment(p), p, nil
}

// Update validates the form, enforces the evidence rule for completion,
// uploads the evidence when needed, then sends the field patch. Validation
// and business-rule failures abort before any network call. The working
// copy is reloaded on success.
func (s *Service) Update(ctx context.Context, id string, original payment.Payment, form payment.EditForm, evidence *payment.Evidence) error {
	if err := form.Validate(); err != nil {
		return err
	}

	completing := form.Status == payment.StatusCompleted && original.Status != payment.StatusCompleted
	if completing {
		if evidence == nil {
			return errors.ErrEvidenceRequired
		}
		if !payment.AllowedEvidenceType(*evidence) {
			return errors.ErrUnsupportedFileType
		}
	}

	if err := s.begin(id); err != nil {
		return err
	}
	defer s.end(id)

	if completing {
		start := time.Now()
		err := s.api.UploadEvidence(ctx, id, *evidence)
		s.observe("upload_evidence", start, err)
		if err != nil {
			metrics.RecordEvidenceUpload("error")
			return err
		}
		metrics.RecordEvidenceUpload("success")
	}

	patch := payment.Diff(original, form)

	// The due amount is editable; the derived total must follow it.
	if due, ok := patch[payment.FieldDueAmount].(float64); ok {
		patch[payment.FieldTotalDue] = payment.ComputeTotalDue(
			due, original.DiscountPercent, original.TaxPercent)
	}

	start := time.Now()
	err := s.api.Update(ctx, id, patch)
	s.observe("update", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment update failed", "id", id, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "payment updated", "id", id, "fields", len(patch))
	return s.Load(ctx)
}

// Create validates and persists a new payment. A country given by name is
// resolved to its ISO2 code first; the added date and status receive their
// defaults when unset.
func (s *Service) Create(ctx context.Context, p payment.Payment) (string, error) {
	if p.Status == "" {
		p.Status = payment.StatusPending
	}
	if p.AddedDateUTC.IsZero() {
		p.AddedDateUTC = time.Now().UTC()
	}

	if len(p.Country) != 2 {
		iso2, err := s.ResolveCountry(ctx, p.Country)
		if err != nil {
			return "", err
		}
		p.Country = iso2
	}

	p.RecalculateTotalDue()

	if err := p.Validate(); err != nil {
		return "", err
	}

	start := time.Now()
	id, err := s.api.Create(ctx, p)
	s.observe("create", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment create failed", "error", err)
		return "", err
	}

	s.logger.InfoContext(ctx, "payment created", "id", id)
	return id, nil
}

// Delete removes the record remotely, then drops it from the working copy
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.begin(id); err != nil {
		return err
	}
	defer s.end(id)

	start := time.Now()
	err := s.api.Delete(ctx, id)
	s.observe("delete", start, err)
	if err != nil {
		return err
	}

	s.store.Remove(id)
	metrics.SetStoreSize(s.store.Len())
	s.logger.InfoContext(ctx, "payment deleted", "id", id)
	return nil
}

// DownloadEvidence returns the evidence artifact attached to a payment
func (s *Service) DownloadEvidence(ctx context.Context, id string) (payment.Evidence, error) {
	start := time.Now()
	ev, err := s.api.DownloadEvidence(ctx, id)
	s.observe("download_evidence", start, err)
	return ev, err
}

// ResolveCountry resolves a country name to its ISO 3166-1 alpha-2 code
func (s *Service) ResolveCountry(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.NewValidationError("UNKNOWN_COUNTRY", "country is required")
	}

	start := time.Now()
	countries, err := s.lookup.Countries(ctx)
	s.observe("countries", start, err)
	if err != nil {
		return "", err
	}

	iso2, ok := lookup.NewCountryIndex(countries).ISO2(name)
	if !ok {
		return "", errors.NewValidationError("UNKNOWN_COUNTRY",
			"unknown country: "+name).
			WithDetails(map[string]interface{}{"country": name})
	}
	return iso2, nil
}

// Currencies returns the ISO 4217 codes offered on the editing surface
func (s *Service) Currencies(ctx context.Context) ([]string, error) {
	start := time.Now()
	codes, err := s.lookup.Currencies(ctx)
	s.observe("currencies", start, err)
	return codes, err
}

// Cities returns the known cities for a country name
func (s *Service) Cities(ctx context.Context, country string) ([]string, error) {
	start := time.Now()
	countries, err := s.lookup.Countries(ctx)
	s.observe("countries", start, err)
	if err != nil {
		return nil, err
	}
	return lookup.NewCountryIndex(countries).Cities(country), nil
}

func (s *Service) begin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return errors.ErrOperationInFlight
	}
	s.inflight[id] = struct{}{}
	return nil
}

func (s *Service) end(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, id)
}

func (s *Service) observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordRemoteCall("payment_api", operation, outcome, time.Since(start))
}
