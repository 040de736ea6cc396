// Package importer bulk-loads payment records from a CSV export into the
// remote service. Bad rows are logged and skipped; the import continues.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"time"

	apperrors "github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/domain/payment"
	"github.com/relhe/billpilot/internal/domain/values"
)

// Creator is the slice of the payment service the importer needs
type Creator interface {
	Create(ctx context.Context, p payment.Payment) (string, error)
}

// Summary reports the outcome of one import run
type Summary struct {
	Imported int
	Skipped  int
}

// Importer reads payment rows from CSV and posts them one by one
type Importer struct {
	creator Creator
	logger  *slog.Logger
}

// New creates an importer
func New(creator Creator, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{creator: creator, logger: logger}
}

// Run parses the CSV stream and creates a payment per valid row. The first
// row must be a header naming the wire fields. Rows that fail to parse or
// validate are skipped, never aborting the run; a remote failure on an
// individual row is likewise skipped.
func (i *Importer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Summary{}, err
	}

	index := make(map[string]int, len(header))
	for pos, name := range header {
		index[name] = pos
	}

	var summary Summary
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			i.logger.WarnContext(ctx, "skipping malformed csv row", "line", line, "error", err)
			summary.Skipped++
			continue
		}

		p, err := rowToPayment(row, index)
		if err != nil {
			i.logger.WarnContext(ctx, "skipping invalid row", "line", line, "error", err)
			summary.Skipped++
			continue
		}

		if err := p.Validate(); err != nil {
			i.logger.WarnContext(ctx, "skipping invalid row", "line", line, "error", err)
			summary.Skipped++
			continue
		}

		id, err := i.creator.Create(ctx, p)
		if err != nil {
			i.logger.WarnContext(ctx, "create failed, skipping row", "line", line, "error", err)
			summary.Skipped++
			continue
		}

		i.logger.InfoContext(ctx, "payment imported", "line", line, "id", id)
		summary.Imported++
	}

	return summary, nil
}

func rowToPayment(row []string, index map[string]int) (payment.Payment, error) {
	field := func(name string) string {
		pos, ok := index[name]
		if !ok || pos >= len(row) {
			return ""
		}
		return row[pos]
	}

	// Added date arrives as unix seconds in the export
	seconds, err := strconv.ParseInt(field(payment.FieldAddedDateUTC), 10, 64)
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing added date")
	}

	phone, err := values.NewPhoneNumber(field(payment.FieldPhoneNumber))
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing phone number")
	}

	email, err := values.NewEmail(field(payment.FieldEmail))
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing email")
	}

	due, err := strconv.ParseFloat(field(payment.FieldDueAmount), 64)
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing due amount")
	}
	discount, err := parseOptionalFloat(field(payment.FieldDiscountPercent))
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing discount percent")
	}
	tax, err := parseOptionalFloat(field(payment.FieldTaxPercent))
	if err != nil {
		return payment.Payment{}, apperrors.Wrap(err, "parsing tax percent")
	}

	p := payment.Payment{
		FirstName:       field(payment.FieldFirstName),
		LastName:        field(payment.FieldLastName),
		Status:          payment.Status(field(payment.FieldStatus)),
		AddedDateUTC:    time.Unix(seconds, 0).UTC(),
		DueDate:         field(payment.FieldDueDate),
		AddressLine1:    field(payment.FieldAddressLine1),
		AddressLine2:    field(payment.FieldAddressLine2),
		City:            field(payment.FieldCity),
		Country:         field(payment.FieldCountry),
		ProvinceOrState: field(payment.FieldProvinceOrState),
		PostalCode:      field(payment.FieldPostalCode),
		PhoneNumber:     phone.E164(),
		Email:           email.String(),
		Currency:        field(payment.FieldCurrency),
		DiscountPercent: discount,
		TaxPercent:      tax,
		DueAmount:       due,
	}
	p.RecalculateTotalDue()

	return p, nil
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
