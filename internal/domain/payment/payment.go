package payment

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/relhe/billpilot/internal/domain/errors"
)

// Status is the payment lifecycle state. The remote service treats it as a
// validated string domain rather than an enforced type, so we do the same.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDueNow    Status = "due_now"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// Valid reports whether s is one of the known payment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDueNow, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Wire field names, shared by JSON tags, diff patches and the CSV importer.
const (
	FieldID              = "id"
	FieldFirstName       = "payee_first_name"
	FieldLastName        = "payee_last_name"
	FieldStatus          = "payee_payment_status"
	FieldAddedDateUTC    = "payee_added_date_utc"
	FieldDueDate         = "payee_due_date"
	FieldAddressLine1    = "payee_address_line_1"
	FieldAddressLine2    = "payee_address_line_2"
	FieldCity            = "payee_city"
	FieldCountry         = "payee_country"
	FieldProvinceOrState = "payee_province_or_state"
	FieldPostalCode      = "payee_postal_code"
	FieldPhoneNumber     = "payee_phone_number"
	FieldEmail           = "payee_email"
	FieldCurrency        = "currency"
	FieldDiscountPercent = "discount_percent"
	FieldTaxPercent      = "tax_percent"
	FieldDueAmount       = "due_amount"
	FieldTotalDue        = "total_due"
)

// Payment is a single payment record as held by the remote service.
// The identifier is assigned remotely and is absent until first persisted.
type Payment struct {
	ID              string    `json:"id,omitempty"`
	FirstName       string    `json:"payee_first_name" validate:"required"`
	LastName        string    `json:"payee_last_name" validate:"required"`
	Status          Status    `json:"payee_payment_status" validate:"required,oneof=pending due_now completed overdue"`
	AddedDateUTC    time.Time `json:"payee_added_date_utc"`
	DueDate         string    `json:"payee_due_date" validate:"required,iso_date"`
	AddressLine1    string    `json:"payee_address_line_1" validate:"required"`
	AddressLine2    string    `json:"payee_address_line_2,omitempty"`
	City            string    `json:"payee_city" validate:"required"`
	Country         string    `json:"payee_country" validate:"required,iso3166_1_alpha2"`
	ProvinceOrState string    `json:"payee_province_or_state,omitempty"`
	PostalCode      string    `json:"payee_postal_code" validate:"required"`
	PhoneNumber     string    `json:"payee_phone_number" validate:"required,e164"`
	Email           string    `json:"payee_email" validate:"required,email"`
	Currency        string    `json:"currency" validate:"required,iso4217"`
	DiscountPercent float64   `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64   `json:"tax_percent" validate:"gte=0,lte=100"`
	DueAmount       float64   `json:"due_amount" validate:"gte=0"`
	TotalDue        float64   `json:"total_due"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// ISO calendar date, e.g. 2026-03-31
	_ = v.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the record's field rules. Percent ranges, date format and
// code domains are enforced here, before any network call is attempted.
func (p Payment) Validate() error {
	if err := validate.Struct(p); err != nil {
		return apperrors.NewValidationError("INVALID_PAYMENT",
			"payment failed validation").WithCause(err)
	}
	return nil
}

// ComputeTotalDue derives the total due from the due amount and the discount
// and tax percentages:
//
//	total = due - due*discount/100 + due*tax/100
//
// rounded to exactly 2 decimal places, half away from zero. Inputs outside
// their documented ranges are accepted as given; range enforcement is a
// validation concern.
func ComputeTotalDue(dueAmount, discountPercent, taxPercent float64) float64 {
	due := decimal.NewFromFloat(dueAmount)
	hundred := decimal.NewFromInt(100)

	discount := due.Mul(decimal.NewFromFloat(discountPercent)).Div(hundred)
	tax := due.Mul(decimal.NewFromFloat(taxPercent)).Div(hundred)

	total, _ := due.Sub(discount).Add(tax).Round(2).Float64()
	return total
}

// RecalculateTotalDue recomputes the derived total from the current inputs.
func (p *Payment) RecalculateTotalDue() {
	p.TotalDue = ComputeTotalDue(p.DueAmount, p.DiscountPercent, p.TaxPercent)
}

// SetDueAmount updates the due amount and recomputes the total due.
func (p *Payment) SetDueAmount(amount float64) {
	p.DueAmount = amount
	p.RecalculateTotalDue()
}

// SetDiscountPercent updates the discount percentage and recomputes the total due.
func (p *Payment) SetDiscountPercent(percent float64) {
	p.DiscountPercent = percent
	p.RecalculateTotalDue()
}

// SetTaxPercent updates the tax percentage and recomputes the total due.
func (p *Payment) SetTaxPercent(percent float64) {
	p.TaxPercent = percent
	p.RecalculateTotalDue()
}

// Fields returns the record as a wire-named field map, identifier included.
func (p Payment) Fields() map[string]any {
	return map[string]any{
		FieldID:              p.ID,
		FieldFirstName:       p.FirstName,
		FieldLastName:        p.LastName,
		FieldStatus:          p.Status,
		FieldAddedDateUTC:    p.AddedDateUTC,
		FieldDueDate:         p.DueDate,
		FieldAddressLine1:    p.AddressLine1,
		FieldAddressLine2:    p.AddressLine2,
		FieldCity:            p.City,
		FieldCountry:         p.Country,
		FieldProvinceOrState: p.ProvinceOrState,
		FieldPostalCode:      p.PostalCode,
		FieldPhoneNumber:     p.PhoneNumber,
		FieldEmail:           p.Email,
		FieldCurrency:        p.Currency,
		FieldDiscountPercent: p.DiscountPercent,
		FieldTaxPercent:      p.TaxPercent,
		FieldDueAmount:       p.DueAmount,
		FieldTotalDue:        p.TotalDue,
	}
}

// Evidence is an uploaded proof-of-payment artifact.
type Evidence struct {
	Filename    string
	ContentType string
	Content     []byte
}

var allowedEvidenceTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// ResolvedContentType returns the declared content type, sniffing it from the
// payload when none was declared.
func (e Evidence) ResolvedContentType() string {
	if e.ContentType != "" {
		return e.ContentType
	}
	return http.DetectContentType(e.Content)
}

// AllowedEvidenceType reports whether the artifact is of a permitted type
// (PDF, PNG or JPEG).
func AllowedEvidenceType(e Evidence) bool {
	return allowedEvidenceTypes[e.ResolvedContentType()]
}
