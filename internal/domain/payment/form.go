package payment

import (
	apperrors "github.com/relhe/billpilot/internal/domain/errors"
)

// EditForm carries the editable subset of a payment record. Its field set is
// what the diff engine overlays onto the stored original; everything not in
// the form is carried through a patch unchanged.
type EditForm struct {
	FirstName    string  `json:"payee_first_name" validate:"required"`
	LastName     string  `json:"payee_last_name" validate:"required"`
	Status       Status  `json:"payee_payment_status" validate:"required,oneof=pending due_now completed overdue"`
	AddressLine1 string  `json:"payee_address_line_1" validate:"required"`
	AddressLine2 string  `json:"payee_address_line_2"`
	City         string  `json:"payee_city" validate:"required"`
	Country      string  `json:"payee_country" validate:"required,iso3166_1_alpha2"`
	Currency     string  `json:"currency" validate:"required,iso4217"`
	DueAmount    float64 `json:"due_amount" validate:"gte=0"`
}

// FormFromPayment prefills an edit form from a stored record.
func FormFromPayment(p Payment) EditForm {
	return EditForm{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Status:       p.Status,
		AddressLine1: p.AddressLine1,
		AddressLine2: p.AddressLine2,
		City:         p.City,
		Country:      p.Country,
		Currency:     p.Currency,
		DueAmount:    p.DueAmount,
	}
}

// Validate checks the form's field rules.
func (f EditForm) Validate() error {
	if err := validate.Struct(f); err != nil {
		return apperrors.NewValidationError("INVALID_FORM",
			"please fill all required fields correctly").WithCause(err)
	}
	return nil
}

// Fields returns the form as a wire-named field map.
func (f EditForm) Fields() map[string]any {
	return map[string]any{
		FieldFirstName:    f.FirstName,
		FieldLastName:     f.LastName,
		FieldStatus:       f.Status,
		FieldAddressLine1: f.AddressLine1,
		FieldAddressLine2: f.AddressLine2,
		FieldCity:         f.City,
		FieldCountry:      f.Country,
		FieldCurrency:     f.Currency,
		FieldDueAmount:    f.DueAmount,
	}
}
