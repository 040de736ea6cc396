// Package fixtures provides builders for test payment records.
package fixtures

import (
	"fmt"
	"time"

	"github.com/relhe/billpilot/internal/domain/payment"
)

// PaymentBuilder builds test Payment records
type PaymentBuilder struct {
	p payment.Payment
}

// NewPaymentBuilder creates a new PaymentBuilder with valid defaults
func NewPaymentBuilder() *PaymentBuilder {
	p := payment.Payment{
		ID:              "64f1a2b3c4d5e6f7a8b9c0d1",
		FirstName:       "Grace",
		LastName:        "Hopper",
		Status:          payment.StatusPending,
		AddedDateUTC:    time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		DueDate:         "2026-03-31",
		AddressLine1:    "1 Harbor Street",
		AddressLine2:    "Apt 9",
		City:            "New York",
		Country:         "US",
		ProvinceOrState: "NY",
		PostalCode:      "10001",
		PhoneNumber:     "+12125550100",
		Email:           "grace@example.org",
		Currency:        "USD",
		DiscountPercent: 0,
		TaxPercent:      0,
		DueAmount:       120.50,
	}
	p.RecalculateTotalDue()
	return &PaymentBuilder{p: p}
}

// WithID sets the identifier
func (b *PaymentBuilder) WithID(id string) *PaymentBuilder {
	b.p.ID = id
	return b
}

// WithName sets the payer's first and last name
func (b *PaymentBuilder) WithName(first, last string) *PaymentBuilder {
	b.p.FirstName = first
	b.p.LastName = last
	return b
}

// WithStatus sets the payment status
func (b *PaymentBuilder) WithStatus(status payment.Status) *PaymentBuilder {
	b.p.Status = status
	return b
}

// WithAddress sets both address lines
func (b *PaymentBuilder) WithAddress(line1, line2 string) *PaymentBuilder {
	b.p.AddressLine1 = line1
	b.p.AddressLine2 = line2
	return b
}

// WithAmounts sets the monetary inputs and recomputes the total due
func (b *PaymentBuilder) WithAmounts(due, discountPercent, taxPercent float64) *PaymentBuilder {
	b.p.DueAmount = due
	b.p.DiscountPercent = discountPercent
	b.p.TaxPercent = taxPercent
	b.p.RecalculateTotalDue()
	return b
}

// Build returns the assembled record
func (b *PaymentBuilder) Build() payment.Payment {
	return b.p
}

// PaymentList returns n distinct records with sequential identifiers
// pay-001, pay-002, ... in that order.
func PaymentList(n int) []payment.Payment {
	list := make([]payment.Payment, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, NewPaymentBuilder().
			WithID(fmt.Sprintf("pay-%03d", i)).
			WithName(fmt.Sprintf("Payer%d", i), "Smith").
			Build())
	}
	return list
}
