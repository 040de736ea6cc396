package payments

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/relhe/billpilot/internal/client/lookup"
	"github.com/relhe/billpilot/internal/domain/payment"
)

// PaymentAPI mock for tests
type MockPaymentAPI struct {
	mock.Mock
}

func (m *MockPaymentAPI) List(ctx context.Context) ([]payment.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

func (m *MockPaymentAPI) Get(ctx context.Context, id string) (payment.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payment.Payment), args.Error(1)
}

func (m *MockPaymentAPI) Create(ctx context.Context, p payment.Payment) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentAPI) Update(ctx context.Context, id string, patch payment.Patch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockPaymentAPI) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentAPI) UploadEvidence(ctx context.Context, id string, ev payment.Evidence) error {
	args := m.Called(ctx, id, ev)
	return args.Error(0)
}

func (m *MockPaymentAPI) DownloadEvidence(ctx context.Context, id string) (payment.Evidence, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payment.Evidence), args.Error(1)
}

// LocationLookup mock for tests
type MockLocationLookup struct {
	mock.Mock
}

func (m *MockLocationLookup) Countries(ctx context.Context) ([]lookup.Country, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lookup.Country), args.Error(1)
}

func (m *MockLocationLookup) Currencies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
