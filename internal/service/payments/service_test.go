package payments

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relhe/billpilot/internal/client/lookup"
	"github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/domain/payment"
	"github.com/relhe/billpilot/internal/store"
	"github.com/relhe/billpilot/internal/testutil/fixtures"
)

func newTestService(api PaymentAPI, loc LocationLookup) *Service {
	return NewService(api, loc, store.New(store.DefaultPageSize), slog.Default())
}

func TestService_LoadAndPaging(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("List", mock.Anything).Return(fixtures.PaymentList(12), nil)

	svc := newTestService(api, new(MockLocationLookup))
	require.NoError(t, svc.Load(context.Background()))

	view := svc.Store().Page()
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Items, 10)

	svc.Store().ChangePage(2)
	view = svc.Store().Page()
	require.Len(t, view.Items, 2)
	assert.Equal(t, "pay-011", view.Items[0].ID)
	assert.Equal(t, "pay-012", view.Items[1].ID)

	// Out of range is a no-op
	svc.Store().ChangePage(3)
	assert.Equal(t, 2, svc.Store().Page().Page)

	api.AssertExpectations(t)
}

func TestService_Load_RemoteFailureLeavesStoreUntouched(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("List", mock.Anything).Return(fixtures.PaymentList(3), nil).Once()
	api.On("List", mock.Anything).Return(nil, errors.NewExternalError("payment_api", "boom")).Once()

	svc := newTestService(api, new(MockLocationLookup))
	ctx := context.Background()

	require.NoError(t, svc.Load(ctx))
	require.Equal(t, 3, svc.Store().Len())

	require.Error(t, svc.Load(ctx))
	assert.Equal(t, 3, svc.Store().Len(), "failed reload must keep last known good state")
}

func TestService_OpenForEdit(t *testing.T) {
	t.Run("prefills form from server copy", func(t *testing.T) {
		record := fixtures.NewPaymentBuilder().WithID("abc123").Build()

		api := new(MockPaymentAPI)
		api.On("Get", mock.Anything, "abc123").Return(record, nil)

		svc := newTestService(api, new(MockLocationLookup))
		form, original, err := svc.OpenForEdit(context.Background(), "abc123")

		require.NoError(t, err)
		assert.Equal(t, record, original)
		assert.Equal(t, payment.FormFromPayment(record), form)
	})

	t.Run("overdue records are locked", func(t *testing.T) {
		record := fixtures.NewPaymentBuilder().
			WithID("abc123").
			WithStatus(payment.StatusOverdue).
			Build()

		api := new(MockPaymentAPI)
		api.On("Get", mock.Anything, "abc123").Return(record, nil)

		svc := newTestService(api, new(MockLocationLookup))
		_, _, err := svc.OpenForEdit(context.Background(), "abc123")

		assert.ErrorIs(t, err, errors.ErrOverdueLocked)
	})

	t.Run("not found propagates", func(t *testing.T) {
		api := new(MockPaymentAPI)
		api.On("Get", mock.Anything, "missing").Return(payment.Payment{}, errors.ErrPaymentNotFound)

		svc := newTestService(api, new(MockLocationLookup))
		_, _, err := svc.OpenForEdit(context.Background(), "missing")

		assert.ErrorIs(t, err, errors.ErrPaymentNotFound)
	})
}

func TestService_Update_ValidationAbortsBeforeNetwork(t *testing.T) {
	api := new(MockPaymentAPI)
	svc := newTestService(api, new(MockLocationLookup))

	original := fixtures.NewPaymentBuilder().WithID("abc123").Build()
	form := payment.FormFromPayment(original)
	form.FirstName = ""

	err := svc.Update(context.Background(), "abc123", original, form, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	api.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_CompletedRequiresEvidence(t *testing.T) {
	api := new(MockPaymentAPI)
	svc := newTestService(api, new(MockLocationLookup))

	original := fixtures.NewPaymentBuilder().WithID("abc123").Build()
	form := payment.FormFromPayment(original)
	form.Status = payment.StatusCompleted

	err := svc.Update(context.Background(), "abc123", original, form, nil)
	assert.ErrorIs(t, err, errors.ErrEvidenceRequired)
	api.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "UploadEvidence", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_RejectsDisallowedEvidenceType(t *testing.T) {
	api := new(MockPaymentAPI)
	svc := newTestService(api, new(MockLocationLookup))

	original := fixtures.NewPaymentBuilder().WithID("abc123").Build()
	form := payment.FormFromPayment(original)
	form.Status = payment.StatusCompleted

	ev := &payment.Evidence{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Content:     []byte("free text"),
	}

	err := svc.Update(context.Background(), "abc123", original, form, ev)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFileType)
	api.AssertNotCalled(t, "UploadEvidence", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_SendsPatchAndReloads(t *testing.T) {
	original := fixtures.NewPaymentBuilder().
		WithID("abc123").
		WithAmounts(100, 10, 5).
		Build()

	form := payment.FormFromPayment(original)
	form.FirstName = "Byron"
	form.DueAmount = 250

	api := new(MockPaymentAPI)
	api.On("Update", mock.Anything, "abc123", mock.MatchedBy(func(patch payment.Patch) bool {
		if _, hasID := patch[payment.FieldID]; hasID {
			return false
		}
		return patch[payment.FieldFirstName] == "Byron" &&
			patch[payment.FieldDueAmount] == 250.0 &&
			patch[payment.FieldTotalDue] == payment.ComputeTotalDue(250, 10, 5)
	})).Return(nil)
	api.On("List", mock.Anything).Return(fixtures.PaymentList(1), nil)

	svc := newTestService(api, new(MockLocationLookup))
	require.NoError(t, svc.Update(context.Background(), "abc123", original, form, nil))

	assert.Equal(t, 1, svc.Store().Len(), "successful update reloads the working copy")
	api.AssertExpectations(t)
}

func TestService_Update_UploadsEvidenceBeforePatch(t *testing.T) {
	original := fixtures.NewPaymentBuilder().WithID("abc123").Build()
	form := payment.FormFromPayment(original)
	form.Status = payment.StatusCompleted

	ev := &payment.Evidence{
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7"),
	}

	var calls []string
	api := new(MockPaymentAPI)
	api.On("UploadEvidence", mock.Anything, "abc123", *ev).
		Run(func(mock.Arguments) { calls = append(calls, "upload") }).
		Return(nil)
	api.On("Update", mock.Anything, "abc123", mock.Anything).
		Run(func(mock.Arguments) { calls = append(calls, "update") }).
		Return(nil)
	api.On("List", mock.Anything).Return([]payment.Payment{}, nil)

	svc := newTestService(api, new(MockLocationLookup))
	require.NoError(t, svc.Update(context.Background(), "abc123", original, form, ev))

	assert.Equal(t, []string{"upload", "update"}, calls)
}

func TestService_Update_InFlightGuard(t *testing.T) {
	original := fixtures.NewPaymentBuilder().WithID("abc123").Build()
	form := payment.FormFromPayment(original)
	form.FirstName = "Byron"

	entered := make(chan struct{})
	release := make(chan struct{})

	api := new(MockPaymentAPI)
	api.On("Update", mock.Anything, "abc123", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil)
	api.On("List", mock.Anything).Return([]payment.Payment{}, nil)

	svc := newTestService(api, new(MockLocationLookup))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Update(context.Background(), "abc123", original, form, nil))
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first update never reached the remote call")
	}

	err := svc.Update(context.Background(), "abc123", original, form, nil)
	assert.ErrorIs(t, err, errors.ErrOperationInFlight)

	close(release)
	wg.Wait()
}

func TestService_Create(t *testing.T) {
	loc := new(MockLocationLookup)
	loc.On("Countries", mock.Anything).Return([]lookup.Country{
		{Name: "Canada", ISO2: "CA", Cities: []string{"Toronto"}},
	}, nil)

	record := fixtures.NewPaymentBuilder().Build()
	record.ID = ""
	record.Status = ""
	record.AddedDateUTC = time.Time{}
	record.Country = "Canada"
	record.DueAmount = 100
	record.DiscountPercent = 10
	record.TaxPercent = 5
	record.TotalDue = 0

	api := new(MockPaymentAPI)
	api.On("Create", mock.Anything, mock.MatchedBy(func(p payment.Payment) bool {
		return p.Country == "CA" &&
			p.Status == payment.StatusPending &&
			!p.AddedDateUTC.IsZero() &&
			p.TotalDue == 95.0
	})).Return("66b1f0a2c9e77a0012345678", nil)

	svc := newTestService(api, loc)
	id, err := svc.Create(context.Background(), record)

	require.NoError(t, err)
	assert.Equal(t, "66b1f0a2c9e77a0012345678", id)
	api.AssertExpectations(t)
}

func TestService_Create_UnknownCountry(t *testing.T) {
	loc := new(MockLocationLookup)
	loc.On("Countries", mock.Anything).Return([]lookup.Country{
		{Name: "Canada", ISO2: "CA"},
	}, nil)

	record := fixtures.NewPaymentBuilder().Build()
	record.ID = ""
	record.Country = "Atlantis"

	api := new(MockPaymentAPI)
	svc := newTestService(api, loc)

	_, err := svc.Create(context.Background(), record)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Atlantis", appErr.Details["country"])

	api.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Create_InvalidRecordAbortsBeforeNetwork(t *testing.T) {
	record := fixtures.NewPaymentBuilder().Build()
	record.ID = ""
	record.Email = "not-an-email"

	api := new(MockPaymentAPI)
	svc := newTestService(api, new(MockLocationLookup))

	_, err := svc.Create(context.Background(), record)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	api.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Delete(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("List", mock.Anything).Return(fixtures.PaymentList(3), nil)
	api.On("Delete", mock.Anything, "pay-002").Return(nil)

	svc := newTestService(api, new(MockLocationLookup))
	ctx := context.Background()

	require.NoError(t, svc.Load(ctx))
	require.NoError(t, svc.Delete(ctx, "pay-002"))

	assert.Equal(t, 2, svc.Store().Len())
	_, ok := svc.Store().Get("pay-002")
	assert.False(t, ok)
}

func TestService_Delete_RemoteFailureKeepsRecord(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("List", mock.Anything).Return(fixtures.PaymentList(3), nil)
	api.On("Delete", mock.Anything, "pay-002").Return(errors.NewExternalError("payment_api", "boom"))

	svc := newTestService(api, new(MockLocationLookup))
	ctx := context.Background()

	require.NoError(t, svc.Load(ctx))
	require.Error(t, svc.Delete(ctx, "pay-002"))

	assert.Equal(t, 3, svc.Store().Len(), "no optimistic removal on remote failure")
}

func TestService_DownloadEvidence(t *testing.T) {
	want := payment.Evidence{
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7"),
	}

	api := new(MockPaymentAPI)
	api.On("DownloadEvidence", mock.Anything, "abc123").Return(want, nil)

	svc := newTestService(api, new(MockLocationLookup))
	got, err := svc.DownloadEvidence(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_Currencies(t *testing.T) {
	loc := new(MockLocationLookup)
	loc.On("Currencies", mock.Anything).Return([]string{"CAD", "EUR", "USD"}, nil)

	svc := newTestService(new(MockPaymentAPI), loc)
	codes, err := svc.Currencies(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"CAD", "EUR", "USD"}, codes)
}

func TestService_Cities(t *testing.T) {
	loc := new(MockLocationLookup)
	loc.On("Countries", mock.Anything).Return([]lookup.Country{
		{Name: "Canada", ISO2: "CA", Cities: []string{"Toronto", "Montreal"}},
	}, nil)

	svc := newTestService(new(MockPaymentAPI), loc)
	cities, err := svc.Cities(context.Background(), "canada")

	require.NoError(t, err)
	assert.Equal(t, []string{"Toronto", "Montreal"}, cities)
}
