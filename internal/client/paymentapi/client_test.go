package paymentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/domain/payment"
	"github.com/relhe/billpilot/internal/testutil/fixtures"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:      srv.URL + "/payments",
		RateLimitRPS: 100,
	})

	return client, srv
}

func TestClient_List(t *testing.T) {
	records := fixtures.PaymentList(3)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		json.NewEncoder(w).Encode(records)
	}))

	got, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "pay-001", got[0].ID)
	assert.Equal(t, "Payer3", got[2].FirstName)
}

func TestClient_Get(t *testing.T) {
	record := fixtures.NewPaymentBuilder().WithID("66b1f0a2c9e77a0012345678").Build()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/66b1f0a2c9e77a0012345678", r.URL.Path)
		json.NewEncoder(w).Encode(record)
	}))

	got, err := client.Get(context.Background(), "66b1f0a2c9e77a0012345678")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.TotalDue, got.TotalDue)
}

func TestClient_Get_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail": "Payment not found"}`)
	}))

	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrPaymentNotFound)
}

func TestClient_Create(t *testing.T) {
	var received map[string]any

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"id": "66b1f0a2c9e77a0012345678"}`)
	}))

	record := fixtures.NewPaymentBuilder().Build()
	record.ID = ""

	id, err := client.Create(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "66b1f0a2c9e77a0012345678", id)

	// Identifier is assigned by the server, never sent
	assert.NotContains(t, received, "id")
	assert.Equal(t, record.FirstName, received["payee_first_name"])

	txID, ok := received["transaction_id"].(string)
	require.True(t, ok, "transaction_id must be sent on create")
	_, err = uuid.Parse(txID)
	assert.NoError(t, err)
}

func TestClient_Update(t *testing.T) {
	var received map[string]any

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/payments/abc123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"id": null}`)
	}))

	patch := payment.Patch{
		payment.FieldFirstName: "Byron",
		payment.FieldDueAmount: 250.0,
	}

	require.NoError(t, client.Update(context.Background(), "abc123", patch))
	assert.Equal(t, "Byron", received[payment.FieldFirstName])
	assert.Equal(t, 250.0, received[payment.FieldDueAmount])
}

func TestClient_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/payments/abc123", r.URL.Path)
			fmt.Fprint(w, `{"message": "Success"}`)
		}))

		assert.NoError(t, client.Delete(context.Background(), "abc123"))
	})

	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail": "Error"}`)
		}))

		assert.ErrorIs(t, client.Delete(context.Background(), "gone"), errors.ErrPaymentNotFound)
	})
}

func TestClient_UploadEvidence(t *testing.T) {
	var (
		gotFilename    string
		gotContentType string
		gotContent     []byte
	)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/upload/abc123", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		gotFilename = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotContent, err = io.ReadAll(file)
		require.NoError(t, err)

		fmt.Fprint(w, `{"message": "File uploaded, payee payment status is completed."}`)
	}))

	ev := payment.Evidence{
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 receipt"),
	}

	require.NoError(t, client.UploadEvidence(context.Background(), "abc123", ev))
	assert.Equal(t, "receipt.pdf", gotFilename)
	assert.Equal(t, "application/pdf", gotContentType)
	assert.Equal(t, ev.Content, gotContent)
}

func TestClient_UploadEvidence_RejectedTypeBeforeNetwork(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	ev := payment.Evidence{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Content:     []byte("plain text"),
	}

	err := client.UploadEvidence(context.Background(), "abc123", ev)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFileType)
	assert.Zero(t, calls, "disallowed type must be rejected before any request")
}

func TestClient_DownloadEvidence(t *testing.T) {
	content := []byte("%PDF-1.7 receipt body")

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/download/abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename=receipt.pdf`)
		w.Write(content)
	}))

	ev, err := client.DownloadEvidence(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "receipt.pdf", ev.Filename)
	assert.Equal(t, "application/pdf", ev.ContentType)
	assert.Equal(t, content, ev.Content)
}

func TestClient_DownloadEvidence_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail": "Error: File not found."}`)
	}))

	_, err := client.DownloadEvidence(context.Background(), "abc123")
	assert.ErrorIs(t, err, errors.ErrEvidenceNotFound)
}

func TestClient_ServerDetailSurfaced(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail": "Error: duplicate transaction_id"}`)
	}))

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: duplicate transaction_id")
	assert.True(t, errors.IsRetryable(err))
	assert.Equal(t, http.StatusInternalServerError, errors.GetStatusCode(err))
}
