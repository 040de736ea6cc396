package paymentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/domain/payment"
)

// Config contains configuration for the payment service client
type Config struct {
	// BaseURL is the payments collection endpoint, e.g. http://host:8000/payments
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
	RateLimitRPS int           `json:"rate_limit_rps"`
}

// Client talks to the remote payment service. All mutating state lives on
// the server; the client only shapes requests and surfaces server errors.
type Client struct {
	config      Config
	client      *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a payment service client with sane defaults
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000/payments"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimitRPS == 0 {
		config.RateLimitRPS = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:      config,
		client:      httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitRPS*2),
	}
}

// List fetches every payment record held by the remote service
func (c *Client) List(ctx context.Context) ([]payment.Payment, error) {
	resp, err := c.do(ctx, http.MethodGet, c.config.BaseURL, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.serverError(resp)
	}

	var payments []payment.Payment
	if err := json.NewDecoder(resp.Body).Decode(&payments); err != nil {
		return nil, errors.NewInternalError("decoding payment list").WithCause(err)
	}

	return payments, nil
}

// Get fetches a single payment by its identifier
func (c *Client) Get(ctx context.Context, id string) (payment.Payment, error) {
	resp, err := c.do(ctx, http.MethodGet, c.config.BaseURL+"/"+id, "", nil)
	if err != nil {
		return payment.Payment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return payment.Payment{}, errors.ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return payment.Payment{}, c.serverError(resp)
	}

	var p payment.Payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return payment.Payment{}, errors.NewInternalError("decoding payment").WithCause(err)
	}

	return p, nil
}

type createRequest struct {
	payment.Payment
	TransactionID string `json:"transaction_id"`
}

type idResponse struct {
	ID string `json:"id"`
}

// Create persists a new payment and returns the identifier the service
// assigned. A transaction id is generated client side on every create.
func (c *Client) Create(ctx context.Context, p payment.Payment) (string, error) {
	body, err := json.Marshal(createRequest{
		Payment:       p,
		TransactionID: uuid.NewString(),
	})
	if err != nil {
		return "", errors.NewInternalError("encoding payment").WithCause(err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.config.BaseURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.serverError(resp)
	}

	var created idResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errors.NewInternalError("decoding create response").WithCause(err)
	}

	return created.ID, nil
}

// Update sends a field patch for an existing payment. The identifier
// addresses the record in the URL and is never part of the payload.
func (c *Client) Update(ctx context.Context, id string, patch payment.Patch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return errors.NewInternalError("encoding patch").WithCause(err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.config.BaseURL+"/"+id, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.serverError(resp)
	}

	return nil
}

// Delete removes a payment and its evidence from the remote service
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.config.BaseURL+"/"+id, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.serverError(resp)
	}

	return nil
}

// UploadEvidence attaches an evidence file to a payment as a multipart
// upload. The server flips the record to completed on success.
func (c *Client) UploadEvidence(ctx context.Context, id string, ev payment.Evidence) error {
	if !payment.AllowedEvidenceType(ev) {
		return errors.ErrUnsupportedFileType
	}
	contentType := ev.ResolvedContentType()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, ev.Filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return errors.NewInternalError("building multipart body").WithCause(err)
	}
	if _, err := part.Write(ev.Content); err != nil {
		return errors.NewInternalError("building multipart body").WithCause(err)
	}
	if err := writer.Close(); err != nil {
		return errors.NewInternalError("building multipart body").WithCause(err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.config.BaseURL+"/upload/"+id, writer.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.serverError(resp)
	}

	return nil
}

// DownloadEvidence streams back the evidence file attached to a payment
func (c *Client) DownloadEvidence(ctx context.Context, id string) (payment.Evidence, error) {
	resp, err := c.do(ctx, http.MethodGet, c.config.BaseURL+"/download/"+id, "", nil)
	if err != nil {
		return payment.Evidence{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return payment.Evidence{}, errors.ErrEvidenceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return payment.Evidence{}, c.serverError(resp)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return payment.Evidence{}, errors.NewInternalError("reading evidence body").WithCause(err)
	}

	ev := payment.Evidence{
		Content:     content,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		ev.Filename = params["filename"]
	}

	return ev, nil
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.NewInternalError("rate limiter wait interrupted").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.NewInternalError("building request").WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewExternalError("payment_api", "request failed").WithCause(err)
	}

	return resp, nil
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// serverError turns a non-2xx response into an external AppError, carrying
// the server's detail message when one is present
func (c *Client) serverError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := fmt.Sprintf("payment service returned HTTP %d", resp.StatusCode)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		message = er.Detail
	}

	appErr := errors.NewExternalError("payment_api", message)
	appErr.StatusCode = resp.StatusCode
	appErr.Retryable = resp.StatusCode >= 500
	return appErr
}
