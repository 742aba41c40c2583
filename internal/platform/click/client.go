package click

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/metrics"
)

const (
	maxAttemptsPerEndpoint = 3
	maxResponseBytes       = 1 << 20
)

// GatewayError is a logical error reported by a well-formed gateway
// response. It is authoritative: the client never masks it by falling
// through to another endpoint.
type GatewayError struct {
	Code int
	Note string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("click: gateway error %d: %s", e.Code, e.Note)
}

// ErrNotAPIResponse marks HTML payloads, redirects and other non-JSON
// bodies. Operators should read this as "wrong endpoint", not "gateway
// said no".
var ErrNotAPIResponse = errors.New("click: response is not a gateway API response")

// ErrBadCredentials marks a 401/403 from the gateway. The same credentials
// go to every candidate, so the fallback chain stops immediately.
var ErrBadCredentials = errors.New("click: gateway rejected credentials")

// Attempt records one outbound try for diagnostics.
type Attempt struct {
	URL    string
	Status int
	Err    string
}

// AttemptsError is returned when every candidate endpoint has been
// exhausted. It carries enough context to tell a misconfigured merchant
// from a transient network problem.
type AttemptsError struct {
	Attempts []Attempt
	Last     error
}

func (e *AttemptsError) Error() string {
	var b strings.Builder
	b.WriteString("click: all gateway endpoints failed:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, " [%s status=%d err=%s]", a.URL, a.Status, a.Err)
	}
	return b.String()
}

func (e *AttemptsError) Unwrap() error { return e.Last }

// gatewayEnvelope is the error framing every real gateway response carries.
type gatewayEnvelope struct {
	ErrorCode *int   `json:"error_code"`
	ErrorNote string `json:"error_note"`
}

// attempt outcome classes
type outcome int

const (
	outcomeOK outcome = iota
	outcomeRetry
	outcomeNextEndpoint
	outcomeAbort
)

// Client issues authenticated calls to the Click merchant API over an
// ordered list of candidate base URLs with bounded retry and fallback.
type Client struct {
	httpClient     *http.Client
	endpoints      []string
	serviceID      int64
	merchantUserID int64
	secret         string
	timeout        time.Duration
	backoffBase    time.Duration
	sleep          func(time.Duration)
	log            *zap.SugaredLogger
	metrics        *metrics.Metrics
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger, m *metrics.Metrics) *Client {
	timeout := time.Duration(cfg.Click.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			// Redirects off the API host are the error-portal failure mode.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		endpoints:      cfg.Click.Endpoints,
		serviceID:      cfg.Click.ServiceID,
		merchantUserID: cfg.Click.MerchantUserID,
		secret:         cfg.Click.SecretKey,
		timeout:        timeout,
		backoffBase:    500 * time.Millisecond,
		sleep:          time.Sleep,
		log:            log,
		metrics:        m,
	}
}

// request walks the candidate endpoints in order. Within one candidate it
// retries retriable transport conditions with exponential backoff; a
// structured gateway response (any error_code, zero or not) stops the walk.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("click: marshal request: %w", err)
		}
	}

	var attempts []Attempt
	var lastErr error

	for _, base := range c.endpoints {
		url := strings.TrimRight(base, "/") + path

		err, class := c.tryEndpoint(ctx, method, url, payload, out, &attempts)
		switch class {
		case outcomeOK:
			return nil
		case outcomeAbort:
			// a semantically meaningful answer (gateway error or
			// credential rejection) must not be masked by fallback
			return err
		default:
			lastErr = err
		}
	}

	return &AttemptsError{Attempts: attempts, Last: lastErr}
}

// tryEndpoint issues up to maxAttemptsPerEndpoint requests against one
// candidate URL, backing off exponentially between retriable failures.
func (c *Client) tryEndpoint(ctx context.Context, method, url string, payload []byte, out any, attempts *[]Attempt) (error, outcome) {
	var lastErr error

	for try := 0; try < maxAttemptsPerEndpoint; try++ {
		if try > 0 {
			c.sleep(c.backoffBase << (try - 1))
		}
		if err := ctx.Err(); err != nil {
			return err, outcomeAbort
		}

		status, err, class := c.do(ctx, method, url, payload, out)
		*attempts = append(*attempts, Attempt{URL: url, Status: status, Err: errString(err)})
		c.countAttempt(url, status, err, class)

		if class != outcomeRetry {
			return err, class
		}
		lastErr = err
		c.log.Warnw("click_retry", "url", url, "try", try+1, "status", status, "err", errString(err))
	}

	return lastErr, outcomeNextEndpoint
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) (int, error, outcome) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return 0, err, outcomeNextEndpoint
	}

	// The header is time-boxed; generate it fresh for every attempt.
	auth, err := AuthHeader(c.merchantUserID, c.secret, time.Now())
	if err != nil {
		return 0, err, outcomeAbort
	}
	req.Header.Set("Auth", auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// connection refused, DNS failure, timeout
		return 0, err, outcomeRetry
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, err, outcomeRetry
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return resp.StatusCode, fmt.Errorf("%w: redirect to %q", ErrNotAPIResponse, resp.Header.Get("Location")), outcomeNextEndpoint
	}
	if looksLikeHTML(resp.Header.Get("Content-Type"), raw) {
		return resp.StatusCode, fmt.Errorf("%w: got HTML from %s", ErrNotAPIResponse, url), outcomeNextEndpoint
	}

	var env gatewayEnvelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && env.ErrorCode != nil {
		// a structured gateway answer is authoritative, stop falling back
		if *env.ErrorCode != 0 {
			return resp.StatusCode, &GatewayError{Code: *env.ErrorCode, Note: env.ErrorNote}, outcomeAbort
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, fmt.Errorf("click: decode response: %w", err), outcomeAbort
			}
		}
		return resp.StatusCode, nil, outcomeOK
	}

	// No interpretable gateway body; classify by HTTP status.
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%w: HTTP %d", ErrBadCredentials, resp.StatusCode), outcomeAbort
	case resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout:
		return resp.StatusCode, fmt.Errorf("click: HTTP %d from %s", resp.StatusCode, url), outcomeRetry
	case resp.StatusCode >= 400:
		return resp.StatusCode, fmt.Errorf("click: HTTP %d from %s", resp.StatusCode, url), outcomeNextEndpoint
	default:
		return resp.StatusCode, fmt.Errorf("%w: uninterpretable body from %s", ErrNotAPIResponse, url), outcomeNextEndpoint
	}
}

func (c *Client) countAttempt(url string, status int, err error, class outcome) {
	if c.metrics == nil {
		return
	}
	label := "ok"
	switch {
	case class == outcomeOK:
	case errors.Is(err, ErrNotAPIResponse):
		label = "not_api"
	case errors.Is(err, ErrBadCredentials):
		label = "bad_credentials"
	case isGatewayError(err):
		label = "gateway_error"
	case status > 0:
		label = fmt.Sprintf("http_%d", status)
	default:
		label = "transport_error"
	}
	c.metrics.GatewayAttempts.WithLabelValues(url, label).Inc()
}

func isGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CreateInvoice asks the gateway to push an invoice to the payer's phone.
func (c *Client) CreateInvoice(ctx context.Context, amount float64, phone, merchantTransID string) (*CreateInvoiceResult, error) {
	req := &CreateInvoiceRequest{
		ServiceID:       c.serviceID,
		Amount:          amount,
		PhoneNumber:     phone,
		MerchantTransID: merchantTransID,
	}
	var res CreateInvoiceResult
	if err := c.request(ctx, http.MethodPost, "/invoice/create", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InvoiceStatus polls a previously created invoice:
// 0 pending, 1 paid, -1 cancelled.
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID int64) (*InvoiceStatusResult, error) {
	var res InvoiceStatusResult
	path := fmt.Sprintf("/invoice/status/%d/%d", c.serviceID, invoiceID)
	if err := c.request(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateCardToken starts stored-card issuance. The card number must be 16
// digits and the expiry 4 digits (MMYY); both are sanitized before sending.
func (c *Client) CreateCardToken(ctx context.Context, cardNumber, expireDate string) (*CreateCardTokenResult, error) {
	card := digitsOnly(cardNumber)
	if len(card) != 16 {
		return nil, fmt.Errorf("click: card number must be 16 digits, got %d", len(card))
	}
	expire := digitsOnly(expireDate)
	if len(expire) != 4 {
		return nil, fmt.Errorf("click: expire date must be 4 digits MMYY, got %d", len(expire))
	}

	req := &CreateCardTokenRequest{ServiceID: c.serviceID, CardNumber: card, ExpireDate: expire, Temporary: 0}
	var res CreateCardTokenResult
	if err := c.request(ctx, http.MethodPost, "/card_token/request", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyCardToken confirms a token with the SMS code sent to the cardholder.
func (c *Client) VerifyCardToken(ctx context.Context, token, smsCode string) (*VerifyCardTokenResult, error) {
	req := &VerifyCardTokenRequest{ServiceID: c.serviceID, CardToken: token, SmsCode: smsCode}
	var res VerifyCardTokenResult
	if err := c.request(ctx, http.MethodPost, "/card_token/verify", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PayWithCardToken charges a verified token.
func (c *Client) PayWithCardToken(ctx context.Context, token string, amount float64, merchantTransID string) (*PayWithCardTokenResult, error) {
	req := &PayWithCardTokenRequest{ServiceID: c.serviceID, CardToken: token, Amount: amount, MerchantTransID: merchantTransID}
	var res PayWithCardTokenResult
	if err := c.request(ctx, http.MethodPost, "/card_token/payment", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RemoveCardToken deletes a stored token from the gateway.
func (c *Client) RemoveCardToken(ctx context.Context, token string) error {
	path := fmt.Sprintf("/card_token/%d/%s", c.serviceID, token)
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
