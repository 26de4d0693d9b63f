package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"temple-vouchers/internal/core"
	"temple-vouchers/internal/logging"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is wrapped by every non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status from temple backend")

// StatusError carries the backend's status code and message.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Token     string
	Timeout   time.Duration
	CacheTTL  time.Duration
	RPS       float64
	Transport http.RoundTripper
}

// Client talks to the temple REST backend. Reference lists are cached for
// CacheTTL; entries, balances and codes are always fetched live.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	refs       *cache.Cache
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		limiter: rate.NewLimiter(limit, 5),
		refs:    cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Funds(ctx context.Context) ([]core.Fund, error) {
	const key = "funds"
	if v, ok := c.refs.Get(key); ok {
		return v.([]core.Fund), nil
	}
	var funds []core.Fund
	if err := c.do(ctx, "Funds", http.MethodGet, "/accounts/funds", nil, &funds); err != nil {
		return nil, err
	}
	c.refs.SetDefault(key, funds)
	return funds, nil
}

// Ledgers returns one filtered reference list of ledger accounts.
func (c *Client) Ledgers(ctx context.Context, filter core.LedgerFilter) ([]core.LedgerAccount, error) {
	key := "ledgers:" + string(filter)
	if v, ok := c.refs.Get(key); ok {
		return v.([]core.LedgerAccount), nil
	}
	var ledgers []core.LedgerAccount
	path := "/accounts/ledgers/" + url.PathEscape(string(filter))
	if err := c.do(ctx, "Ledgers", http.MethodGet, path, nil, &ledgers); err != nil {
		return nil, err
	}
	c.refs.SetDefault(key, ledgers)
	return ledgers, nil
}

func (c *Client) Entry(ctx context.Context, id int64) (*core.Entry, error) {
	var e core.Entry
	path := "/accounts/entries/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, "Entry", http.MethodGet, path, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// InventoryBalance fetches the running stock balance of an inventory ledger.
func (c *Client) InventoryBalance(ctx context.Context, ledgerID int64) (core.StockBalance, error) {
	var bal core.StockBalance
	path := "/accounts/ledgers/" + strconv.FormatInt(ledgerID, 10) + "/inventory-balance"
	if err := c.do(ctx, "InventoryBalance", http.MethodGet, path, nil, &bal); err != nil {
		return core.StockBalance{}, err
	}
	return bal, nil
}

type entryCodeRequest struct {
	Prefix      string         `json:"prefix"`
	EntryTypeID core.EntryType `json:"entrytype_id"`
	Date        string         `json:"date"`
}

func (c *Client) GenerateEntryCode(ctx context.Context, prefix string, typeID core.EntryType, date string) (string, error) {
	var resp struct {
		EntryCode string `json:"entry_code"`
	}
	req := entryCodeRequest{Prefix: prefix, EntryTypeID: typeID, Date: date}
	if err := c.do(ctx, "GenerateEntryCode", http.MethodPost, "/accounts/entries/generate-code", req, &resp); err != nil {
		return "", err
	}
	return resp.EntryCode, nil
}

// Submitted is the backend's acknowledgement of a posted entry.
type Submitted struct {
	EntryID   int64  `json:"id"`
	EntryCode string `json:"entry_code"`
}

// SubmitEntry posts a voucher body to its entry-type endpoint. It is never retried.
func (c *Client) SubmitEntry(ctx context.Context, path string, payload any) (*Submitted, error) {
	var out Submitted
	if err := c.do(ctx, "SubmitEntry", http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	log := logging.FromContext(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send: %w", op, err)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{
		"op":          op,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("temple backend call")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw[:min(len(raw), 512)]))
		}
		return &StatusError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode: %w", op, decodeErr)
	}
	if !env.Success {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}
