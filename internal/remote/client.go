package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/theirongolddev/tripburn/internal/model"
)

const (
	restPath           = "/rest/v1/"
	defaultTimeout     = 15 * time.Second
	defaultRatePerSec  = 5
	maxBodySize        = 4 << 20 // 4 MB
	destinationsTable  = "destinations"
	expensesTable      = "destination_expenses"
	sharesTable        = "travel_shares"
	destinationsSelect = "*,destination_expenses(*)"
)

// Options configures a Client.
type Options struct {
	URL               string
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client is a PostgREST client for the hosted backend.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient validates opts and returns a client.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		return nil, errors.New("remote: url is required")
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid url %q", raw)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:    base,
		apiKey:  strings.TrimSpace(opts.APIKey),
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		timeout: timeout,
	}, nil
}

// ListDestinations returns every destination owned by ownerID, oldest first, with expenses.
func (c *Client) ListDestinations(ctx context.Context, ownerID string) ([]model.RemoteDestination, error) {
	q := url.Values{}
	q.Set("select", destinationsSelect)
	q.Set("owner_id", "eq."+ownerID)
	q.Set("order", "created_at.asc")

	body, err := c.do(ctx, http.MethodGet, destinationsTable, q, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeDestinations(body, "destinations")
}

// decodeDestinations decodes a destinations array row by row. A row that does not
// decode is returned with only its id (when readable) and no location, which
// Reconcile reports as malformed instead of failing the whole list.
func decodeDestinations(body []byte, what string) ([]model.RemoteDestination, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("remote: parsing %s: %w", what, err)
	}
	out := make([]model.RemoteDestination, 0, len(rows))
	for _, row := range rows {
		var d model.RemoteDestination
		if err := json.Unmarshal(row, &d); err != nil {
			var ident struct {
				ID any `json:"id"`
			}
			_ = json.Unmarshal(row, &ident)
			d = model.RemoteDestination{}
			if ident.ID != nil {
				d.ID = fmt.Sprint(ident.ID)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// GetDestination returns one destination with its expenses.
func (c *Client) GetDestination(ctx context.Context, id string) (model.RemoteDestination, error) {
	q := url.Values{}
	q.Set("select", destinationsSelect)
	q.Set("id", "eq."+id)

	body, err := c.do(ctx, http.MethodGet, destinationsTable, q, nil, "")
	if err != nil {
		return model.RemoteDestination{}, err
	}
	out, err := decodeDestinations(body, "destination")
	if err != nil {
		return model.RemoteDestination{}, err
	}
	if len(out) == 0 {
		return model.RemoteDestination{}, ErrNotFound
	}
	return out[0], nil
}

// InsertDestination creates a destination record and returns it with its id.
func (c *Client) InsertDestination(ctx context.Context, d model.RemoteDestination) (model.RemoteDestination, error) {
	d.ID = ""
	d.Expenses = nil
	body, err := c.do(ctx, http.MethodPost, destinationsTable, nil, d, "return=representation")
	if err != nil {
		return model.RemoteDestination{}, err
	}
	var out []model.RemoteDestination
	if err := json.Unmarshal(body, &out); err != nil {
		return model.RemoteDestination{}, fmt.Errorf("remote: parsing inserted destination: %w", err)
	}
	if len(out) == 0 || out[0].ID == "" {
		return model.RemoteDestination{}, errors.New("remote: insert returned no destination")
	}
	return out[0], nil
}

// UpdateDestination patches an existing record. ErrNotFound if no row matched.
func (c *Client) UpdateDestination(ctx context.Context, id string, patch DestinationPatch) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	body, err := c.do(ctx, http.MethodPatch, destinationsTable, q, patch, "return=representation")
	if err != nil {
		return err
	}
	var out []json.RawMessage
	if err := json.Unmarshal(body, &out); err == nil && len(out) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDestination removes a destination record.
func (c *Client) DeleteDestination(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, destinationsTable, q, nil, "")
	return err
}

// DeleteExpenses removes every expense row of a destination.
func (c *Client) DeleteExpenses(ctx context.Context, destinationID string) error {
	q := url.Values{}
	q.Set("destination_id", "eq."+destinationID)
	_, err := c.do(ctx, http.MethodDelete, expensesTable, q, nil, "")
	return err
}

// InsertExpenses bulk-inserts rows and returns them, with ids, in the same order.
func (c *Client) InsertExpenses(ctx context.Context, rows []model.RemoteExpense) ([]model.RemoteExpense, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	payload := make([]model.RemoteExpense, len(rows))
	for i, r := range rows {
		r.ID = ""
		payload[i] = r
	}
	body, err := c.do(ctx, http.MethodPost, expensesTable, nil, payload, "return=representation")
	if err != nil {
		return nil, err
	}
	var out []model.RemoteExpense
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("remote: parsing inserted expenses: %w", err)
	}
	return out, nil
}

// UpsertShare writes the snapshot for a share code, replacing any previous one.
func (c *Client) UpsertShare(ctx context.Context, share model.Share) error {
	q := url.Values{}
	q.Set("on_conflict", "share_code")
	_, err := c.do(ctx, http.MethodPost, sharesTable, q, share, "resolution=merge-duplicates,return=minimal")
	return err
}

// FetchShare returns the snapshot stored under code.
func (c *Client) FetchShare(ctx context.Context, code string) (model.Share, error) {
	q := url.Values{}
	q.Set("select", "share_code,payload,updated_at")
	q.Set("share_code", "eq."+code)

	body, err := c.do(ctx, http.MethodGet, sharesTable, q, nil, "")
	if err != nil {
		return model.Share{}, err
	}
	var out []model.Share
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Share{}, fmt.Errorf("remote: parsing share: %w", err)
	}
	if len(out) == 0 {
		return model.Share{}, ErrNotFound
	}
	return out[0], nil
}

// do performs one REST call and returns the response body.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, payload any, prefer string) ([]byte, error) {
	op := strings.ToLower(method) + " " + table
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Unavailable(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.base
	u.Path += restPath + table
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("remote: encoding %s: %w", table, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("remote: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/tripburn/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Unavailable(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusNotFound:
		return nil, ErrNotFound
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, Unavailable(op, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode >= 500 {
		return nil, Unavailable(op, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("remote: %s: unexpected status %d: %s", op, resp.StatusCode, snippet(data))
	}
	return data, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
