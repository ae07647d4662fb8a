package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kaytu-io/crowdsh/pkg/internal/httpclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.airtable.com/v0"

	// Airtable allows 5 requests per second per base.
	requestsPerSecond = 5
)

var ErrNotFound = errors.New("record not found")

type Record struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// String returns the value of a field as text. Missing and null fields are
// returned as an empty string.
func (r Record) String(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Has reports whether the field is present and not null.
func (r Record) Has(name string) bool {
	v, ok := r.Fields[name]
	return ok && v != nil
}

// Clone returns a copy of the record whose field map can be modified
// independently.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type updateRequest struct {
	Fields map[string]any `json:"fields"`
}

type Client struct {
	baseURL string
	appKey  string
	table   string
	apiKey  string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func New(baseURL, appKey, table, apiKey string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appKey:     appKey,
		table:      table,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:     logger.Named("airtable"),
	}
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.appKey), url.PathEscape(c.table))
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte, v interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := httpclient.Do(ctx, c.httpClient, method, u, c.headers(), payload, v)
	var serr *httpclient.StatusError
	if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, serr.Error())
	}
	return err
}

// FetchAll lists every record of the view, following pagination.
func (c *Client) FetchAll(ctx context.Context, view string) ([]Record, error) {
	var records []Record
	offset := ""
	for {
		q := url.Values{}
		if view != "" {
			q.Set("view", view)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		u := c.tableURL()
		if len(q) > 0 {
			u += "?" + q.Encode()
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		records = append(records, page.Records...)
		c.logger.Debug("fetched page", zap.Int("records", len(page.Records)), zap.String("view", view))

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	return records, nil
}

// Update patches the given fields of a record. A nil value clears the field.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) error {
	payload, err := json.Marshal(updateRequest{Fields: fields})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s", c.tableURL(), url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, u, payload, nil); err != nil {
		return fmt.Errorf("update record %s: %w", id, err)
	}
	return nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	u := fmt.Sprintf("%s/%s", c.tableURL(), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, u, nil, &rec); err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}
