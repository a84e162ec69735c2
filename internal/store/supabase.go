package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// SupabaseConfig configures the PostgREST-backed gateway.
type SupabaseConfig struct {
	URL     string
	Key     string
	Timeout time.Duration
}

// Supabase is a Gateway talking to a Supabase project over its REST API.
type Supabase struct {
	http *resty.Client
}

// NewSupabase constructs a Supabase gateway.
func NewSupabase(cfg SupabaseConfig) *Supabase {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetHeader("Authorization", "Bearer "+cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Supabase{http: client}
}

// APIError is a PostgREST error payload.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase %d: %s", e.Status, e.Message)
}

// Unwrap maps the HTTP status onto the gateway sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "42P01" || e.Code == "PGRST205":
		return ErrUnknownTable
	case e.Status >= http.StatusInternalServerError, e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnavailable
	default:
		return nil
	}
}

// Select implements Gateway.
func (s *Supabase) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	params, err := postgrestParams(q)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + table)
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %w", ErrUnavailable, table, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return decodeRows(resp.Body())
}

// Insert implements Gateway.
func (s *Supabase) Insert(ctx context.Context, table string, row Row) (Row, error) {
	body := encodeBody(row)
	delete(body, ColumnID)
	delete(body, ColumnCreatedAt)
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]map[string]any{body}).
		Post("/" + table)
	if err != nil {
		return nil, fmt.Errorf("%w: insert %s: %w", ErrUnavailable, table, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	rows, err := decodeRows(resp.Body())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store: insert %s returned no representation", table)
	}
	return rows[0], nil
}

// Update implements Gateway.
func (s *Supabase) Update(ctx context.Context, table, id string, row Row) error {
	body := encodeBody(row)
	delete(body, ColumnID)
	delete(body, ColumnCreatedAt)
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam(ColumnID, "eq."+id).
		SetBody(body).
		Patch("/" + table)
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", ErrUnavailable, table, err)
	}
	return s.expectAffected(resp, table, id)
}

// Delete implements Gateway.
func (s *Supabase) Delete(ctx context.Context, table, id string) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam(ColumnID, "eq."+id).
		Delete("/" + table)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrUnavailable, table, err)
	}
	return s.expectAffected(resp, table, id)
}

func (s *Supabase) expectAffected(resp *resty.Response, table, id string) error {
	if err := checkResponse(resp); err != nil {
		return err
	}
	rows, err := decodeRows(resp.Body())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
	}
	return nil
}

func postgrestParams(q Query) (url.Values, error) {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpGte, OpLte:
		default:
			return nil, fmt.Errorf("store: unsupported filter op %q", f.Op)
		}
		params.Add(f.Column, string(f.Op)+"."+asText(f.Value))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	return params, nil
}

func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body()))
	}
	return apiErr
}

// encodeBody renders decimals as JSON numbers rather than quoted strings.
func encodeBody(row Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case decimal.Decimal:
			out[k] = json.Number(t.String())
		case time.Time:
			out[k] = t.Format(time.RFC3339)
		default:
			out[k] = v
		}
	}
	return out
}

func decodeRows(body []byte) ([]Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("store: decode supabase rows: %w", err)
	}
	out := make([]Row, 0, len(raw))
	for _, m := range raw {
		row := make(Row, len(m))
		for k, v := range m {
			n, ok := v.(json.Number)
			switch {
			case ok && k == ColumnID:
				row[k] = n.String()
			case ok:
				d, err := decimal.NewFromString(n.String())
				if err != nil {
					return nil, fmt.Errorf("store: column %s: %w", k, err)
				}
				row[k] = d
			default:
				row[k] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}
