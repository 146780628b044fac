package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// From starts a PostgREST query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client      *Client
	table       string
	columns     string
	filters     []string
	orders      []string
	limit       int
	single      bool
	accessToken string
	serviceRole bool
}

// Select specifies columns to select, including PostgREST embedded resources.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%v", column, value))
	return q
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=gte.%v", column, value))
	return q
}

// Is adds an IS filter (for NULL, TRUE, FALSE).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=is.%v", column, value))
	return q
}

// Order adds an ordering clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single requests exactly one row; zero or multiple rows is an error.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// WithToken scopes the query to a user's access token so row level security
// applies to that user.
func (q *QueryBuilder) WithToken(accessToken string) *QueryBuilder {
	q.accessToken = accessToken
	return q
}

// AsServiceRole runs the query with the service role key, bypassing RLS.
func (q *QueryBuilder) AsServiceRole() *QueryBuilder {
	q.serviceRole = true
	return q
}

func (q *QueryBuilder) url() string {
	var params []string
	columns := q.columns
	if columns == "" {
		columns = "*"
	}
	params = append(params, "select="+url.QueryEscape(columns))
	params = append(params, q.filters...)
	if len(q.orders) > 0 {
		params = append(params, "order="+strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params = append(params, fmt.Sprintf("limit=%d", q.limit))
	}
	return fmt.Sprintf("%s/%s?%s", q.client.restURL, q.table, strings.Join(params, "&"))
}

func (q *QueryBuilder) headers(extra map[string]string) map[string]string {
	headers := map[string]string{}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

func (q *QueryBuilder) do(ctx context.Context, method string, body any, headers map[string]string) ([]byte, error) {
	var respBody []byte
	var status int
	var err error
	if q.serviceRole {
		respBody, status, err = q.client.requestWithServiceKey(ctx, method, q.url(), body, headers)
	} else {
		respBody, status, err = q.client.request(ctx, method, q.url(), body, q.accessToken, headers)
	}
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, parseError(respBody, status)
	}
	return respBody, nil
}

// Execute runs the query as a SELECT and decodes rows into dest.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	body, err := q.do(ctx, http.MethodGet, nil, q.headers(nil))
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode rows from %s: %w", q.table, err)
	}
	return nil
}

// Insert inserts rows and decodes the representation into dest when non-nil.
func (q *QueryBuilder) Insert(ctx context.Context, rows any, dest any) error {
	headers := q.headers(map[string]string{"Prefer": "return=representation"})
	body, err := q.do(ctx, http.MethodPost, rows, headers)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode inserted rows from %s: %w", q.table, err)
	}
	return nil
}

// Update patches rows matching the filters and decodes the representation into
// dest when non-nil.
func (q *QueryBuilder) Update(ctx context.Context, values any, dest any) error {
	headers := q.headers(map[string]string{"Prefer": "return=representation"})
	body, err := q.do(ctx, http.MethodPatch, values, headers)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode updated rows from %s: %w", q.table, err)
	}
	return nil
}

// Delete removes rows matching the filters.
func (q *QueryBuilder) Delete(ctx context.Context) error {
	_, err := q.do(ctx, http.MethodDelete, nil, q.headers(nil))
	return err
}

// RPC calls a Postgres function through PostgREST. accessToken may be empty for
// anonymous calls; dest may be nil when the result is not needed.
func (c *Client) RPC(ctx context.Context, fn string, args any, accessToken string, dest any) error {
	url := fmt.Sprintf("%s/rpc/%s", c.restURL, fn)

	body, status, err := c.request(ctx, http.MethodPost, url, args, accessToken, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode rpc %s response: %w", fn, err)
	}
	return nil
}
