// Package cms is a small client for a hosted headless content store that
// exposes a GROQ query endpoint and a transactional mutation endpoint.
//
// Reads and writes are separate types. ReadClient can only query and is
// meant for the public, CDN-cached host. WriteClient requires a token and is
// the only type able to mutate the dataset.
package cms

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
)

// ErrNotFound is returned by Query when the result is null.
var ErrNotFound = errors.New("document not found")

// APIError is a non-2xx answer from the content store.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content store returned %d: %s", e.StatusCode, e.Description)
}

// Options configures a client.
type Options struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	Timeout    time.Duration
	// BaseURL overrides the host derived from ProjectID.
	BaseURL string
}

func (o Options) baseURL(cdn bool) string {
	if o.BaseURL != "" {
		return strings.TrimSuffix(o.BaseURL, "/")
	}
	host := "api.sanity.io"
	if cdn {
		host = "apicdn.sanity.io"
	}
	return fmt.Sprintf("https://%s.%s/v%s", o.ProjectID, host, o.APIVersion)
}

type client struct {
	base       string
	dataset    string
	token      string
	httpClient *http.Client
}

func newClient(opts Options, cdn bool) client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return client{
		base:       opts.baseURL(cdn),
		dataset:    opts.Dataset,
		token:      opts.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Error struct {
		Description string `json:"description"`
	} `json:"error"`
	Message string `json:"message"`
}

func (c client) query(ctx context.Context, groq string, params map[string]any, out any) error {
	q := url.Values{}
	q.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cannot encode query param %s: %w", name, err)
		}
		q.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?%s", c.base, c.dataset, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("cannot create request: %w", err)
	}

	var resp queryResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return ErrNotFound
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("cannot decode query result: %w", err)
	}
	return nil
}

func (c client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach content store: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot read content store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		json.Unmarshal(body, &e)
		desc := e.Error.Description
		if desc == "" {
			desc = e.Message
		}
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Description: desc}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("cannot decode content store response: %w", err)
	}
	return nil
}

// ReadClient queries the dataset. It has no way to change it.
type ReadClient struct {
	c client
}

// NewReadClient creates a query-only client. The token is optional.
func NewReadClient(opts Options) *ReadClient {
	return &ReadClient{c: newClient(opts, opts.UseCDN)}
}

// Query runs a GROQ query and decodes its result into out.
// Returns ErrNotFound when the result is null.
func (r *ReadClient) Query(ctx context.Context, groq string, params map[string]any, out any) error {
	return r.c.query(ctx, groq, params, out)
}

// WriteClient mutates the dataset with an authenticated token.
type WriteClient struct {
	c client
}

// NewWriteClient creates an authenticated client. It never uses the CDN.
func NewWriteClient(opts Options) (*WriteClient, error) {
	if opts.Token == "" {
		return nil, errors.New("cms write client requires a token")
	}
	return &WriteClient{c: newClient(opts, false)}, nil
}

// Query runs a GROQ query against the live (uncached) API.
func (w *WriteClient) Query(ctx context.Context, groq string, params map[string]any, out any) error {
	return w.c.query(ctx, groq, params, out)
}

// Mutation is one entry of a transaction, e.g. {"create": {...}}.
type Mutation map[string]any

// Create builds a create mutation for doc. doc must carry "_type".
func Create(doc map[string]any) Mutation {
	return Mutation{"create": doc}
}

// Patch builds a patch mutation that sets fields on the document id.
func Patch(id string, set map[string]any) Mutation {
	return Mutation{"patch": map[string]any{"id": id, "set": set}}
}

// MutateResult reports the outcome of a committed transaction.
type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Mutate applies mutations as a single transaction: all of them are
// committed or none is.
func (w *WriteClient) Mutate(ctx context.Context, mutations ...Mutation) (*MutateResult, error) {
	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, fmt.Errorf("cannot encode mutations: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s?returnIds=true&visibility=sync", w.c.base, w.c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result MutateResult
	if err := w.c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
