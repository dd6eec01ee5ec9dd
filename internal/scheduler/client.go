package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// Client triggers sweeps on a running ledger server, so every write goes
// through that server's serialised service instead of a second writer.
type Client struct {
	baseURL    string
	caller     string
	httpClient *http.Client
}

// NewClient returns a Sweeper that calls the server at baseURL as caller.
func NewClient(baseURL, caller string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		caller:     caller,
		httpClient: httpClient,
	}
}

func (c *Client) CheckForDefault(ctx context.Context) ([]string, error) {
	return c.sweep(ctx, "defaults")
}

func (c *Client) AccumulateInterest(ctx context.Context) ([]string, error) {
	return c.sweep(ctx, "interest")
}

func (c *Client) AutomateLoanRepayment(ctx context.Context) ([]string, error) {
	return c.sweep(ctx, "repayments")
}

// sweep returns the ids the server changed. Per-loan failures the server
// reports come back joined next to those ids.
func (c *Client) sweep(ctx context.Context, name string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sweeps/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s sweep request: %w", name, err)
	}
	req.Header.Set(identity.HeaderName, c.caller)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger %s sweep: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure response.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil {
			return nil, fmt.Errorf("%s sweep returned %d", name, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s sweep returned %d: %s", name, resp.StatusCode, failure.Error)
	}

	var body struct {
		Data domain.SweepResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s sweep response: %w", name, err)
	}

	errs := make([]error, 0, len(body.Data.Errors))
	for _, msg := range body.Data.Errors {
		errs = append(errs, errors.New(msg))
	}
	return body.Data.LoanIDs, errors.Join(errs...)
}
